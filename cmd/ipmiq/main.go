package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tturner/ipmiq/internal/logging"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	global := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "ipmiq",
		Short: "Query BMC sensors, SDRs, and event logs over IPMI",
		Long: `ipmiq talks IPMI v2.0 to baseboard management controllers, either
locally through the OpenIPMI driver (/dev/ipmiN) or over the network with
RMCP/RMCP+ sessions, to inspect the sensor data record repository, sensor
readings, and the system event log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LogLevelError
			switch {
			case global.debug:
				level = logging.LogLevelDebug
			case global.verbose:
				level = logging.LogLevelVerbose
			}
			logger, err := logging.NewLogger(level, global.logFile)
			if err != nil {
				return err
			}
			logging.SetDefault(logger)
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&global.configPath, "config", "", "Profiles file (YAML)")
	pf.StringVar(&global.profile, "profile", "", "Profile name from the config file")
	pf.StringVar(&global.host, "host", "", "BMC host or host:port")
	pf.StringVar(&global.device, "device", "", "OpenIPMI device path, e.g. /dev/ipmi0")
	pf.StringVar(&global.iface, "interface", "", "Interface: lanplus, lan, or open")
	pf.StringVar(&global.username, "username", "", "Session username")
	pf.StringVar(&global.passwordEnv, "password-env", "", "Environment variable holding the password")
	pf.StringVar(&global.privilege, "privilege", "", "Requested privilege level")
	pf.BoolVarP(&global.verbose, "verbose", "v", false, "Verbose output")
	pf.BoolVar(&global.debug, "debug", false, "Debug output")
	pf.StringVar(&global.logFile, "log-file", "", "Also write logs to this file")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newDeviceCmd(global))
	rootCmd.AddCommand(newSensorsCmd(global))
	rootCmd.AddCommand(newSDRCmd(global))
	rootCmd.AddCommand(newSELCmd(global))
	rootCmd.AddCommand(newLANCmd(global))
	rootCmd.AddCommand(newRawCmd(global))
	rootCmd.AddCommand(newDiscoverCmd(global))
	rootCmd.AddCommand(newWatchCmd(global))
	rootCmd.AddCommand(newPcapCmd())
	rootCmd.AddCommand(newValidateConfigCmd(global))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stdout, "ipmiq version %s\n", version)
			fmt.Fprintf(os.Stdout, "commit: %s\n", commit)
			fmt.Fprintf(os.Stdout, "date: %s\n", date)
		},
	}
}
