package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tturner/ipmiq/internal/ipmi/transport"
)

func newDiscoverCmd(g *globalFlags) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Probe a host for RMCP support with an ASF presence ping",
		Example: `  ipmiq discover --host 10.0.0.5
  ipmiq discover --host 10.0.0.5 --timeout 2s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.host == "" {
				return fmt.Errorf("--host is required")
			}

			udp, err := transport.DialUDP(g.host)
			if err != nil {
				return err
			}
			defer udp.Close()

			pong, err := transport.Ping(context.Background(), udp, timeout)
			if err != nil {
				return fmt.Errorf("no presence pong from %s: %w", g.host, err)
			}

			fmt.Fprintf(os.Stdout, "%s answers RMCP\n", udp.RemoteAddr())
			fmt.Fprintf(os.Stdout, "  IPMI supported:  %v\n", pong.SupportsIPMI)
			fmt.Fprintf(os.Stdout, "  ASF version 1.0: %v\n", pong.SupportsASFv1)
			if pong.IANA != 4542 {
				fmt.Fprintf(os.Stdout, "  OEM IANA:        %d\n", pong.IANA)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "How long to wait for the pong")
	return cmd
}
