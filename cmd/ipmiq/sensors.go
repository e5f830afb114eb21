package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tturner/ipmiq/internal/ipmi/client"
	"github.com/tturner/ipmiq/internal/ipmi/sdr"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	critStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
)

func severityStyle(sev sdr.ThresholdSeverity) lipgloss.Style {
	switch sev {
	case sdr.SeverityOK:
		return okStyle
	case sdr.SeverityNonCritical:
		return warnStyle
	}
	return critStyle
}

func newSensorsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sensors",
		Short: "Read every sensor described in the SDR repository",
		Example: `  ipmiq sensors --host 10.0.0.5 --username admin
  ipmiq sensors --device /dev/ipmi0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, done, err := connect(ctx, g)
			if err != nil {
				return err
			}
			defer done()

			values, readErrs, err := c.ReadAllSensors(ctx)
			if err != nil {
				return err
			}

			printSensorTable(values)

			for _, e := range readErrs {
				fmt.Fprintln(os.Stderr, dimStyle.Render("skipped: "+e.Error()))
			}
			return nil
		},
	}
	return cmd
}

func printSensorTable(values []client.SensorValue) {
	fmt.Fprintln(os.Stdout, headerStyle.Render(fmt.Sprintf("%-20s %-12s %-10s %s", "SENSOR", "VALUE", "STATUS", "OWNER")))

	for _, v := range values {
		owner := fmt.Sprintf("0x%02X/%d", v.Key.OwnerID<<1, v.Key.SensorNumber)

		var value, status string
		switch {
		case v.Unavailable:
			value, status = "n/a", dimStyle.Render("unavailable")
		case v.Value != nil:
			value = strings.TrimSpace(fmt.Sprintf("%.2f %s", *v.Value, v.Unit))
			status = severityStyle(v.Severity).Render(v.Severity.String())
		default:
			value = fmt.Sprintf("0x%04X", v.StateBits)
			status = dimStyle.Render("discrete")
		}
		fmt.Fprintf(os.Stdout, "%-20s %-12s %-10s %s\n", v.Name, value, status, owner)
	}
}
