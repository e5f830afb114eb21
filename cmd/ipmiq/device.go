package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

func newDeviceCmd(g *globalFlags) *cobra.Command {
	var channel uint8

	cmd := &cobra.Command{
		Use:   "device",
		Short: "Show BMC identification and channel information",
		Example: `  # Query a BMC over RMCP+
  ipmiq device --host 10.0.0.5 --username admin

  # Query the local BMC through the OpenIPMI driver
  ipmiq device --device /dev/ipmi0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, done, err := connect(ctx, g)
			if err != nil {
				return err
			}
			defer done()

			id, err := c.DeviceID(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "Device ID:        0x%02X (revision %d)\n", id.DeviceID, id.DeviceRevision)
			fmt.Fprintf(os.Stdout, "Firmware:         %d.%02d\n", id.FirmwareMajor, id.FirmwareMinor)
			fmt.Fprintf(os.Stdout, "IPMI version:     %d.%d\n", id.IPMIVersionMajor, id.IPMIVersionMinor)
			fmt.Fprintf(os.Stdout, "Manufacturer:     0x%06X\n", id.ManufacturerID)
			fmt.Fprintf(os.Stdout, "Product:          0x%04X\n", id.ProductID)
			fmt.Fprintf(os.Stdout, "Available:        %v\n", id.Available)
			if id.AuxFirmware != nil {
				fmt.Fprintf(os.Stdout, "Aux firmware:     % X\n", id.AuxFirmware)
			}

			var caps []string
			for _, c := range []struct {
				name string
				set  bool
			}{
				{"chassis", id.ChassisSupport},
				{"bridge", id.BridgeSupport},
				{"ipmb-event-gen", id.IPMBEventGen},
				{"ipmb-event-recv", id.IPMBEventRecv},
				{"fru-inventory", id.FRUInventory},
				{"sel", id.SELDevice},
				{"sdr-repository", id.SDRRepository},
				{"sensors", id.SensorDevice},
			} {
				if c.set {
					caps = append(caps, c.name)
				}
			}
			fmt.Fprintf(os.Stdout, "Capabilities:     %v\n", caps)

			info, err := c.ChannelInfo(ctx, protocol.Channel(channel))
			if err != nil {
				// Channel info is best effort; some interfaces reject it.
				return nil
			}
			fmt.Fprintf(os.Stdout, "Channel %d:        medium 0x%02X, protocol 0x%02X, %d active session(s)\n",
				info.Channel, info.Medium, info.Protocol, info.ActiveSessions)
			return nil
		},
	}

	cmd.Flags().Uint8Var(&channel, "channel", uint8(protocol.ChannelCurrent), "Channel to inspect")
	return cmd
}
