package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tturner/ipmiq/internal/ipmi/catalog"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

func newLANCmd(g *globalFlags) *cobra.Command {
	var channel uint8

	cmd := &cobra.Command{
		Use:   "lan",
		Short: "Print a channel's LAN configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, done, err := connect(ctx, g)
			if err != nil {
				return err
			}
			defer done()

			ch := protocol.Channel(channel)

			for _, param := range []catalog.LANParam{
				catalog.LANParamIPSource,
				catalog.LANParamIPAddress,
				catalog.LANParamSubnetMask,
				catalog.LANParamMACAddress,
				catalog.LANParamGatewayIP,
				catalog.LANParamGatewayMAC,
				catalog.LANParamBackupGatewayIP,
				catalog.LANParamVLANID,
				catalog.LANParamCommunityString,
			} {
				data, err := c.LANConfig(ctx, ch, param)
				if err != nil {
					fmt.Fprintf(os.Stderr, "%-22s <%v>\n", param.String()+":", err)
					continue
				}
				fmt.Fprintf(os.Stdout, "%-22s %s\n", param.String()+":", renderLANParam(param, data))
			}
			return nil
		},
	}

	cmd.Flags().Uint8Var(&channel, "channel", 1, "LAN channel number")
	return cmd
}

func renderLANParam(param catalog.LANParam, data catalog.LANConfigData) string {
	switch param {
	case catalog.LANParamIPAddress, catalog.LANParamSubnetMask,
		catalog.LANParamGatewayIP, catalog.LANParamBackupGatewayIP:
		if ip, err := data.IP(); err == nil {
			return ip.String()
		}
	case catalog.LANParamMACAddress, catalog.LANParamGatewayMAC:
		if mac, err := data.MAC(); err == nil {
			return mac.String()
		}
	case catalog.LANParamVLANID:
		if enabled, id, err := data.VLAN(); err == nil {
			if !enabled {
				return "disabled"
			}
			return fmt.Sprintf("%d", id)
		}
	case catalog.LANParamIPSource:
		if len(data.Data) >= 1 {
			switch data.Data[0] & 0xF {
			case 1:
				return "static"
			case 2:
				return "dhcp"
			case 3:
				return "bios"
			default:
				return fmt.Sprintf("source 0x%X", data.Data[0]&0xF)
			}
		}
	case catalog.LANParamCommunityString:
		return string(data.Data)
	}
	return fmt.Sprintf("% X", data.Data)
}
