package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

func newRawCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "raw <netfn> <cmd> [data bytes...]",
		Short: "Send a raw IPMI command",
		Long: `Send an arbitrary IPMI command and print the raw response. NetFn, command,
and data bytes accept decimal or 0x-prefixed hex.`,
		Example: `  # Get Device ID by hand
  ipmiq raw --device /dev/ipmi0 0x06 0x01`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make([]uint8, 0, len(args))
			for _, a := range args {
				v, err := strconv.ParseUint(a, 0, 8)
				if err != nil {
					return fmt.Errorf("argument %q is not a byte", a)
				}
				parsed = append(parsed, uint8(v))
			}

			ctx := context.Background()
			c, done, err := connect(ctx, g)
			if err != nil {
				return err
			}
			defer done()

			data, err := c.Execute(ctx, rawCommand{
				netFn: protocol.NetFn(parsed[0]),
				cmd:   parsed[1],
				data:  parsed[2:],
			})
			if err != nil {
				return err
			}
			if len(data) == 0 {
				fmt.Fprintln(os.Stdout, "(empty response)")
				return nil
			}
			fmt.Fprintln(os.Stdout, strings.ToUpper(hex.EncodeToString(data)))
			return nil
		},
	}
	return cmd
}

// rawCommand adapts user-supplied bytes to the command catalogue shape.
type rawCommand struct {
	netFn protocol.NetFn
	cmd   uint8
	data  []uint8
}

func (r rawCommand) Request() protocol.Request {
	return protocol.NewRequest(r.netFn, r.cmd, r.data)
}
