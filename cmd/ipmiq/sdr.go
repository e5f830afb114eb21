package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tturner/ipmiq/internal/ipmi/client"
	"github.com/tturner/ipmiq/internal/ipmi/sdr"
)

func newSDRCmd(g *globalFlags) *cobra.Command {
	var showInfo bool

	cmd := &cobra.Command{
		Use:   "sdr",
		Short: "Dump the sensor data record repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, done, err := connect(ctx, g)
			if err != nil {
				return err
			}
			defer done()

			if showInfo {
				info, err := c.SDRRepositoryInfo(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "SDR repository v%d.%d: %d records, %d bytes free\n",
					info.VersionMajor, info.VersionMinor, info.Records, info.FreeBytes)
				if alloc, err := c.SDRAllocInfo(ctx); err == nil {
					fmt.Fprintf(os.Stdout, "Allocation: %d/%d units free, unit size %d\n",
						alloc.FreeUnits, alloc.AllocationUnits, alloc.AllocationSize)
				}
			}

			return c.WalkSDRs(ctx, func(r client.SDRResult) bool {
				if r.Err != nil {
					fmt.Fprintf(os.Stderr, "record 0x%04X: %v\n", r.RecordID, r.Err)
					return true
				}
				printSDR(r.Record)
				return true
			})
		},
	}

	cmd.Flags().BoolVar(&showInfo, "info", false, "Also print repository usage")
	return cmd
}

func printSDR(rec sdr.Record) {
	h := rec.Header
	switch {
	case rec.Full != nil:
		f := rec.Full
		fmt.Fprintf(os.Stdout, "0x%04X full      %-16s sensor 0x%02X type 0x%02X M=%d B=%d Bexp=%d Rexp=%d %s\n",
			h.RecordID, f.ID, f.Key.SensorNumber, f.SensorType, f.M, f.B, f.BExp, f.RExp, f.Units)
	case rec.Compact != nil:
		fmt.Fprintf(os.Stdout, "0x%04X compact   %-16s sensor 0x%02X type 0x%02X\n",
			h.RecordID, rec.Compact.ID, rec.Compact.Key.SensorNumber, rec.Compact.SensorType)
	case rec.EventOnly != nil:
		fmt.Fprintf(os.Stdout, "0x%04X event     %-16s sensor 0x%02X\n",
			h.RecordID, rec.EventOnly.ID, rec.EventOnly.Key.SensorNumber)
	case rec.MC != nil:
		fmt.Fprintf(os.Stdout, "0x%04X mc        %-16s sa 0x%02X channel %d\n",
			h.RecordID, rec.MC.ID, rec.MC.SlaveAddress<<1, rec.MC.Channel)
	case rec.FRU != nil:
		fmt.Fprintf(os.Stdout, "0x%04X fru       %-16s device %d logical=%v\n",
			h.RecordID, rec.FRU.ID, rec.FRU.DeviceID, rec.FRU.Logical)
	case rec.Generic != nil:
		fmt.Fprintf(os.Stdout, "0x%04X generic   %-16s sa 0x%02X bus %d\n",
			h.RecordID, rec.Generic.ID, rec.Generic.SlaveAddress<<1, rec.Generic.PrivateBusID)
	case rec.Entity != nil:
		fmt.Fprintf(os.Stdout, "0x%04X entity    container %d.%d\n",
			h.RecordID, rec.Entity.ContainerEntityID, rec.Entity.ContainerEntityInstance)
	default:
		fmt.Fprintf(os.Stdout, "0x%04X type 0x%02X (%d bytes)\n", h.RecordID, uint8(h.Type), len(rec.Raw))
	}
}
