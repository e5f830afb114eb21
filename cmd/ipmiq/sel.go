package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tturner/ipmiq/internal/ipmi/client"
)

func newSELCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sel",
		Short: "Inspect the system event log",
	}
	cmd.AddCommand(newSELListCmd(g))
	cmd.AddCommand(newSELInfoCmd(g))
	cmd.AddCommand(newSELClearCmd(g))
	return cmd
}

func newSELListCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every event log entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, done, err := connect(ctx, g)
			if err != nil {
				return err
			}
			defer done()

			return c.WalkSEL(ctx, func(r client.SELResult) bool {
				if r.Err != nil {
					fmt.Fprintf(os.Stderr, "record 0x%04X: %v\n", r.RecordID, r.Err)
					return true
				}
				when := "pre-init"
				if ev := r.Entry.System; ev != nil {
					if ts, ok := ev.Time(); ok {
						when = ts.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(os.Stdout, "0x%04X %-19s %s\n", r.RecordID, when, r.Entry.Describe())
				return true
			})
		},
	}
}

func newSELInfoCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show event log usage and capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, done, err := connect(ctx, g)
			if err != nil {
				return err
			}
			defer done()

			info, err := c.SELInfo(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "SEL v%d.%d: %d entries, %d bytes free\n",
				info.VersionMajor, info.VersionMinor, info.Entries, info.FreeBytes)
			if info.Overflow {
				fmt.Fprintln(os.Stdout, "Overflow: events have been dropped")
			}
			if info.SupportsGetAlloc {
				if alloc, err := c.SELAllocInfo(ctx); err == nil {
					fmt.Fprintf(os.Stdout, "Allocation: %d/%d units free, max record %d bytes\n",
						alloc.FreeUnits, alloc.AllocationUnits, alloc.MaxRecordSize)
				}
			}
			return nil
		},
	}
}

func newSELClearCmd(g *globalFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Erase the event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the SEL without --yes")
			}
			ctx := context.Background()
			c, done, err := connect(ctx, g)
			if err != nil {
				return err
			}
			defer done()

			if err := c.ClearSEL(ctx); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "SEL cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm erasure")
	return cmd
}
