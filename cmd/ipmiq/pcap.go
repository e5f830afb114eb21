package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tturner/ipmiq/internal/pcapdump"
)

func newPcapCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "pcap <capture.pcap>",
		Short: "Decode RMCP/IPMI traffic from a packet capture",
		Long: `Read a pcap file and summarize the RMCP datagrams in it: ASF pings,
IPMI 1.5 session traffic, and RMCP+ session setup (open session and RAKP
exchanges). Encrypted payloads are identified but not decrypted.`,
		Example: `  ipmiq pcap bmc-traffic.pcap
  ipmiq pcap bmc-traffic.pcap --kind rmcp+`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := pcapdump.ReadFile(args[0])
			if err != nil {
				return err
			}

			shown := 0
			for _, s := range summaries {
				if kind != "" && s.Kind != kind {
					continue
				}
				fmt.Fprintln(os.Stdout, s)
				shown++
			}
			fmt.Fprintf(os.Stdout, "%d RMCP datagram(s)\n", shown)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only show one kind: asf, ipmi-1.5, or rmcp+")
	return cmd
}
