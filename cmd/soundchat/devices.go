package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"soundchat/pkg/device"
)

func (a *app) devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture and playback devices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODE\tINDEX\tDEFAULT\tNAME")
			for _, mode := range []device.Mode{device.Capture, device.Playback} {
				devices, err := device.ListDevices(mode)
				if err != nil {
					return err
				}
				for _, d := range devices {
					mark := ""
					if d.Default {
						mark = "*"
					}
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", mode, d.Index, mark, d.Name)
				}
			}
			return tw.Flush()
		},
	}
}
