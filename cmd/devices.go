package cmd

import (
	"agent-browser/engine"
	"fmt"

	"github.com/spf13/cobra"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List device emulation presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range engine.DeviceNames() {
				d, _ := engine.LookupDevice(name)
				fmt.Printf("%-12s %4dx%-5d mobile=%-5t %s\n", name, d.Width, d.Height, d.Mobile, d.UserAgent)
			}
		},
	}
}
