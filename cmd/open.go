package cmd

import (
	"agent-browser/engine"
	"agent-browser/prober"
	"agent-browser/utils"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newOpenCmd() *cobra.Command {
	var (
		headful bool
		device  string
	)

	cmd := &cobra.Command{
		Use:   "open URL",
		Short: "Open one URL in a stealth session and print what the page observes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if headful {
				cfg.Headless = false
			}
			return runOpen(cmd.Context(), args[0], device)
		},
	}

	cmd.Flags().BoolVar(&headful, "headful", false, "show the browser window")
	cmd.Flags().StringVar(&device, "device", "", "emulate a device preset (see 'devices')")
	return cmd
}

func runOpen(ctx context.Context, url, device string) error {
	m := newSession()
	defer m.Close()

	launchCtx, cancel := context.WithTimeout(ctx, cfg.LaunchTimeout)
	err := m.Launch(launchCtx, cfg.LaunchOptions())
	cancel()
	if err != nil {
		return err
	}

	page, err := m.Page()
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	if device != "" {
		preset, ok := engine.LookupDevice(device)
		if !ok {
			return fmt.Errorf("unknown device %q (known: %s)", device, strings.Join(engine.DeviceNames(), ", "))
		}
		if err := page.Emulate(reqCtx, preset); err != nil {
			return fmt.Errorf("failed to emulate %s: %w", device, err)
		}
	}

	result, err := prober.New(loggerFor("open")).Probe(reqCtx, page, url)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}

	utils.Success("Loaded %s", result.FinalURL)
	fmt.Printf("url:           %s\n", result.FinalURL)
	fmt.Printf("title:         %s\n", result.Title)
	fmt.Printf("webdriver:     %t\n", result.Webdriver)
	fmt.Printf("window.chrome: %t\n", result.HasChrome)
	fmt.Printf("plugins:       %d\n", result.PluginCount)
	fmt.Printf("languages:     %s\n", strings.Join(result.Languages, ", "))
	fmt.Printf("notifications: %s\n", result.NotificationPermission)
	fmt.Printf("webgl:         %s / %s\n", result.WebGLVendor, result.WebGLRenderer)
	if leaks := result.Leaks(); len(leaks) > 0 {
		utils.Warn("Signals visible to the page: %s", strings.Join(leaks, ", "))
	}
	return nil
}
