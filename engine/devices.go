package engine

import (
	"sort"

	"github.com/chromedp/chromedp/device"
)

// Device describes an emulation preset.
type Device = device.Info

var devices = map[string]Device{
	"iPhone 7":  device.IPhone7.Device(),
	"iPhone X":  device.IPhoneX.Device(),
	"iPad":      device.IPad.Device(),
	"iPad Pro":  device.IPadPro.Device(),
	"Pixel 2":   device.Pixel2.Device(),
	"Galaxy S5": device.GalaxyS5.Device(),
	"Nexus 5":   device.Nexus5.Device(),
}

// Devices returns a copy of the preset table, keyed by display name.
func Devices() map[string]Device {
	out := make(map[string]Device, len(devices))
	for name, d := range devices {
		out[name] = d
	}
	return out
}

func LookupDevice(name string) (Device, bool) {
	d, ok := devices[name]
	return d, ok
}

// DeviceNames returns the preset names in sorted order.
func DeviceNames() []string {
	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
