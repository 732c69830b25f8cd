package models

import "time"

// ProbeResult records the automation signals a page could observe after
// navigation.
type ProbeResult struct {
	ID                     int
	URL                    string
	FinalURL               string
	Title                  string
	Webdriver              bool
	HasChrome              bool
	CDPMarkers             []string
	AutomationMarkers      []string
	PluginCount            int
	Languages              []string
	NotificationPermission string
	WebGLVendor            string
	WebGLRenderer          string
	ProbedAt               time.Time
}

// Leak names for ProbeResult.Leaks.
const (
	LeakWebdriver         = "webdriver"
	LeakMissingChrome     = "missing-chrome"
	LeakCDPMarkers        = "cdp-markers"
	LeakAutomationMarkers = "automation-markers"
	LeakNoPlugins         = "no-plugins"
	LeakNoLanguages       = "no-languages"
	LeakNotifications     = "notifications-denied"
)

// Leaks lists the signals that would reveal automation to the page.
func (r ProbeResult) Leaks() []string {
	var leaks []string
	if r.Webdriver {
		leaks = append(leaks, LeakWebdriver)
	}
	if !r.HasChrome {
		leaks = append(leaks, LeakMissingChrome)
	}
	if len(r.CDPMarkers) > 0 {
		leaks = append(leaks, LeakCDPMarkers)
	}
	if len(r.AutomationMarkers) > 0 {
		leaks = append(leaks, LeakAutomationMarkers)
	}
	if r.PluginCount == 0 {
		leaks = append(leaks, LeakNoPlugins)
	}
	if len(r.Languages) == 0 {
		leaks = append(leaks, LeakNoLanguages)
	}
	if r.NotificationPermission == "denied" {
		leaks = append(leaks, LeakNotifications)
	}
	return leaks
}

func (r ProbeResult) Clean() bool {
	return len(r.Leaks()) == 0
}

type ProbeJob struct {
	URL      string
	Sequence int
}

type ProbeOutcome struct {
	Job    ProbeJob
	Result ProbeResult
	Error  error
}
