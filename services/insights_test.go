package services

import (
	"agent-browser/models"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateReport(t *testing.T) {
	clean := models.ProbeResult{
		URL:                    "https://clean.example",
		HasChrome:              true,
		PluginCount:            3,
		Languages:              []string{"en-US"},
		NotificationPermission: "prompt",
		WebGLVendor:            "Intel Inc.",
	}
	leaky := models.ProbeResult{
		URL:         "https://leaky.example",
		Webdriver:   true,
		HasChrome:   true,
		PluginCount: 3,
		Languages:   []string{"en-US"},
		WebGLVendor: "Google Inc. (Intel)",
	}

	report := GenerateReport([]models.ProbeOutcome{
		{Job: models.ProbeJob{URL: clean.URL}, Result: clean},
		{Job: models.ProbeJob{URL: leaky.URL}, Result: leaky},
		{Job: models.ProbeJob{URL: "https://down.example"}, Error: errors.New("net::ERR_NAME_NOT_RESOLVED")},
	})

	assert.Equal(t, 3, report.TotalPages)
	assert.Equal(t, 1, report.FailedPages)
	assert.Equal(t, 1, report.CleanPages)
	assert.Equal(t, 1, report.LeakingPages)
	assert.Equal(t, map[string]int{models.LeakWebdriver: 1}, report.LeaksBySignal)
	assert.Equal(t, map[string]int{"Intel Inc.": 1, "Google Inc. (Intel)": 1}, report.WebGLVendors)
	assert.Len(t, report.Leaking, 1)
	assert.Equal(t, leaky.URL, report.Leaking[0].URL)
}

func TestGenerateReport_Empty(t *testing.T) {
	report := GenerateReport(nil)

	assert.Zero(t, report.TotalPages)
	assert.NotNil(t, report.LeaksBySignal)
	assert.NotPanics(t, func() { PrintReport(report) })
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", truncateText("short", 10))
	assert.Equal(t, "https:/...", truncateText("https://example.com", 10))
	assert.Equal(t, "ab", truncateText("abcdef", 2))
}
