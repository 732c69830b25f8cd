package storage

import (
	"agent-browser/models"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CSVWriter saves probe results to a CSV file.
type CSVWriter struct {
	path string
}

func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

var csvHeader = []string{
	"url", "final_url", "title", "webdriver", "has_chrome", "cdp_markers",
	"automation_markers", "plugin_count", "languages", "notifications",
	"webgl_vendor", "webgl_renderer", "leaks", "probed_at",
}

// Write saves all results, creating the output directory if needed.
func (w *CSVWriter) Write(results []models.ProbeResult) error {
	if len(results) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("could not create output dir: %w", err)
	}

	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}

	for _, r := range results {
		row := []string{
			r.URL,
			r.FinalURL,
			r.Title,
			strconv.FormatBool(r.Webdriver),
			strconv.FormatBool(r.HasChrome),
			strings.Join(r.CDPMarkers, ";"),
			strings.Join(r.AutomationMarkers, ";"),
			strconv.Itoa(r.PluginCount),
			strings.Join(r.Languages, ";"),
			r.NotificationPermission,
			r.WebGLVendor,
			r.WebGLRenderer,
			strings.Join(r.Leaks(), ";"),
			r.ProbedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("csv write error: %w", err)
		}
	}

	// Flush before checking, or buffered rows are silently lost.
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}
	return nil
}

func (w *CSVWriter) Path() string { return w.path }
