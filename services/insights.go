package services

import (
	"agent-browser/models"
	"fmt"
	"sort"
	"strings"
)

type Report struct {
	TotalPages    int
	FailedPages   int
	CleanPages    int
	LeakingPages  int
	LeaksBySignal map[string]int
	WebGLVendors  map[string]int
	Leaking       []models.ProbeResult
}

// GenerateReport summarises probe outcomes. Failed probes are counted but
// carry no signals.
func GenerateReport(outcomes []models.ProbeOutcome) Report {
	report := Report{
		LeaksBySignal: make(map[string]int),
		WebGLVendors:  make(map[string]int),
	}

	for _, o := range outcomes {
		report.TotalPages++
		if o.Error != nil {
			report.FailedPages++
			continue
		}

		if vendor := strings.TrimSpace(o.Result.WebGLVendor); vendor != "" {
			report.WebGLVendors[vendor]++
		}

		leaks := o.Result.Leaks()
		if len(leaks) == 0 {
			report.CleanPages++
			continue
		}
		report.LeakingPages++
		report.Leaking = append(report.Leaking, o.Result)
		for _, leak := range leaks {
			report.LeaksBySignal[leak]++
		}
	}

	return report
}

func PrintReport(report Report) {
	fmt.Println()
	fmt.Println("┌──────────────────────────────────────────────────────────────┐")
	fmt.Println("│                  Automation Detection Summary                │")
	fmt.Println("├───────────────────────────────┬──────────────────────────────┤")
	fmt.Printf("│ %-29s │ %-28d │\n", "Pages Probed", report.TotalPages)
	fmt.Printf("│ %-29s │ %-28d │\n", "Failed Probes", report.FailedPages)
	fmt.Printf("│ %-29s │ %-28d │\n", "Clean Pages", report.CleanPages)
	fmt.Printf("│ %-29s │ %-28d │\n", "Leaking Pages", report.LeakingPages)
	fmt.Println("└───────────────────────────────┴──────────────────────────────┘")

	if len(report.LeaksBySignal) > 0 {
		fmt.Println()
		fmt.Println("┌──────────────────────────────────────────────┬───────────────┐")
		fmt.Println("│ Leaked Signal                                │ Pages         │")
		fmt.Println("├──────────────────────────────────────────────┼───────────────┤")
		for _, signal := range sortedKeys(report.LeaksBySignal) {
			fmt.Printf("│ %-44s │ %-13d │\n", signal, report.LeaksBySignal[signal])
		}
		fmt.Println("└──────────────────────────────────────────────┴───────────────┘")
	}

	if len(report.WebGLVendors) > 0 {
		fmt.Println()
		fmt.Println("┌──────────────────────────────────────────────┬───────────────┐")
		fmt.Println("│ Reported WebGL Vendor                        │ Pages         │")
		fmt.Println("├──────────────────────────────────────────────┼───────────────┤")
		for _, vendor := range sortedKeys(report.WebGLVendors) {
			fmt.Printf("│ %-44s │ %-13d │\n", truncateText(vendor, 44), report.WebGLVendors[vendor])
		}
		fmt.Println("└──────────────────────────────────────────────┴───────────────┘")
	}

	if len(report.Leaking) > 0 {
		fmt.Println()
		fmt.Println("┌─────┬──────────────────────────────────────────────┬──────────┐")
		fmt.Println("│ #   │ Leaking Page                                 │ Signals  │")
		fmt.Println("├─────┼──────────────────────────────────────────────┼──────────┤")
		for i, r := range report.Leaking {
			fmt.Printf("│ %-3d │ %-44s │ %-8d │\n", i+1, truncateText(r.URL, 44), len(r.Leaks()))
		}
		fmt.Println("└─────┴──────────────────────────────────────────────┴──────────┘")
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
