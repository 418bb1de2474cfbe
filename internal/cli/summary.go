package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sayamjn/enterpret-gladly/internal/importer"
	"github.com/sayamjn/enterpret-gladly/internal/metrics"
)

// Theme holds the color scheme for run summaries.
type Theme struct {
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// printSummary renders the end-of-run report. It always prints; per-record
// errors turn the headline into a warning without failing the process.
func printSummary(m importer.RunMetrics, snap metrics.Snapshot, verbose bool) {
	theme := defaultTheme

	if m.Errors == 0 {
		fmt.Println(theme.successStyle().Render("✓ Import completed"))
	} else {
		fmt.Println(theme.errorStyle().Render(fmt.Sprintf("⚠ Import completed with %d error(s)", m.Errors)))
	}

	fmt.Printf("  Window:        %s → %s\n",
		m.WindowStart.Format(time.RFC3339), m.WindowEnd.Format(time.RFC3339))
	fmt.Printf("  Conversations: %d\n", m.ConversationsProcessed)
	fmt.Printf("  Items:         %d\n", m.ItemsProcessed)
	fmt.Printf("  Customers:     %d\n", m.CustomersProcessed)
	fmt.Printf("  Duration:      %s\n", m.CompletedAt.Sub(m.StartedAt).Round(time.Millisecond))

	if m.StateAdvanced {
		fmt.Println(theme.hintStyle().Render("  State advanced to window end."))
	} else {
		fmt.Println(theme.hintStyle().Render("  State unchanged; this window repeats next run."))
	}

	if verbose && len(snap.Operations) > 0 {
		fmt.Println("\n  Operation timings:")
		ops := make([]string, 0, len(snap.Operations))
		for op := range snap.Operations {
			ops = append(ops, op)
		}
		sort.Strings(ops)
		for _, op := range ops {
			s := snap.Operations[op]
			fmt.Printf("    %-20s count=%-5d avg=%.1fms min=%dms max=%dms\n",
				op, s.Count, s.AvgTimeMs, s.MinTimeMs, s.MaxTimeMs)
		}
	}
}
