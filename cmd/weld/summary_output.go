package main

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"weld/internal/buildpipeline"
	"weld/internal/emit"
	"weld/internal/history"
)

var (
	numbers     = message.NewPrinter(language.English)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	growStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	shrinkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

func formatBytes(n int) string {
	return numbers.Sprintf("%d B", n)
}

// formatDelta renders cur against the previous build's size.
func formatDelta(cur, prev int, known bool) string {
	if !known {
		return "new"
	}
	switch d := cur - prev; {
	case d > 0:
		return growStyle.Render(numbers.Sprintf("+%d", d))
	case d < 0:
		return shrinkStyle.Render(numbers.Sprintf("%d", d))
	default:
		return "="
	}
}

// renderSummary is the size table printed after a build. prev holds the
// last recorded sizes per output path; nil hides the delta column.
func renderSummary(res *buildpipeline.BuildResult, prev map[string]history.Output) string {
	headers := []string{"output", "raw", "final", "gzip", "brotli"}
	if prev != nil {
		headers = append(headers, "Δ gzip")
	}
	row := func(name string, o emit.OutputStat) []string {
		r := []string{name, formatBytes(o.Raw), formatBytes(o.Final), formatBytes(o.Gzip), formatBytes(o.Brotli)}
		if prev != nil {
			p, ok := prev[name]
			r = append(r, formatDelta(o.Gzip, p.Gzip, ok))
		}
		return r
	}

	rows := make([][]string, 0, len(res.Stats.Outputs)+1)
	for _, o := range res.Stats.Outputs {
		rows = append(rows, row(o.Path, o))
	}
	if len(res.Stats.Outputs) > 1 {
		total := row("total", res.Stats.Total())
		if prev != nil {
			total[len(total)-1] = ""
		}
		rows = append(rows, total)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(_, col int) lipgloss.Style {
			if col > 0 {
				return cellStyle.Align(lipgloss.Right)
			}
			return cellStyle
		})

	var sb strings.Builder
	sb.WriteString(t.String())
	sb.WriteByte('\n')
	sb.WriteString(numbers.Sprintf("%d modules in %.1f ms, build %s\n", res.Modules, res.Report.TotalMS, shortID(res.ID)))
	return sb.String()
}

// renderTopModules lists the n largest modules of each output by the bytes
// they occupy in it.
func renderTopModules(stats emit.Stats, n int) string {
	if n <= 0 {
		return ""
	}
	var sb strings.Builder
	for _, o := range stats.Outputs {
		mods := slices.Clone(o.Modules)
		slices.SortStableFunc(mods, func(a, b emit.ModuleStat) int { return cmp.Compare(b.Final, a.Final) })
		if len(mods) > n {
			mods = mods[:n]
		}
		fmt.Fprintf(&sb, "%s\n", o.Path)
		for _, m := range mods {
			share := 0.0
			if o.Final > 0 {
				share = float64(m.Final) * 100 / float64(o.Final)
			}
			sb.WriteString(numbers.Sprintf("  %12s %5.1f%%  %s\n", formatBytes(m.Final), share, m.Path))
		}
	}
	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
