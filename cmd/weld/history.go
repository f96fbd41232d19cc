package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"weld/internal/config"
	"weld/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [dir]",
	Short: "Show output sizes of recent builds",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 10, "number of builds to show")
	historyCmd.Flags().Int("prune", 0, "keep only the newest N builds")
	historyCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

type historyPayload struct {
	ID      string          `json:"id"`
	At      time.Time       `json:"at"`
	Status  string          `json:"status"`
	Modules int             `json:"modules"`
	Outputs []outputPayload `json:"outputs"`
}

type outputPayload struct {
	Path   string `json:"path"`
	Raw    int    `json:"raw"`
	Final  int    `json:"final"`
	Gzip   int    `json:"gzip"`
	Brotli int    `json:"brotli"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	prune, err := cmd.Flags().GetInt("prune")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	cfg, err := loadProjectConfig(cmd, dir, config.Overrides{})
	if err != nil {
		return reportConfigError(cmd, err)
	}
	if cfg.HistoryPath == "" {
		return errors.New("build history is not enabled; set [history] path in the weld config")
	}
	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if prune > 0 {
		n, err := store.Prune(ctx, prune)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "pruned %d builds\n", n)
	}
	builds, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if format == "json" {
		return renderHistoryJSON(cmd.OutOrStdout(), builds)
	}
	if len(builds) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no builds recorded yet")
		return nil
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderHistory(builds))
	return nil
}

// renderHistory lists builds newest first, one row per output, with the
// gzip delta against the next older build that produced the same output.
func renderHistory(builds []history.Build) string {
	rows := make([][]string, 0, len(builds))
	for i, b := range builds {
		for j, o := range b.Outputs {
			id, at, status := "", "", ""
			if j == 0 {
				id, at, status = shortID(b.ID), b.At.Local().Format(time.DateTime), b.Status
			}
			prev, ok := olderOutput(builds[i+1:], o.Path)
			rows = append(rows, []string{id, at, status, o.Path, formatBytes(o.Final), formatBytes(o.Gzip), formatDelta(o.Gzip, prev.Gzip, ok)})
		}
		if len(b.Outputs) == 0 {
			rows = append(rows, []string{shortID(b.ID), b.At.Local().Format(time.DateTime), b.Status, "", "", "", ""})
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("build", "time", "status", "output", "final", "gzip", "Δ gzip").
		Rows(rows...).
		StyleFunc(func(_, col int) lipgloss.Style {
			if col >= 4 {
				return cellStyle.Align(lipgloss.Right)
			}
			return cellStyle
		}).
		String()
}

func olderOutput(older []history.Build, path string) (history.Output, bool) {
	for _, b := range older {
		for _, o := range b.Outputs {
			if o.Path == path {
				return o, true
			}
		}
	}
	return history.Output{}, false
}

func renderHistoryJSON(out io.Writer, builds []history.Build) error {
	payload := make([]historyPayload, 0, len(builds))
	for _, b := range builds {
		p := historyPayload{ID: b.ID, At: b.At.UTC(), Status: b.Status, Modules: b.Modules, Outputs: []outputPayload{}}
		for _, o := range b.Outputs {
			p.Outputs = append(p.Outputs, outputPayload(o))
		}
		payload = append(payload, p)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
