package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/pdfoutline/internal/classify"
	"github.com/dgallion1/pdfoutline/internal/dataset"
	"github.com/dgallion1/pdfoutline/internal/pipeline"
)

var (
	// titleStyle for bold section headers
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	// dimStyle for muted metadata text
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// successStyle for success indicators
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	// errorStyle for error indicators
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	// boxStyle for summary boxes with rounded border
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)
)

// printRunReport renders one line per document followed by the run
// summary box.
func printRunReport(w io.Writer, rep *pipeline.Report) {
	for _, d := range rep.Docs {
		if d.Skipped {
			fmt.Fprintf(w, "%s %s  %s\n", errorStyle.Render("skip"), d.Doc, dimStyle.Render(d.Err))
			continue
		}
		detail := fmt.Sprintf("%d pages, %d blocks, %d labeled, %d roots",
			d.Pages, d.Blocks, d.LabeledRows, d.Roots)
		fmt.Fprintf(w, "%s %s  %s\n", successStyle.Render("ok  "), d.Doc, dimStyle.Render(detail))
	}

	lines := []string{
		titleStyle.Render("Run Complete"),
		fmt.Sprintf("%s %d extracted, %d skipped", dimStyle.Render("Documents:"), rep.Extracted(), rep.Skipped()),
		fmt.Sprintf("%s %d rows (%d labeled, %d pending)", dimStyle.Render("Corpus:"), rep.StoreRows, rep.LabeledRows, rep.PendingRows),
		modelLine(rep.Model),
		fmt.Sprintf("%s %.1fs", dimStyle.Render("Elapsed:"), rep.Duration.Seconds()),
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

func modelLine(m *pipeline.ModelInfo) string {
	if m == nil {
		return fmt.Sprintf("%s heuristic fallback, no trained model", dimStyle.Render("Model:"))
	}
	state := "reused"
	if m.TrainedNow {
		state = "trained"
	}
	return fmt.Sprintf("%s %s %s (%s), accuracy %.3f on %d held-out rows",
		dimStyle.Render("Model:"), m.Kind, state, m.ID, m.Accuracy, m.HoldoutRows)
}

// printModel renders the summary box for a freshly trained model.
func printModel(w io.Writer, m *classify.Model) {
	names := make([]string, len(m.Levels))
	for i, l := range m.Levels {
		names[i] = l.String()
	}
	lines := []string{
		titleStyle.Render("Model Trained"),
		fmt.Sprintf("%s %s", dimStyle.Render("ID:"), m.ID),
		fmt.Sprintf("%s %s", dimStyle.Render("Kind:"), m.Kind),
		fmt.Sprintf("%s %.3f on %d held-out of %d rows", dimStyle.Render("Accuracy:"), m.Accuracy, m.HoldoutRows, m.RowCount),
		fmt.Sprintf("%s %s", dimStyle.Render("Levels:"), strings.Join(names, ", ")),
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

// printPending lists the review queue in key order.
func printPending(w io.Writer, store *dataset.Store, limit int) {
	if store.Len() == 0 {
		fmt.Fprintln(w, dimStyle.Render("corpus is empty, run the pipeline first"))
		return
	}
	pending := store.Pending()
	if pending == 0 {
		fmt.Fprintln(w, successStyle.Render("corpus fully labeled"))
		return
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%d rows awaiting labels", pending)))
	shown := 0
	for row := range store.NeedingLabel() {
		if limit > 0 && shown >= limit {
			fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("... and %d more", pending-shown)))
			break
		}
		key := fmt.Sprintf("%s/%d p%d", row.Doc, row.Block, row.Page)
		fmt.Fprintf(w, "%s %s\n", dimStyle.Render(fmt.Sprintf("%-28s", key)), truncate(row.Text, 60))
		shown++
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
