package main

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/paveg/reprise/internal/pipeline"
)

// renderSummary formats the per-stage reports plus a total row as a table
// for the run command's output.
func renderSummary(reports []pipeline.StageReport, total time.Duration) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Stage", "Duration", "Train rows", "Test rows"})

	for _, r := range reports {
		tw.AppendRow(table.Row{
			r.Stage,
			r.Duration.Round(time.Millisecond).String(),
			strconv.Itoa(r.TrainRows),
			strconv.Itoa(r.TestRows),
		})
	}
	tw.AppendFooter(table.Row{"total", total.Round(time.Millisecond).String(), "", ""})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft, AlignFooter: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft, AlignFooter: text.AlignRight},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}
