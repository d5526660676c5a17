package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/mgpai22/trimcap/internal/silence"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// intervalRows lists keep intervals with their lengths, one row each.
func intervalRows(intervals []silence.Interval) [][]string {
	rows := make([][]string, 0, len(intervals))
	for i, iv := range intervals {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			seconds(iv.Start),
			seconds(iv.End),
			seconds(iv.Length()),
		})
	}
	return rows
}

func renderIntervals(intervals []silence.Interval) string {
	return renderTable(
		[]string{"#", "Start", "End", "Length"},
		intervalRows(intervals),
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
	)
}

func seconds(v float64) string {
	return fmt.Sprintf("%.3fs", v)
}
