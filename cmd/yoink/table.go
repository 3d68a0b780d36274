package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable lays out headers and rows in a rounded-border table. Short
// rows are padded; aligns applies per column with left as the default.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	if len(headers) == 0 {
		return ""
	}

	writer := table.NewWriter()
	writer.SetStyle(table.StyleRounded)
	writer.AppendHeader(toRow(headers, len(headers)))
	for _, row := range rows {
		writer.AppendRow(toRow(row, len(headers)))
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		alignment := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			alignment = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       alignment,
			AlignHeader: text.AlignLeft,
		}
	}
	writer.SetColumnConfigs(configs)

	return writer.Render()
}

func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	return row
}
