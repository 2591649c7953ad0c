/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package tools

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
)

// ShowTable prints a table to stdout.
func ShowTable(header []string, data [][]string) {
	WriteTable(os.Stdout, header, data)
}

// WriteTable renders a bordered table with the given header to w.
func WriteTable(w io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)

	for _, v := range data {
		table.Append(v)
	}

	fmt.Fprintln(w)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.Render()
	fmt.Fprintln(w)
}

// ShowKeyValues prints two-column rows without a header, used for the
// detail views of a single record.
func ShowKeyValues(w io.Writer, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
}
