// Package output renders tab-separated response payloads from the
// coordinator (VIEW, LIST, INFO) as aligned tables on the client TTY.
// Grounded on the teacher's internal/cli/output/table.go tablewriter
// wrapper; adapted to parse the wire protocol's plain tab-separated rows
// instead of rendering structs that implement a Headers()/Rows() interface.
package output

import (
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// PrintRows renders tab-separated data (one row per line, fields split on
// '\t') as an aligned table under the given headers. Used for VIEW and LIST,
// whose wire payloads are exactly this shape (see handlers.go's
// handleView/handleList on the coordinator).
func PrintRows(w io.Writer, headers []string, data string) {
	data = strings.TrimRight(data, "\n")
	if data == "" {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, line := range strings.Split(data, "\n") {
		if line == "" {
			continue
		}
		table.Append(strings.Split(line, "\t"))
	}
	table.Render()
}

// PrintMetaFile renders INFO's key=value .meta-format payload as a
// two-column key/value table.
func PrintMetaFile(w io.Writer, data string) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator(":")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, line := range strings.Split(strings.TrimRight(data, "\n"), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		table.Append([]string{key, value})
	}
	table.Render()
}
