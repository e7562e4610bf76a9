package commands

import (
	"encoding/json"
	"io"
	"os"

	"bannerssb/lib/banner"

	"github.com/jedib0t/go-pretty/v6/table"
)

var stdout io.Writer = os.Stdout

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(stdout)
	return t
}

func printJSON(v any) error {
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}

func printCodeDescriptions(records []banner.CodeDescription) error {
	if jsonOutput {
		return printJSON(records)
	}
	t := NewTable()
	t.AppendHeader(table.Row{"Code", "Description"})
	for _, r := range records {
		t.AppendRow(table.Row{r.Code, r.Description})
	}
	t.AppendFooter(table.Row{"", len(records)})
	t.Render()
	return nil
}
