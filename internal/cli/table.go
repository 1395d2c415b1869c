package cli

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const tablePadding = 2

func writeTable(out io.Writer, headers []string, rows [][]string) error {
	var buf bytes.Buffer
	writer := tabwriter.NewWriter(&buf, 0, 0, tablePadding, ' ', tabwriter.StripEscape)
	if len(headers) > 0 {
		fmt.Fprintln(writer, strings.Join(headers, "\t"))
	}
	for _, row := range rows {
		fmt.Fprintln(writer, strings.Join(row, "\t"))
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	// Style the header after alignment; ANSI sequences would skew widths.
	text := buf.String()
	if len(headers) > 0 {
		header, rest, _ := strings.Cut(text, "\n")
		text = styles().Header.Render(strings.TrimRight(header, " ")) + "\n" + rest
	}
	_, err := io.WriteString(out, text)
	return err
}

func formatYesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
