package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	formatTable = "table"
	formatJSON  = "json"

	dateLayout      = "2006-01-02 15:04:05"
	shortDateLayout = "01-02 15:04"
)

func addFormatFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVar(format, "format", formatTable, "Output format: table or json")
}

func checkFormat(format string) error {
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
	}
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	return t
}

func getTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// freeWidth is what is left for one flexible column once the fixed columns
// and the table borders have been laid out.
func freeWidth(numColumns int, fixed ...int) int {
	w := getTerminalWidth() - numColumns*3
	for _, f := range fixed {
		w -= f
	}
	if w < 15 {
		w = 15
	}
	return w
}

// maxWidth returns the display width of the widest value, clamped to
// [floor, 60].
func maxWidth(floor int, values ...string) int {
	w := floor
	for _, v := range values {
		if n := runewidth.StringWidth(v); n > w {
			w = n
		}
	}
	if w > 60 {
		w = 60
	}
	return w
}

// wrapString wraps s to lines of at most maxWidth display cells, counting
// multi-byte characters by their rendered width.
func wrapString(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return s
	}

	s = strings.TrimSpace(s)
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}

	var result strings.Builder
	var line strings.Builder
	width := 0
	for _, r := range s {
		cw := runewidth.RuneWidth(r)
		if width+cw > maxWidth && width > 0 {
			result.WriteString(line.String())
			result.WriteString("\n")
			line.Reset()
			width = 0
		}
		line.WriteRune(r)
		width += cw
	}
	result.WriteString(line.String())
	return result.String()
}

func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}

func mark(active bool) string {
	if active {
		return "*"
	}
	return ""
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
