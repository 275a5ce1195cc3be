package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/wesnick/davctl/pkg/davctl"
)

// outputWriter handles formatted output (text or JSON)
type outputWriter struct {
	json    bool
	noColor bool
	verbose bool
	writer  io.Writer
}

func newOutputWriter(useJSON, noColor, verbose bool) *outputWriter {
	if noColor {
		color.NoColor = true
	}
	return &outputWriter{
		json:    useJSON,
		noColor: noColor,
		verbose: verbose,
		writer:  os.Stdout,
	}
}

// writeJSON outputs data as JSON
func (o *outputWriter) writeJSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// writeTable outputs tabular data
func (o *outputWriter) writeTable(headers []string, rows [][]string) error {
	w := tabwriter.NewWriter(o.writer, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	return w.Flush()
}

// writeMessage outputs a simple message
func (o *outputWriter) writeMessage(msg string) {
	fmt.Fprintln(o.writer, msg)
}

// writeSuccess outputs a green success line
func (o *outputWriter) writeSuccess(format string, args ...interface{}) {
	fmt.Fprintln(o.writer, color.GreenString("Success: "+fmt.Sprintf(format, args...)))
}

// writeError outputs an error message to stderr. Lookup misses get the
// short "Not found" form.
func (o *outputWriter) writeError(err error) {
	if errors.Is(err, davctl.ErrNotFound) {
		fmt.Fprintln(os.Stderr, color.YellowString("Not found: %v", err))
		return
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
}

// writeVerbose outputs a verbose message to stderr if verbose mode is enabled
func (o *outputWriter) writeVerbose(format string, args ...interface{}) {
	if o.verbose {
		fmt.Fprintf(os.Stderr, "VERBOSE: "+format+"\n", args...)
	}
}

// truncateString truncates a string to maxLen with ellipsis
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
