// Package cli provides CLI output and HTTP client helpers for Tanya.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/tanya/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a -output flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteQueryResult writes a query result to w in the given format.
func WriteQueryResult(w io.Writer, res *models.QueryResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	if res.CorrectedQuery != "" {
		fmt.Fprintf(w, "\nQuery: %s\n", res.CorrectedQuery)
	}
	fmt.Fprintf(w, "Answered from %d document(s) in %dms\n\n", len(res.Documents), res.ElapsedMillis)
	fmt.Fprintln(w, res.Answer)
	return nil
}

// WriteFiles writes a folder listing to w in the given format.
func WriteFiles(w io.Writer, files []string, format OutputFormat) error {
	if files == nil {
		files = []string{}
	}
	if format == OutputJSON {
		return writeJSON(w, map[string][]string{"files": files})
	}
	if len(files) == 0 {
		fmt.Fprintln(w, "No PDF files.")
		return nil
	}
	for _, f := range files {
		fmt.Fprintln(w, f)
	}
	return nil
}

// WriteStoredFile writes the outcome of an upload.
func WriteStoredFile(w io.Writer, f *models.StoredFile, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, f)
	}
	fmt.Fprintf(w, "Uploaded %s to %s (%d bytes, %s)\n", f.Filename, f.Folder, f.Size, f.ContentType)
	return nil
}

// PrintQueryResult prints a query result to stdout in text format.
func PrintQueryResult(res *models.QueryResult) {
	_ = WriteQueryResult(os.Stdout, res, OutputText)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// JoinArgs joins positional args with spaces so multi-word queries work the same with or
// without shell quoting.
func JoinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
