package models

import (
	"strings"
	"time"
)

// NoResultsMessage is returned when no document in the folder produced an answer.
const NoResultsMessage = "No relevant information found."

// DocumentResult is the answer produced for one PDF in a folder.
type DocumentResult struct {
	Filename string `json:"filename"`
	Answer   string `json:"answer"`
}

// Render formats the result the way it appears in the combined answer.
func (r DocumentResult) Render() string {
	return "Results from " + r.Filename + ":\n" + r.Answer
}

// QueryResult is the outcome of running a query over one folder.
type QueryResult struct {
	Answer         string           `json:"answer"`
	CorrectedQuery string           `json:"corrected_query,omitempty"`
	Documents      []DocumentResult `json:"documents"`
	Elapsed        time.Duration    `json:"-"`
	ElapsedMillis  int64            `json:"query_time_ms"`
}

// RenderAnswer joins per-document results with a blank line between them.
// It returns NoResultsMessage when results is empty.
func RenderAnswer(results []DocumentResult) string {
	if len(results) == 0 {
		return NoResultsMessage
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Render()
	}
	return strings.Join(parts, "\n\n")
}

// StoredFile describes a file written into a folder by an upload.
type StoredFile struct {
	Filename    string `json:"filename"`
	Folder      string `json:"folder"`
	Path        string `json:"-"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}
