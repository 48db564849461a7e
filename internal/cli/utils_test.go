package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/hyperjump/tanya/internal/models"
)

func sampleResult() *models.QueryResult {
	docs := []models.DocumentResult{
		{Filename: "graphs.pdf", Answer: "vertices and edges"},
		{Filename: "trees.pdf", Answer: "a connected acyclic graph"},
	}
	return &models.QueryResult{
		Answer:         models.RenderAnswer(docs),
		CorrectedQuery: "what is a graph",
		Documents:      docs,
		ElapsedMillis:  42,
	}
}

func TestWriteQueryResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQueryResult(&buf, sampleResult(), OutputJSON); err != nil {
		t.Fatalf("WriteQueryResult(json): %v", err)
	}
	var decoded models.QueryResult
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.ElapsedMillis != 42 || len(decoded.Documents) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Documents[1].Filename != "trees.pdf" {
		t.Errorf("document order changed: %+v", decoded.Documents)
	}
}

func TestWriteQueryResult_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQueryResult(&buf, sampleResult(), OutputText); err != nil {
		t.Fatalf("WriteQueryResult(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{
		"Query: what is a graph",
		"2 document(s) in 42ms",
		"Results from graphs.pdf:\nvertices and edges",
		"Results from trees.pdf:",
	} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteQueryResult_noResults(t *testing.T) {
	res := &models.QueryResult{Answer: models.RenderAnswer(nil)}
	var buf bytes.Buffer
	if err := WriteQueryResult(&buf, res, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), models.NoResultsMessage) {
		t.Errorf("expected %q in output:\n%s", models.NoResultsMessage, buf.String())
	}
}

func TestWriteFiles(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFiles(&buf, []string{"a.pdf", "b.pdf"}, OutputText); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "a.pdf\nb.pdf\n" {
		t.Errorf("text listing = %q", buf.String())
	}

	buf.Reset()
	if err := WriteFiles(&buf, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(strings.Fields(buf.String()), ""); got != `{"files":[]}` {
		t.Errorf("empty JSON listing = %q", got)
	}

	buf.Reset()
	_ = WriteFiles(&buf, nil, OutputText)
	if !strings.Contains(buf.String(), "No PDF files") {
		t.Errorf("empty text listing = %q", buf.String())
	}
}

func TestWriteStoredFile(t *testing.T) {
	f := &models.StoredFile{Filename: "a.pdf", Folder: "Year_1/Semester_2", Size: 10, ContentType: "application/pdf"}
	var buf bytes.Buffer
	if err := WriteStoredFile(&buf, f, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Uploaded a.pdf to Year_1/Semester_2 (10 bytes") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"text", OutputText, false},
		{"json", OutputJSON, false},
		{"compact", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"empty", "", 5, ""},
		{"short", "hi", 5, "hi"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"maxLen zero", "ab", 0, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.s, tt.maxLen); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestJoinArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"single word", []string{"graph"}, "graph"},
		{"multiple words", []string{"what", "is", "a", "graph"}, "what is a graph"},
		{"quoted phrase", []string{"what is a graph"}, "what is a graph"},
		{"empty", []string{}, ""},
		{"blank", []string{"  ", " "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinArgs(tt.args); got != tt.want {
				t.Errorf("JoinArgs(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestPrintQueryResult(t *testing.T) {
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() {
		os.Stdout = oldStdout
		_ = w.Close()
	}()
	PrintQueryResult(sampleResult())
	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	if !strings.Contains(buf.String(), "vertices and edges") {
		t.Errorf("PrintQueryResult should write to stdout; got %q", buf.String())
	}
}
