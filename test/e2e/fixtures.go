// Package e2e provides end-to-end tests over a real library, PDF extractor, spelling
// dictionary, and HTTP server; this file builds the PDFs they upload.
package e2e

import (
	"bytes"
	"fmt"
	"strings"
)

// BuildPDF returns a minimal PDF with one page per entry in pages, each drawing its text in
// Helvetica. No pages yields a valid document with a zero page count.
func BuildPDF(pages []string) []byte {
	var objs []string
	kids := make([]string, len(pages))
	// 1: catalog, 2: pages, 3: font, then (page, content) pairs.
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)
	for i, text := range pages {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", escape(text))
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// CourseFile is a PDF placed in the test library.
type CourseFile struct {
	Name  string
	Pages []string
}

// GraphDefinition is the sentence the graphs course file answers from.
const GraphDefinition = "A graph is a set of vertices joined by edges"

// LongGraphSentence is longer than the summary threshold.
const LongGraphSentence = "Every graph studied in this course is finite and simple and undirected unless stated " +
	"otherwise and we will repeatedly use adjacency matrices and adjacency lists and degree " +
	"sequences to reason about connectivity and colouring and matchings and planarity throughout the semester"

// CourseFiles is the Year_1/Semester_2 fixture: one answerable file, one long answer, one
// file with no pages, and one with nothing relevant.
func CourseFiles() []CourseFile {
	return []CourseFile{
		{Name: "graphs.pdf", Pages: []string{GraphDefinition + ". Trees are graphs without cycles."}},
		{Name: "conventions.pdf", Pages: []string{"Introduction.", LongGraphSentence + "."}},
		{Name: "blank.pdf", Pages: nil},
		{Name: "history.pdf", Pages: []string{"Euler solved the bridges of Konigsberg in 1736."}},
	}
}
