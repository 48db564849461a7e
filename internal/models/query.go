package models

import (
	"errors"
	"strings"
)

// ErrMissingQueryFields is returned when a query request lacks year, semester, or query text.
var ErrMissingQueryFields = errors.New("year, semester, and query are required")

// ErrMissingFolderFields is returned when a listing or upload request lacks year or semester.
var ErrMissingFolderFields = errors.New("year and semester are required")

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Year     Identifier `json:"year"`
	Semester Identifier `json:"semester"`
	Query    string     `json:"query"`
}

// Folder returns the folder the query targets.
func (q *QueryRequest) Folder() Folder {
	return Folder{Year: q.Year, Semester: q.Semester}
}

// Validate ensures all fields are present and the folder is addressable.
func (q *QueryRequest) Validate() error {
	if q.Year == "" || q.Semester == "" || strings.TrimSpace(q.Query) == "" {
		return ErrMissingQueryFields
	}
	return q.Folder().Validate()
}

// FilesRequest is the body of POST /files.
type FilesRequest struct {
	Year     Identifier `json:"year"`
	Semester Identifier `json:"semester"`
}

// Folder returns the folder to list.
func (r *FilesRequest) Folder() Folder {
	return Folder{Year: r.Year, Semester: r.Semester}
}

// Validate ensures both identifiers are present and safe.
func (r *FilesRequest) Validate() error {
	if r.Year == "" || r.Semester == "" {
		return ErrMissingFolderFields
	}
	return r.Folder().Validate()
}
