// Package export renders documents to PDF and DOCX.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Request contains parameters for an export operation
type Request struct {
	DocumentID     string
	Version        int // 0 = current head, otherwise an existing revision number
	Format         Format
	IncludeHistory bool
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// DocumentInfo holds document data needed for export
type DocumentInfo struct {
	ID        string
	VideoID   string
	Kind      string
	Content   string
	Version   int
	UpdatedBy string
	UpdatedAt time.Time
}

// VideoInfo holds video metadata
type VideoInfo struct {
	ID        string
	ProjectID string
	Title     string
}

// ProjectInfo holds project metadata
type ProjectInfo struct {
	ID   string
	Name string
}

// RevisionInfo holds one history row for the appendix
type RevisionInfo struct {
	Version   int
	CreatedBy string
	CreatedAt time.Time
	Preview   string
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
