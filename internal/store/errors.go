package store

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a document, revision, or other row does not
// exist. Callers distinguish it from transient database failures.
var ErrNotFound = errors.New("not found")

// PreviewLength bounds every content preview the store hands out, both in
// conflict errors and in revision listings.
const PreviewLength = 200

// VersionConflictError is returned by conditional saves when the caller's
// expected version no longer matches the stored one. It carries everything a
// client needs to offer reload-and-discard or force-save without another
// round trip.
type VersionConflictError struct {
	DocumentID      string
	ExpectedVersion int
	CurrentVersion  int
	ContentPreview  string
	UpdatedBy       string
	UpdatedAt       time.Time
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on document %s: expected %d, current %d", e.DocumentID, e.ExpectedVersion, e.CurrentVersion)
}

// Preview truncates content to PreviewLength without splitting a rune.
func Preview(content string) string {
	if len(content) <= PreviewLength {
		return content
	}
	cut := PreviewLength
	for cut > 0 && content[cut]&0xC0 == 0x80 {
		cut--
	}
	return content[:cut]
}
