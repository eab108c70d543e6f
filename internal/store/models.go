package store

import "time"

type User struct {
	ID                    string
	DisplayName           string
	Email                 string
	PasswordHash          string
	Role                  string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	DeactivatedAt         *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Workspace struct {
	ID        string
	Name      string
	Slug      string
	Settings  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Project is a channel or series inside a workspace. Videos live in projects.
type Project struct {
	ID          string
	WorkspaceID string
	Name        string
	Slug        string
	Description string
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Video struct {
	ID          string
	ProjectID   string
	Title       string
	Status      string
	PublishDate *time.Time
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Document is one editable text unit attached to a video. Each video holds at
// most one document per kind. Version starts at 1 and only moves forward.
type Document struct {
	ID        string
	VideoID   string
	Kind      string
	Content   string
	Version   int
	UpdatedBy string
	UpdatedAt time.Time
	CreatedAt time.Time
}

// DocumentMeta is a Document without its content blob, for listings.
type DocumentMeta struct {
	ID        string
	VideoID   string
	Kind      string
	Version   int
	UpdatedBy string
	UpdatedAt time.Time
}

// Revision is one immutable snapshot in a document's history. Revision N holds
// the exact content the document had while at version N.
type Revision struct {
	ID         string
	DocumentID string
	Version    int
	Content    string
	CreatedBy  string
	CreatedAt  time.Time
}

// RevisionMeta is a history listing row: everything but the full snapshot,
// plus a bounded preview cut server-side so listings never load blobs.
type RevisionMeta struct {
	ID             string
	DocumentID     string
	Version        int
	ContentPreview string
	CreatedBy      string
	CreatedAt      time.Time
}

// AuditEvent records one accepted save or restore. Rows are append-only and
// guarded against UPDATE/DELETE by database triggers.
type AuditEvent struct {
	ID         int64
	DocumentID string
	Action     string
	ActorID    string
	ActorName  string
	OldVersion int
	NewVersion int
	CreatedAt  time.Time
}

const (
	AuditActionSave    = "save"
	AuditActionRestore = "restore"
)

// DocumentKinds are the fixed kinds a video's documents may take.
var DocumentKinds = []string{"script", "description", "notes", "thumbnail_ideas"}

func ValidDocumentKind(kind string) bool {
	for _, k := range DocumentKinds {
		if k == kind {
			return true
		}
	}
	return false
}
