package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"slate/api/internal/util"
)

// ErrAlreadyExists is returned when creating a document for a (video, kind)
// pair that already has one.
var ErrAlreadyExists = errors.New("already exists")

// CreateDocument inserts a document at version 1 together with revision 1 in
// one transaction, so history is never missing its first entry.
func (s *PostgresStore) CreateDocument(ctx context.Context, doc Document) (Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, fmt.Errorf("begin create document: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO documents (id, video_id, kind, content, version, updated_by)
		VALUES ($1, $2, $3, $4, 1, $5)
		RETURNING version, created_at, updated_at
	`, doc.ID, doc.VideoID, doc.Kind, doc.Content, doc.UpdatedBy).Scan(&doc.Version, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Document{}, ErrAlreadyExists
		}
		return Document{}, fmt.Errorf("insert document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO revisions (id, document_id, version, content, created_by)
		VALUES ($1, $2, 1, $3, $4)
	`, util.NewID("rev"), doc.ID, doc.Content, doc.UpdatedBy); err != nil {
		return Document{}, fmt.Errorf("insert first revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Document{}, fmt.Errorf("commit create document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (Document, error) {
	var item Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, video_id, kind, content, version, updated_by, updated_at, created_at
		FROM documents
		WHERE id=$1
	`, documentID).Scan(&item.ID, &item.VideoID, &item.Kind, &item.Content, &item.Version, &item.UpdatedBy, &item.UpdatedAt, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return item, nil
}

// ListDocumentsByVideo returns document metadata only. Content blobs stay in
// the database until a single document is read.
func (s *PostgresStore) ListDocumentsByVideo(ctx context.Context, videoID string) ([]DocumentMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, video_id, kind, version, updated_by, updated_at
		FROM documents
		WHERE video_id=$1
		ORDER BY kind ASC
	`, videoID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]DocumentMeta, 0)
	for rows.Next() {
		var item DocumentMeta
		if err := rows.Scan(&item.ID, &item.VideoID, &item.Kind, &item.Version, &item.UpdatedBy, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document meta: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return items, nil
}

// SaveDocument is the conditional save. The version check and the version
// increment are a single UPDATE, so two racing writers with the same expected
// version cannot both win regardless of interleaving. The revision snapshot
// for the new version commits in the same transaction.
func (s *PostgresStore) SaveDocument(ctx context.Context, documentID, content string, expectedVersion int, actorID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save document: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	newVersion, err := s.saveInTx(ctx, tx, documentID, content, expectedVersion, actorID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save document: %w", err)
	}
	return newVersion, nil
}

// RestoreDocument creates a new head version carrying an old revision's
// content. The revision read and the conditional save share one transaction;
// nothing between the target version and the old head is touched.
func (s *PostgresStore) RestoreDocument(ctx context.Context, documentID string, targetVersion, expectedVersion int, actorID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin restore document: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var content string
	err = tx.QueryRowContext(ctx, `
		SELECT content FROM revisions WHERE document_id=$1 AND version=$2
	`, documentID, targetVersion).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("load restore target: %w", err)
	}

	newVersion, err := s.saveInTx(ctx, tx, documentID, content, expectedVersion, actorID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit restore document: %w", err)
	}
	return newVersion, nil
}

func (s *PostgresStore) saveInTx(ctx context.Context, tx *sql.Tx, documentID, content string, expectedVersion int, actorID string) (int, error) {
	var newVersion int
	err := tx.QueryRowContext(ctx, `
		UPDATE documents
		SET content=$2, version=version+1, updated_by=$3, updated_at=NOW()
		WHERE id=$1 AND version=$4
		RETURNING version
	`, documentID, content, actorID, expectedVersion).Scan(&newVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, s.conflictOrNotFound(ctx, documentID, expectedVersion)
	}
	if err != nil {
		return 0, fmt.Errorf("conditional update: %w", err)
	}
	if newVersion != expectedVersion+1 {
		return 0, fmt.Errorf("revision sequence broken on document %s: version advanced %d -> %d", documentID, expectedVersion, newVersion)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO revisions (id, document_id, version, content, created_by)
		VALUES ($1, $2, $3, $4, $5)
	`, util.NewID("rev"), documentID, newVersion, content, actorID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("revision %d already recorded for document %s: %w", newVersion, documentID, err)
		}
		return 0, fmt.Errorf("append revision: %w", err)
	}
	return newVersion, nil
}

// conflictOrNotFound decides why a conditional update matched no rows. A
// missing document is NotFound; an existing one means the caller lost a race
// and gets the current state back.
func (s *PostgresStore) conflictOrNotFound(ctx context.Context, documentID string, expectedVersion int) error {
	var conflict VersionConflictError
	err := s.db.QueryRowContext(ctx, `
		SELECT version, LEFT(content, $2), updated_by, updated_at
		FROM documents
		WHERE id=$1
	`, documentID, PreviewLength).Scan(&conflict.CurrentVersion, &conflict.ContentPreview, &conflict.UpdatedBy, &conflict.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load conflict state: %w", err)
	}
	conflict.DocumentID = documentID
	conflict.ExpectedVersion = expectedVersion
	return &conflict
}

// ListRevisions returns history newest first. Previews are cut in SQL so the
// full snapshots never leave the database for a listing.
func (s *PostgresStore) ListRevisions(ctx context.Context, documentID string) ([]RevisionMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, version, LEFT(content, $2), created_by, created_at
		FROM revisions
		WHERE document_id=$1
		ORDER BY version DESC
	`, documentID, PreviewLength)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	items := make([]RevisionMeta, 0)
	for rows.Next() {
		var item RevisionMeta
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.Version, &item.ContentPreview, &item.CreatedBy, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision meta: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetRevision(ctx context.Context, documentID string, version int) (Revision, error) {
	var item Revision
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, version, content, created_by, created_at
		FROM revisions
		WHERE document_id=$1 AND version=$2
	`, documentID, version).Scan(&item.ID, &item.DocumentID, &item.Version, &item.Content, &item.CreatedBy, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, ErrNotFound
	}
	if err != nil {
		return Revision{}, fmt.Errorf("get revision: %w", err)
	}
	return item, nil
}
