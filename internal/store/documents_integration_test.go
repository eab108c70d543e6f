package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"slate/api/internal/util"
)

// getTestDatabaseURL returns the database URL for integration tests. It checks
// TEST_DATABASE_URL first, then falls back to standard Postgres environment
// variables with local development defaults.
func getTestDatabaseURL(t *testing.T) string {
	t.Helper()

	if url := getenv("TEST_DATABASE_URL", ""); url != "" {
		return url
	}

	host := getenv("POSTGRES_HOST", "localhost")
	port := getenv("POSTGRES_PORT", "5432")
	user := getenv("POSTGRES_USER", "slate")
	pass := getenv("POSTGRES_PASSWORD", "slate")
	dbname := getenv("POSTGRES_DB", "slate_test")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + dbname + "?sslmode=disable"
}

func getenv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// newTestStore opens the test database, applies migrations, and seeds a
// project and video. The project is removed afterwards; cascades clean up the
// video, its documents, and their revisions.
func newTestStore(t *testing.T) (*PostgresStore, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db, err := Open(ctx, getTestDatabaseURL(t))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	s := NewPostgresStore(db)

	workspace, err := s.GetDefaultWorkspace(ctx)
	if err != nil {
		t.Fatalf("get default workspace: %v", err)
	}

	project := Project{
		ID:          util.NewID("prj"),
		WorkspaceID: workspace.ID,
		Name:        "Test Project " + util.NewID(""),
		Slug:        "test-" + util.NewID(""),
	}
	if err := s.InsertProject(ctx, project); err != nil {
		t.Fatalf("insert project: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), `DELETE FROM videos WHERE project_id=$1`, project.ID)
		_, _ = db.ExecContext(context.Background(), `DELETE FROM projects WHERE id=$1`, project.ID)
	})

	video := Video{
		ID:        util.NewID("vid"),
		ProjectID: project.ID,
		Title:     "Test Video",
		Status:    "scripting",
		CreatedBy: "tester",
	}
	if err := s.InsertVideo(ctx, video); err != nil {
		t.Fatalf("insert video: %v", err)
	}

	return s, video.ID
}

func mustCreateDocument(t *testing.T, s *PostgresStore, videoID, kind, content string) Document {
	t.Helper()
	doc, err := s.CreateDocument(context.Background(), Document{
		ID:        util.NewID("doc"),
		VideoID:   videoID,
		Kind:      kind,
		Content:   content,
		UpdatedBy: "tester",
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}

func TestCreateDocumentStartsAtVersionOneWithFirstRevision(t *testing.T) {
	s, videoID := newTestStore(t)
	ctx := context.Background()

	doc := mustCreateDocument(t, s, videoID, "script", "Opening hook.")
	if doc.Version != 1 {
		t.Fatalf("expected version 1, got %d", doc.Version)
	}

	revisions, err := s.ListRevisions(ctx, doc.ID)
	if err != nil {
		t.Fatalf("list revisions: %v", err)
	}
	if len(revisions) != 1 {
		t.Fatalf("expected 1 revision, got %d", len(revisions))
	}
	if revisions[0].Version != 1 || revisions[0].ContentPreview != "Opening hook." {
		t.Fatalf("unexpected first revision: %+v", revisions[0])
	}
}

func TestCreateDocumentRejectsDuplicateKind(t *testing.T) {
	s, videoID := newTestStore(t)

	mustCreateDocument(t, s, videoID, "notes", "first")
	_, err := s.CreateDocument(context.Background(), Document{
		ID:      util.NewID("doc"),
		VideoID: videoID,
		Kind:    "notes",
		Content: "second",
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestSaveDocumentAdvancesVersionAndAppendsRevision(t *testing.T) {
	s, videoID := newTestStore(t)
	ctx := context.Background()

	doc := mustCreateDocument(t, s, videoID, "script", "v1 content")

	newVersion, err := s.SaveDocument(ctx, doc.ID, "v2 content", 1, "usr_a")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if newVersion != 2 {
		t.Fatalf("expected version 2, got %d", newVersion)
	}

	head, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if head.Version != 2 || head.Content != "v2 content" || head.UpdatedBy != "usr_a" {
		t.Fatalf("unexpected head after save: %+v", head)
	}

	revisions, err := s.ListRevisions(ctx, doc.ID)
	if err != nil {
		t.Fatalf("list revisions: %v", err)
	}
	if len(revisions) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(revisions))
	}
	// Newest first, versions contiguous.
	if revisions[0].Version != 2 || revisions[1].Version != 1 {
		t.Fatalf("unexpected revision ordering: %d, %d", revisions[0].Version, revisions[1].Version)
	}
}

func TestSaveDocumentStaleVersionReturnsConflict(t *testing.T) {
	s, videoID := newTestStore(t)
	ctx := context.Background()

	doc := mustCreateDocument(t, s, videoID, "script", "original")

	winning := strings.Repeat("x", 500)
	if _, err := s.SaveDocument(ctx, doc.ID, winning, 1, "usr_winner"); err != nil {
		t.Fatalf("first save: %v", err)
	}

	_, err := s.SaveDocument(ctx, doc.ID, "loser content", 1, "usr_loser")
	var conflict *VersionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected VersionConflictError, got %v", err)
	}
	if conflict.DocumentID != doc.ID {
		t.Fatalf("conflict document: got %s", conflict.DocumentID)
	}
	if conflict.ExpectedVersion != 1 || conflict.CurrentVersion != 2 {
		t.Fatalf("conflict versions: expected 1/2, got %d/%d", conflict.ExpectedVersion, conflict.CurrentVersion)
	}
	if conflict.UpdatedBy != "usr_winner" {
		t.Fatalf("conflict updatedBy: got %s", conflict.UpdatedBy)
	}
	if len(conflict.ContentPreview) != PreviewLength {
		t.Fatalf("conflict preview length: expected %d, got %d", PreviewLength, len(conflict.ContentPreview))
	}

	// The losing write must leave no trace.
	head, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if head.Version != 2 || head.Content != winning {
		t.Fatalf("losing save mutated the document: version %d", head.Version)
	}
	revisions, err := s.ListRevisions(ctx, doc.ID)
	if err != nil {
		t.Fatalf("list revisions: %v", err)
	}
	if len(revisions) != 2 {
		t.Fatalf("losing save appended a revision: %d revisions", len(revisions))
	}
}

func TestSaveDocumentUnknownDocumentReturnsNotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.SaveDocument(context.Background(), "doc_missing", "content", 1, "usr_a")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentSavesExactlyOneWinner(t *testing.T) {
	s, videoID := newTestStore(t)
	ctx := context.Background()

	doc := mustCreateDocument(t, s, videoID, "script", "base")

	const writers = 8
	results := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.SaveDocument(ctx, doc.ID, "candidate", 1, "usr_race")
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		default:
			var conflict *VersionConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("unexpected error from racing save: %v", err)
			}
			conflicts++
		}
	}
	if wins != 1 || conflicts != writers-1 {
		t.Fatalf("expected 1 winner and %d conflicts, got %d/%d", writers-1, wins, conflicts)
	}

	head, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if head.Version != 2 {
		t.Fatalf("expected head at version 2 after the race, got %d", head.Version)
	}
}

func TestRestoreDocumentCreatesNewHeadVersion(t *testing.T) {
	s, videoID := newTestStore(t)
	ctx := context.Background()

	doc := mustCreateDocument(t, s, videoID, "script", "v1 content")
	if _, err := s.SaveDocument(ctx, doc.ID, "v2 content", 1, "usr_a"); err != nil {
		t.Fatalf("save v2: %v", err)
	}
	if _, err := s.SaveDocument(ctx, doc.ID, "v3 content", 2, "usr_a"); err != nil {
		t.Fatalf("save v3: %v", err)
	}

	newVersion, err := s.RestoreDocument(ctx, doc.ID, 1, 3, "usr_b")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if newVersion != 4 {
		t.Fatalf("expected restore to create version 4, got %d", newVersion)
	}

	head, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if head.Content != "v1 content" {
		t.Fatalf("expected head to carry the restored content, got %q", head.Content)
	}

	// History is intact: v1 through v4 all present, nothing rewritten.
	revisions, err := s.ListRevisions(ctx, doc.ID)
	if err != nil {
		t.Fatalf("list revisions: %v", err)
	}
	if len(revisions) != 4 {
		t.Fatalf("expected 4 revisions, got %d", len(revisions))
	}
	for i, want := range []int{4, 3, 2, 1} {
		if revisions[i].Version != want {
			t.Fatalf("revision %d: expected version %d, got %d", i, want, revisions[i].Version)
		}
	}
	rev3, err := s.GetRevision(ctx, doc.ID, 3)
	if err != nil {
		t.Fatalf("get revision 3: %v", err)
	}
	if rev3.Content != "v3 content" {
		t.Fatalf("restore rewrote revision 3: %q", rev3.Content)
	}
}

func TestRestoreDocumentMissingTargetReturnsNotFound(t *testing.T) {
	s, videoID := newTestStore(t)

	doc := mustCreateDocument(t, s, videoID, "script", "only version")
	_, err := s.RestoreDocument(context.Background(), doc.ID, 7, 1, "usr_a")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing target revision, got %v", err)
	}
}

func TestRestoreDocumentStaleVersionReturnsConflict(t *testing.T) {
	s, videoID := newTestStore(t)
	ctx := context.Background()

	doc := mustCreateDocument(t, s, videoID, "script", "v1 content")
	if _, err := s.SaveDocument(ctx, doc.ID, "v2 content", 1, "usr_a"); err != nil {
		t.Fatalf("save v2: %v", err)
	}

	_, err := s.RestoreDocument(ctx, doc.ID, 1, 1, "usr_b")
	var conflict *VersionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected VersionConflictError, got %v", err)
	}
	if conflict.CurrentVersion != 2 {
		t.Fatalf("expected current version 2 in conflict, got %d", conflict.CurrentVersion)
	}
}

func TestRevisionsRejectUpdatesAtTheDatabase(t *testing.T) {
	s, videoID := newTestStore(t)
	ctx := context.Background()

	doc := mustCreateDocument(t, s, videoID, "script", "immutable")

	_, err := s.DB().ExecContext(ctx, `UPDATE revisions SET content='tampered' WHERE document_id=$1`, doc.ID)
	if err == nil {
		t.Fatal("expected UPDATE on revisions to be blocked")
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected PostgreSQL error, got: %v", err)
	}
	if pgErr.SQLState() != "55000" {
		t.Fatalf("expected SQLSTATE 55000, got %s", pgErr.SQLState())
	}
}

func TestAuditEventsRejectUpdateAndDelete(t *testing.T) {
	s, videoID := newTestStore(t)
	ctx := context.Background()

	doc := mustCreateDocument(t, s, videoID, "script", "audited")
	err := s.InsertAuditEvent(ctx, AuditEvent{
		DocumentID: doc.ID,
		Action:     AuditActionSave,
		ActorID:    "usr_a",
		ActorName:  "Tester",
		OldVersion: 1,
		NewVersion: 2,
	})
	if err != nil {
		t.Fatalf("insert audit event: %v", err)
	}

	var pgErr *pgconn.PgError
	_, err = s.DB().ExecContext(ctx, `UPDATE audit_events SET actor_name='tampered' WHERE document_id=$1`, doc.ID)
	if !errors.As(err, &pgErr) || pgErr.SQLState() != "55000" {
		t.Fatalf("expected SQLSTATE 55000 on UPDATE, got %v", err)
	}

	_, err = s.DB().ExecContext(ctx, `DELETE FROM audit_events WHERE document_id=$1`, doc.ID)
	if !errors.As(err, &pgErr) || pgErr.SQLState() != "55000" {
		t.Fatalf("expected SQLSTATE 55000 on DELETE, got %v", err)
	}

	events, err := s.ListAuditEvents(ctx, doc.ID, 10)
	if err != nil {
		t.Fatalf("list audit events: %v", err)
	}
	if len(events) != 1 || events[0].Action != AuditActionSave || events[0].NewVersion != 2 {
		t.Fatalf("unexpected audit trail: %+v", events)
	}
}
