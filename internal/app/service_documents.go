package app

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"slate/api/internal/export"
	"slate/api/internal/search"
	"slate/api/internal/store"
	"slate/api/internal/util"
)

type SaveDocumentInput struct {
	Content         string `json:"content"`
	ExpectedVersion int    `json:"expectedVersion"`
}

type RestoreDocumentInput struct {
	TargetVersion   int `json:"targetVersion"`
	ExpectedVersion int `json:"expectedVersion"`
}

// CreateDocument creates a document of the given kind under a video. Content
// may be empty; the document still starts at version 1 with revision 1.
func (s *Service) CreateDocument(ctx context.Context, videoID, kind, content string, actor Session) (map[string]any, error) {
	kind = strings.TrimSpace(kind)
	if !store.ValidDocumentKind(kind) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "kind must be one of script, description, notes, thumbnail_ideas", nil)
	}
	video, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	created, err := s.store.CreateDocument(ctx, store.Document{
		ID:        util.NewID("doc"),
		VideoID:   video.ID,
		Kind:      kind,
		Content:   content,
		UpdatedBy: actor.UserName,
	})
	if err != nil {
		return nil, err
	}

	s.mirrorVersion(created.ID, created.Version, created.Content, actor.UserName)
	s.indexDocument(ctx, created)

	return documentPayload(created), nil
}

func (s *Service) GetDocument(ctx context.Context, documentID string) (map[string]any, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return documentPayload(doc), nil
}

func (s *Service) ListDocuments(ctx context.Context, videoID string) ([]map[string]any, error) {
	if _, err := s.store.GetVideo(ctx, videoID); err != nil {
		return nil, err
	}
	metas, err := s.store.ListDocumentsByVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(metas))
	for _, meta := range metas {
		items = append(items, map[string]any{
			"id":        meta.ID,
			"videoId":   meta.VideoID,
			"kind":      meta.Kind,
			"version":   meta.Version,
			"updatedBy": meta.UpdatedBy,
			"updatedAt": meta.UpdatedAt.Format(time.RFC3339),
		})
	}
	return items, nil
}

// SaveDocument runs the conditional save. A stale expectedVersion surfaces as
// a conflict carrying the current server state; the caller decides whether to
// reload or resubmit against the new version. The store never retries.
func (s *Service) SaveDocument(ctx context.Context, documentID string, input SaveDocumentInput, actor Session) (map[string]any, error) {
	if input.ExpectedVersion < 1 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "expectedVersion must be a positive integer", nil)
	}

	newVersion, err := s.store.SaveDocument(ctx, documentID, input.Content, input.ExpectedVersion, actor.UserID)
	if err != nil {
		return nil, err
	}

	s.recordAudit(documentID, store.AuditActionSave, actor, input.ExpectedVersion, newVersion)
	s.mirrorVersion(documentID, newVersion, input.Content, actor.UserName)
	s.reindexDocument(documentID)

	return map[string]any{
		"documentId": documentID,
		"version":    newVersion,
	}, nil
}

// RestoreDocument writes an old revision's content as a new head version. The
// target revision and everything after it stay in history untouched.
func (s *Service) RestoreDocument(ctx context.Context, documentID string, input RestoreDocumentInput, actor Session) (map[string]any, error) {
	if input.TargetVersion < 1 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "targetVersion must be a positive integer", nil)
	}
	if input.ExpectedVersion < 1 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "expectedVersion must be a positive integer", nil)
	}

	newVersion, err := s.store.RestoreDocument(ctx, documentID, input.TargetVersion, input.ExpectedVersion, actor.UserID)
	if err != nil {
		return nil, err
	}

	s.recordAudit(documentID, store.AuditActionRestore, actor, input.ExpectedVersion, newVersion)
	s.mirrorRestored(documentID, newVersion, actor.UserName)
	s.reindexDocument(documentID)

	return map[string]any{
		"documentId":      documentID,
		"version":         newVersion,
		"restoredVersion": input.TargetVersion,
	}, nil
}

func (s *Service) ListRevisions(ctx context.Context, documentID string) (map[string]any, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	revisions, err := s.store.ListRevisions(ctx, documentID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(revisions))
	for _, rev := range revisions {
		items = append(items, map[string]any{
			"version":        rev.Version,
			"contentPreview": rev.ContentPreview,
			"createdBy":      rev.CreatedBy,
			"createdAt":      rev.CreatedAt.Format(time.RFC3339),
		})
	}
	return map[string]any{
		"documentId": documentID,
		"items":      items,
	}, nil
}

func (s *Service) GetRevision(ctx context.Context, documentID string, version int) (map[string]any, error) {
	rev, err := s.store.GetRevision(ctx, documentID, version)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"documentId": rev.DocumentID,
		"version":    rev.Version,
		"content":    rev.Content,
		"createdBy":  rev.CreatedBy,
		"createdAt":  rev.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *Service) AuditTrail(ctx context.Context, documentID string, limit int) (map[string]any, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	events, err := s.store.ListAuditEvents(ctx, documentID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(events))
	for _, event := range events {
		items = append(items, map[string]any{
			"id":         event.ID,
			"action":     event.Action,
			"actorId":    event.ActorID,
			"actorName":  event.ActorName,
			"oldVersion": event.OldVersion,
			"newVersion": event.NewVersion,
			"createdAt":  event.CreatedAt.Format(time.RFC3339),
		})
	}
	return map[string]any{
		"documentId": documentID,
		"items":      items,
	}, nil
}

// ArchiveLog lists the git mirror history for a document.
func (s *Service) ArchiveLog(ctx context.Context, documentID string, limit int) (map[string]any, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	commits, err := s.archive.History(documentID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(commits))
	for _, commit := range commits {
		items = append(items, map[string]any{
			"hash":      commit.Hash,
			"message":   strings.TrimSpace(commit.Message),
			"author":    commit.Author,
			"createdAt": commit.CreatedAt.Format(time.RFC3339),
		})
	}
	return map[string]any{
		"documentId": documentID,
		"items":      items,
	}, nil
}

// ExportDocument renders a document (or one of its revisions) to PDF or DOCX.
func (s *Service) ExportDocument(ctx context.Context, documentID, format string, version int, includeHistory bool) (*export.Result, error) {
	var f export.Format
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "pdf", "":
		f = export.FormatPDF
	case "docx":
		f = export.FormatDOCX
	default:
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be pdf or docx", nil)
	}
	return s.export.Export(ctx, export.Request{
		DocumentID:     documentID,
		Version:        version,
		Format:         f,
		IncludeHistory: includeHistory,
	})
}

// recordAudit appends an audit row off the request path. The save already
// succeeded; an audit failure is logged, never surfaced.
func (s *Service) recordAudit(documentID, action string, actor Session, oldVersion, newVersion int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.store.InsertAuditEvent(ctx, store.AuditEvent{
			DocumentID: documentID,
			Action:     action,
			ActorID:    actor.UserID,
			ActorName:  actor.UserName,
			OldVersion: oldVersion,
			NewVersion: newVersion,
		})
		if err != nil {
			log.Printf("audit: record %s on %s: %v", action, documentID, err)
		}
	}()
}

// mirrorVersion commits an accepted version to the git mirror off the request
// path.
func (s *Service) mirrorVersion(documentID string, version int, content, author string) {
	if s.archive == nil {
		return
	}
	go func() {
		if _, err := s.archive.RecordVersion(documentID, version, content, author); err != nil {
			log.Printf("archive: mirror version %d of %s: %v", version, documentID, err)
		}
	}()
}

// mirrorRestored reads the new head back before committing, since restore does
// not carry the content through the service layer.
func (s *Service) mirrorRestored(documentID string, version int, author string) {
	if s.archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		doc, err := s.store.GetDocument(ctx, documentID)
		if err != nil {
			log.Printf("archive: load restored head of %s: %v", documentID, err)
			return
		}
		if _, err := s.archive.RecordVersion(documentID, version, doc.Content, author); err != nil {
			log.Printf("archive: mirror version %d of %s: %v", version, documentID, err)
		}
	}()
}

func (s *Service) indexDocument(ctx context.Context, doc store.Document) {
	video, err := s.store.GetVideo(ctx, doc.VideoID)
	if err != nil {
		log.Printf("search: load video for document %s: %v", doc.ID, err)
		return
	}
	s.search.IndexDocument(search.DocumentRecord{
		ID:         doc.ID,
		Kind:       doc.Kind,
		Content:    doc.Content,
		VideoID:    doc.VideoID,
		VideoTitle: video.Title,
		ProjectID:  video.ProjectID,
		Version:    doc.Version,
	})
}

// reindexDocument refreshes the search index from the stored head after a
// save or restore.
func (s *Service) reindexDocument(documentID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		doc, err := s.store.GetDocument(ctx, documentID)
		if err != nil {
			log.Printf("search: load document %s for reindex: %v", documentID, err)
			return
		}
		s.indexDocument(ctx, doc)
	}()
}

func documentPayload(doc store.Document) map[string]any {
	return map[string]any{
		"id":        doc.ID,
		"videoId":   doc.VideoID,
		"kind":      doc.Kind,
		"content":   doc.Content,
		"version":   doc.Version,
		"updatedBy": doc.UpdatedBy,
		"updatedAt": doc.UpdatedAt.Format(time.RFC3339),
		"createdAt": doc.CreatedAt.Format(time.RFC3339),
	}
}

// exportAdapter feeds the export renderer from the primary store.
type exportAdapter struct {
	store dataStore
}

func (a exportAdapter) GetDocument(ctx context.Context, id string) (export.DocumentInfo, error) {
	doc, err := a.store.GetDocument(ctx, id)
	if err != nil {
		return export.DocumentInfo{}, err
	}
	return export.DocumentInfo{
		ID:        doc.ID,
		VideoID:   doc.VideoID,
		Kind:      doc.Kind,
		Content:   doc.Content,
		Version:   doc.Version,
		UpdatedBy: doc.UpdatedBy,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (a exportAdapter) GetVideo(ctx context.Context, id string) (export.VideoInfo, error) {
	video, err := a.store.GetVideo(ctx, id)
	if err != nil {
		return export.VideoInfo{}, err
	}
	return export.VideoInfo{ID: video.ID, ProjectID: video.ProjectID, Title: video.Title}, nil
}

func (a exportAdapter) GetProject(ctx context.Context, id string) (export.ProjectInfo, error) {
	project, err := a.store.GetProject(ctx, id)
	if err != nil {
		return export.ProjectInfo{}, err
	}
	return export.ProjectInfo{ID: project.ID, Name: project.Name}, nil
}

func (a exportAdapter) GetRevisionContent(ctx context.Context, documentID string, version int) (string, error) {
	rev, err := a.store.GetRevision(ctx, documentID, version)
	if err != nil {
		return "", err
	}
	return rev.Content, nil
}

func (a exportAdapter) ListRevisions(ctx context.Context, documentID string) ([]export.RevisionInfo, error) {
	revisions, err := a.store.ListRevisions(ctx, documentID)
	if err != nil {
		return nil, err
	}
	items := make([]export.RevisionInfo, 0, len(revisions))
	for _, rev := range revisions {
		items = append(items, export.RevisionInfo{
			Version:   rev.Version,
			CreatedBy: rev.CreatedBy,
			CreatedAt: rev.CreatedAt,
			Preview:   rev.ContentPreview,
		})
	}
	return items, nil
}
