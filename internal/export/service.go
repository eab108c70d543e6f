package export

import (
	"context"
	"fmt"
	"html/template"
	"strings"
)

// DataStore defines the data access the export service needs
type DataStore interface {
	GetDocument(ctx context.Context, id string) (DocumentInfo, error)
	GetVideo(ctx context.Context, id string) (VideoInfo, error)
	GetProject(ctx context.Context, id string) (ProjectInfo, error)
	GetRevisionContent(ctx context.Context, documentID string, version int) (string, error)
	ListRevisions(ctx context.Context, documentID string) ([]RevisionInfo, error)
}

// Service renders documents to downloadable files
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an export in the requested format. When req.Version is set,
// the content of that revision is exported instead of the current head; the
// history appendix always describes the full revision list.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	docInfo, err := s.store.GetDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	videoInfo, err := s.store.GetVideo(ctx, docInfo.VideoID)
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}

	projectInfo, err := s.store.GetProject(ctx, videoInfo.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	content := docInfo.Content
	version := docInfo.Version
	if req.Version > 0 && req.Version != docInfo.Version {
		content, err = s.store.GetRevisionContent(ctx, req.DocumentID, req.Version)
		if err != nil {
			return nil, fmt.Errorf("get revision %d: %w", req.Version, err)
		}
		version = req.Version
	}

	data := TemplateData{
		Title:       videoInfo.Title,
		Kind:        kindLabel(docInfo.Kind),
		Version:     version,
		ContentHTML: template.HTML(ContentToHTML(content)),
		Author:      docInfo.UpdatedBy,
		UpdatedAt:   docInfo.UpdatedAt,
		ProjectName: projectInfo.Name,
	}

	if req.IncludeHistory {
		revisions, err := s.store.ListRevisions(ctx, req.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("list revisions: %w", err)
		}
		for _, rev := range revisions {
			data.Revisions = append(data.Revisions, TemplateRevision{
				Version:   rev.Version,
				CreatedBy: rev.CreatedBy,
				CreatedAt: rev.CreatedAt,
				Preview:   rev.Preview,
			})
		}
	}

	html, err := RenderDocumentHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	title := fmt.Sprintf("%s %s v%d", videoInfo.Title, docInfo.Kind, version)
	switch req.Format {
	case FormatPDF:
		return exportPDF(html, title)
	case FormatDOCX:
		return exportDOCX(html, title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}

func kindLabel(kind string) string {
	switch kind {
	case "thumbnail_ideas":
		return "Thumbnail ideas"
	default:
		if kind == "" {
			return ""
		}
		return strings.ToUpper(kind[:1]) + kind[1:]
	}
}
