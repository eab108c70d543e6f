package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"slate/api/internal/search"
	"slate/api/internal/store"
	"slate/api/internal/util"
)

type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type VideoInput struct {
	Title       string  `json:"title"`
	Status      string  `json:"status"`
	PublishDate *string `json:"publishDate"`
}

var allowedVideoStatuses = map[string]struct{}{
	"idea":      {},
	"scripting": {},
	"filming":   {},
	"editing":   {},
	"published": {},
}

func (s *Service) ListProjects(ctx context.Context) ([]map[string]any, error) {
	workspace, err := s.store.GetDefaultWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := s.store.ListProjects(ctx, workspace.ID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(projects))
	for _, project := range projects {
		item := projectPayload(project)
		count, err := s.store.ProjectVideoCount(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		item["videoCount"] = count
		items = append(items, item)
	}
	return items, nil
}

func (s *Service) GetProject(ctx context.Context, projectID string) (map[string]any, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	videos, err := s.store.ListVideos(ctx, projectID)
	if err != nil {
		return nil, err
	}
	videoItems := make([]map[string]any, 0, len(videos))
	for _, video := range videos {
		videoItems = append(videoItems, videoPayload(video))
	}
	item := projectPayload(project)
	item["videos"] = videoItems
	return item, nil
}

func (s *Service) CreateProject(ctx context.Context, input ProjectInput) (map[string]any, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	workspace, err := s.store.GetDefaultWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	project := store.Project{
		ID:          util.NewID("prj"),
		WorkspaceID: workspace.ID,
		Name:        name,
		Slug:        slugify(name),
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.store.InsertProject(ctx, project); err != nil {
		return nil, err
	}
	s.search.IndexProject(search.ProjectRecord{ID: project.ID, Name: project.Name, Description: project.Description})
	return projectPayload(project), nil
}

func (s *Service) UpdateProject(ctx context.Context, projectID string, input ProjectInput) (map[string]any, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	name := firstNonBlank(input.Name, project.Name)
	description := strings.TrimSpace(input.Description)
	if err := s.store.UpdateProject(ctx, projectID, name, description); err != nil {
		return nil, err
	}
	s.search.IndexProject(search.ProjectRecord{ID: projectID, Name: name, Description: description})
	return s.GetProject(ctx, projectID)
}

// DeleteProject refuses to delete a project that still has videos, so nobody
// drops a season of work with one call.
func (s *Service) DeleteProject(ctx context.Context, projectID string) error {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return err
	}
	count, err := s.store.ProjectVideoCount(ctx, projectID)
	if err != nil {
		return err
	}
	if count > 0 {
		return domainError(http.StatusConflict, "PROJECT_NOT_EMPTY", "Project still contains videos", map[string]any{
			"videoCount": count,
		})
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	s.search.DeleteProject(projectID)
	return nil
}

func (s *Service) ListVideos(ctx context.Context, projectID string) ([]map[string]any, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	videos, err := s.store.ListVideos(ctx, projectID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(videos))
	for _, video := range videos {
		items = append(items, videoPayload(video))
	}
	return items, nil
}

func (s *Service) GetVideo(ctx context.Context, videoID string) (map[string]any, error) {
	video, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	documents, err := s.store.ListDocumentsByVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	docItems := make([]map[string]any, 0, len(documents))
	for _, meta := range documents {
		docItems = append(docItems, map[string]any{
			"id":        meta.ID,
			"kind":      meta.Kind,
			"version":   meta.Version,
			"updatedBy": meta.UpdatedBy,
			"updatedAt": meta.UpdatedAt.Format(time.RFC3339),
		})
	}
	item := videoPayload(video)
	item["documents"] = docItems
	return item, nil
}

func (s *Service) CreateVideo(ctx context.Context, projectID string, input VideoInput, actor Session) (map[string]any, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = "idea"
	}
	if _, ok := allowedVideoStatuses[status]; !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid video status", nil)
	}
	publishDate, err := parsePublishDate(input.PublishDate)
	if err != nil {
		return nil, err
	}

	video := store.Video{
		ID:          util.NewID("vid"),
		ProjectID:   projectID,
		Title:       title,
		Status:      status,
		PublishDate: publishDate,
		CreatedBy:   actor.UserName,
	}
	if err := s.store.InsertVideo(ctx, video); err != nil {
		return nil, err
	}
	s.search.IndexVideo(search.VideoRecord{ID: video.ID, Title: video.Title, Status: video.Status, ProjectID: projectID})
	return videoPayload(video), nil
}

func (s *Service) UpdateVideo(ctx context.Context, videoID string, input VideoInput) (map[string]any, error) {
	video, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	title := firstNonBlank(input.Title, video.Title)
	status := firstNonBlank(input.Status, video.Status)
	if _, ok := allowedVideoStatuses[status]; !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid video status", nil)
	}
	publishDate := video.PublishDate
	if input.PublishDate != nil {
		publishDate, err = parsePublishDate(input.PublishDate)
		if err != nil {
			return nil, err
		}
	}
	if err := s.store.UpdateVideo(ctx, videoID, title, status, publishDate); err != nil {
		return nil, err
	}
	s.search.IndexVideo(search.VideoRecord{ID: videoID, Title: title, Status: status, ProjectID: video.ProjectID})
	return s.GetVideo(ctx, videoID)
}

// DeleteVideo cascades to the video's documents, revisions, and audit rows.
func (s *Service) DeleteVideo(ctx context.Context, videoID string) error {
	if _, err := s.store.GetVideo(ctx, videoID); err != nil {
		return err
	}
	documents, err := s.store.ListDocumentsByVideo(ctx, videoID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteVideo(ctx, videoID); err != nil {
		return err
	}
	s.search.DeleteVideo(videoID)
	for _, meta := range documents {
		s.search.DeleteDocument(meta.ID)
	}
	if s.assets != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = s.assets.DeleteThumbnail(ctx, videoID)
		}()
	}
	return nil
}

func parsePublishDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(*raw))
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, strings.TrimSpace(*raw))
	}
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "publishDate must be YYYY-MM-DD or RFC 3339", nil)
	}
	return &parsed, nil
}

func projectPayload(project store.Project) map[string]any {
	return map[string]any{
		"id":          project.ID,
		"name":        project.Name,
		"slug":        project.Slug,
		"description": project.Description,
		"createdAt":   project.CreatedAt.Format(time.RFC3339),
		"updatedAt":   project.UpdatedAt.Format(time.RFC3339),
	}
}

func videoPayload(video store.Video) map[string]any {
	var publishDate any
	if video.PublishDate != nil {
		publishDate = video.PublishDate.Format("2006-01-02")
	}
	return map[string]any{
		"id":          video.ID,
		"projectId":   video.ProjectID,
		"title":       video.Title,
		"status":      video.Status,
		"publishDate": publishDate,
		"createdBy":   video.CreatedBy,
		"createdAt":   video.CreatedAt.Format(time.RFC3339),
		"updatedAt":   video.UpdatedAt.Format(time.RFC3339),
	}
}

func slugify(name string) string {
	slug := make([]rune, 0, len(name))
	lastDash := false
	for _, raw := range strings.ToLower(strings.TrimSpace(name)) {
		if (raw >= 'a' && raw <= 'z') || (raw >= '0' && raw <= '9') {
			slug = append(slug, raw)
			lastDash = false
			continue
		}
		if !lastDash {
			slug = append(slug, '-')
			lastDash = true
		}
	}
	text := strings.Trim(string(slug), "-")
	if text == "" {
		return "project"
	}
	return text
}
