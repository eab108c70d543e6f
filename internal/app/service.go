package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"slate/api/internal/archive"
	"slate/api/internal/assets"
	"slate/api/internal/auth"
	"slate/api/internal/authpw"
	"slate/api/internal/config"
	"slate/api/internal/email"
	"slate/api/internal/export"
	"slate/api/internal/rbac"
	"slate/api/internal/search"
	"slate/api/internal/session"
	"slate/api/internal/store"
	"slate/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	EnsureUserByName(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)

	GetDefaultWorkspace(context.Context) (store.Workspace, error)
	ListProjects(context.Context, string) ([]store.Project, error)
	GetProject(context.Context, string) (store.Project, error)
	InsertProject(context.Context, store.Project) error
	UpdateProject(context.Context, string, string, string) error
	DeleteProject(context.Context, string) error
	ProjectVideoCount(context.Context, string) (int, error)
	ListVideos(context.Context, string) ([]store.Video, error)
	GetVideo(context.Context, string) (store.Video, error)
	InsertVideo(context.Context, store.Video) error
	UpdateVideo(context.Context, string, string, string, *time.Time) error
	DeleteVideo(context.Context, string) error
	SummaryCounts(context.Context) (int, int, int, error)

	CreateDocument(context.Context, store.Document) (store.Document, error)
	GetDocument(context.Context, string) (store.Document, error)
	ListDocumentsByVideo(context.Context, string) ([]store.DocumentMeta, error)
	SaveDocument(context.Context, string, string, int, string) (int, error)
	RestoreDocument(context.Context, string, int, int, string) (int, error)
	ListRevisions(context.Context, string) ([]store.RevisionMeta, error)
	GetRevision(context.Context, string, int) (store.Revision, error)

	InsertAuditEvent(context.Context, store.AuditEvent) error
	ListAuditEvents(context.Context, string, int) ([]store.AuditEvent, error)

	Ping(ctx context.Context) error
}

// refreshStore is the subset of session handling that can live in Redis
// instead of Postgres.
type refreshStore interface {
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
}

type archiveService interface {
	RecordVersion(documentID string, version int, content, author string) (archive.Commit, error)
	History(documentID string, limit int) ([]archive.Commit, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions refreshStore
	archive  archiveService
	search   *search.Service
	export   *export.Service
	assets   *assets.Store
	authSvc  *authpw.Service
	emailSvc *email.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore, archiveService *archive.Service, searchService *search.Service) *Service {
	s := &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: dataStore,
		archive:  archiveService,
		search:   searchService,
		authSvc:  authpw.NewService(dataStore, cfg.JWTSecret),
		emailSvc: email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}),
	}
	s.export = export.NewService(exportAdapter{store: dataStore})
	return s
}

// NewWithSessionStore keeps refresh tokens in Redis instead of Postgres.
func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessions *session.RedisStore, archiveService *archive.Service, searchService *search.Service) *Service {
	s := New(cfg, dataStore, archiveService, searchService)
	s.sessions = sessions
	return s
}

// UseAssets attaches the thumbnail store. Without it, thumbnail routes report
// the feature as unavailable.
func (s *Service) UseAssets(store *assets.Store) {
	s.assets = store
}

// AuthPasswordService exposes the email/password auth flows to the HTTP layer.
func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authSvc
}

// SMTPConfigured reports whether outbound email is available. When it is not,
// signup and password reset responses carry dev tokens instead.
func (s *Service) SMTPConfigured() bool {
	return s.emailSvc != nil && s.emailSvc.IsConfigured()
}

// SendVerificationEmail delivers the signup verification link.
func (s *Service) SendVerificationEmail(to, userName, token string) error {
	url := fmt.Sprintf("%s/verify-email?token=%s", strings.TrimRight(s.cfg.PublicBaseURL, "/"), token)
	return s.emailSvc.SendVerificationEmail(to, userName, url)
}

// SendPasswordResetEmail delivers the password reset link.
func (s *Service) SendPasswordResetEmail(to, userName, token string) error {
	url := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.cfg.PublicBaseURL, "/"), token)
	return s.emailSvc.SendPasswordResetEmail(to, userName, url)
}

// Bootstrap seeds an empty database with a starter project so a fresh install
// has something to open. Safe to run on every start.
func (s *Service) Bootstrap(ctx context.Context) error {
	workspace, err := s.store.GetDefaultWorkspace(ctx)
	if err != nil {
		return err
	}
	projects, err := s.store.ListProjects(ctx, workspace.ID)
	if err != nil {
		return err
	}
	if len(projects) > 0 {
		return nil
	}

	owner, err := s.store.EnsureUserByName(ctx, "Avery")
	if err != nil {
		return err
	}

	project := store.Project{
		ID:          util.NewID("prj"),
		WorkspaceID: workspace.ID,
		Name:        "Main Channel",
		Slug:        "main-channel",
		Description: "Primary publishing schedule.",
	}
	if err := s.store.InsertProject(ctx, project); err != nil {
		return err
	}

	video := store.Video{
		ID:        util.NewID("vid"),
		ProjectID: project.ID,
		Title:     "How We Plan a Video",
		Status:    "scripting",
		CreatedBy: owner.DisplayName,
	}
	if err := s.store.InsertVideo(ctx, video); err != nil {
		return err
	}

	seeds := []struct {
		kind    string
		content string
	}{
		{"script", "# Cold open\n\nHook the viewer in the first ten seconds.\n\n## Main segment\n\nWalk through the planning board from idea to publish."},
		{"description", "A behind-the-scenes look at how we plan every video, from idea to publish day."},
		{"notes", "- B-roll of the planning board\n- Ask editor about chapter markers"},
		{"thumbnail_ideas", "Split frame: messy desk vs finished board. Big arrow, no text."},
	}
	for _, seed := range seeds {
		created, err := s.store.CreateDocument(ctx, store.Document{
			ID:        util.NewID("doc"),
			VideoID:   video.ID,
			Kind:      seed.kind,
			Content:   seed.content,
			UpdatedBy: owner.DisplayName,
		})
		if err != nil {
			return err
		}
		s.mirrorVersion(created.ID, created.Version, created.Content, owner.DisplayName)
	}

	s.search.ReindexAllFromPG(ctx)
	return nil
}

func (s *Service) Login(ctx context.Context, name string) (Session, error) {
	userName := strings.TrimSpace(name)
	if userName == "" {
		userName = "User"
	}

	user, err := s.store.EnsureUserByName(ctx, userName)
	if err != nil {
		return Session{}, err
	}

	return s.issueSession(ctx, user)
}

// CreateSession issues tokens for an already authenticated user, used by the
// password sign-in flow.
func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	// The session record may carry a stale name or role; re-read the user.
	if fresh, err := s.store.GetUserByID(ctx, user.ID); err == nil {
		user = fresh
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Role: user.Role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Workspace returns the overview payload: the workspace, its projects, and
// top-level counts.
func (s *Service) Workspace(ctx context.Context) (map[string]any, error) {
	workspace, err := s.store.GetDefaultWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := s.store.ListProjects(ctx, workspace.ID)
	if err != nil {
		return nil, err
	}
	projectCount, videoCount, documentCount, err := s.store.SummaryCounts(ctx)
	if err != nil {
		return nil, err
	}

	projectItems := make([]map[string]any, 0, len(projects))
	for _, project := range projects {
		projectItems = append(projectItems, projectPayload(project))
	}

	return map[string]any{
		"workspace": map[string]any{
			"id":   workspace.ID,
			"name": workspace.Name,
			"slug": workspace.Slug,
		},
		"projects": projectItems,
		"counts": map[string]any{
			"projects":  projectCount,
			"videos":    videoCount,
			"documents": documentCount,
		},
	}, nil
}

// Search runs a full-text query across documents, videos, and projects.
func (s *Service) Search(ctx context.Context, text, filterType, projectID string, limit, offset int) (search.Response, error) {
	var rtyp search.ResultType
	switch strings.ToLower(strings.TrimSpace(filterType)) {
	case "":
		rtyp = ""
	case "document":
		rtyp = search.ResultDocument
	case "video":
		rtyp = search.ResultVideo
	case "project":
		rtyp = search.ResultProject
	default:
		return search.Response{}, domainError(422, "VALIDATION_ERROR", "type must be document, video, or project", nil)
	}
	return s.search.Search(search.Query{
		Text:            text,
		FilterType:      rtyp,
		FilterProjectID: projectID,
		Limit:           limit,
		Offset:          offset,
	}), nil
}

func nilIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
