package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) EnsureUserByName(ctx context.Context, name string) (User, error) {
	const findUser = `SELECT id, display_name FROM users WHERE display_name = $1`
	var user User
	err := s.db.QueryRowContext(ctx, findUser, name).Scan(&user.ID, &user.DisplayName)
	if err == nil {
		role, roleErr := s.getRole(ctx, user.ID)
		if roleErr != nil {
			return User{}, roleErr
		}
		user.Role = role
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	insertUser := `
		INSERT INTO users (display_name, email)
		VALUES ($1, CONCAT(LOWER(REPLACE($1, ' ', '.')), '@local.slate.dev'))
		RETURNING id, display_name
	`
	if err := s.db.QueryRowContext(ctx, insertUser, name).Scan(&user.ID, &user.DisplayName); err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO workspace_memberships (user_id, role)
		VALUES ($1, 'editor')
		ON CONFLICT (user_id) DO NOTHING
	`, user.ID); err != nil {
		return User{}, fmt.Errorf("upsert membership: %w", err)
	}

	user.Role = "editor"
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `SELECT id, display_name FROM users WHERE id=$1`, userID).Scan(&user.ID, &user.DisplayName)
	if err != nil {
		return User{}, err
	}
	role, err := s.getRole(ctx, user.ID)
	if err != nil {
		return User{}, err
	}
	user.Role = role
	return user, nil
}

func (s *PostgresStore) getRole(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `SELECT role FROM workspace_memberships WHERE user_id=$1`, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "viewer", nil
	}
	if err != nil {
		return "", fmt.Errorf("read role: %w", err)
	}
	return role, nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.display_name, COALESCE(wm.role, 'viewer')
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		LEFT JOIN workspace_memberships wm ON wm.user_id = u.id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.DisplayName, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

func (s *PostgresStore) GetDefaultWorkspace(ctx context.Context) (Workspace, error) {
	var item Workspace
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, COALESCE(settings_json::text, '{}'), created_at, updated_at
		FROM workspaces
		LIMIT 1
	`).Scan(&item.ID, &item.Name, &item.Slug, &item.Settings, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Workspace{}, fmt.Errorf("get default workspace: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, workspaceID string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, slug, description, sort_order, created_at, updated_at
		FROM projects
		WHERE workspace_id=$1
		ORDER BY sort_order ASC, name ASC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items := make([]Project, 0)
	for rows.Next() {
		var item Project
		if err := rows.Scan(&item.ID, &item.WorkspaceID, &item.Name, &item.Slug, &item.Description, &item.SortOrder, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetProject(ctx context.Context, projectID string) (Project, error) {
	var item Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, slug, description, sort_order, created_at, updated_at
		FROM projects
		WHERE id=$1
	`, projectID).Scan(&item.ID, &item.WorkspaceID, &item.Name, &item.Slug, &item.Description, &item.SortOrder, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	if err != nil {
		return Project{}, fmt.Errorf("get project: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertProject(ctx context.Context, project Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, workspace_id, name, slug, description, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, project.ID, project.WorkspaceID, project.Name, project.Slug, project.Description, project.SortOrder)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateProject(ctx context.Context, projectID, name, description string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE projects SET name=$2, description=$3, updated_at=NOW()
		WHERE id=$1
	`, projectID, name, description)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteProject(ctx context.Context, projectID string) error {
	var videoCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos WHERE project_id=$1`, projectID).Scan(&videoCount); err != nil {
		return fmt.Errorf("count project videos: %w", err)
	}
	if videoCount > 0 {
		return fmt.Errorf("project contains %d videos", videoCount)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id=$1`, projectID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (s *PostgresStore) ProjectVideoCount(ctx context.Context, projectID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos WHERE project_id=$1`, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count project videos: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListVideos(ctx context.Context, projectID string) ([]Video, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, title, status, publish_date, created_by, created_at, updated_at
		FROM videos
		WHERE project_id=$1
		ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	items := make([]Video, 0)
	for rows.Next() {
		var item Video
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.Title, &item.Status, &item.PublishDate, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetVideo(ctx context.Context, videoID string) (Video, error) {
	var item Video
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, title, status, publish_date, created_by, created_at, updated_at
		FROM videos
		WHERE id=$1
	`, videoID).Scan(&item.ID, &item.ProjectID, &item.Title, &item.Status, &item.PublishDate, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Video{}, ErrNotFound
	}
	if err != nil {
		return Video{}, fmt.Errorf("get video: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertVideo(ctx context.Context, video Video) error {
	status := video.Status
	if status == "" {
		status = "idea"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO videos (id, project_id, title, status, publish_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, video.ID, video.ProjectID, video.Title, status, video.PublishDate, video.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateVideo(ctx context.Context, videoID, title, status string, publishDate *time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE videos
		SET title=$2, status=$3, publish_date=$4, updated_at=NOW()
		WHERE id=$1
	`, videoID, title, status, publishDate)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	return nil
}

// DeleteVideo removes the video and, through cascades, its documents,
// revisions, and audit rows.
func (s *PostgresStore) DeleteVideo(ctx context.Context, videoID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM videos WHERE id=$1`, videoID)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	return nil
}

func (s *PostgresStore) SummaryCounts(ctx context.Context) (projects int, videos int, documents int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&projects); err != nil {
		err = fmt.Errorf("count projects: %w", err)
		return
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&videos); err != nil {
		err = fmt.Errorf("count videos: %w", err)
		return
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&documents); err != nil {
		err = fmt.Errorf("count documents: %w", err)
		return
	}
	return
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
