package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across documents, videos, and projects
// using plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultDocument {
		docWhere := "d.fts @@ " + tsQuery
		if q.FilterProjectID != "" {
			docWhere += fmt.Sprintf(" AND v.project_id = $%d", argN)
			args = append(args, q.FilterProjectID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'document'::text AS type, d.id, v.title || ' / ' || d.kind AS title,
				ts_headline('english', d.content, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				d.video_id, v.project_id,
				ts_rank(d.fts, %s) AS rank
			FROM documents d
			JOIN videos v ON v.id = d.video_id
			WHERE %s`, tsQuery, tsQuery, docWhere))
	}

	if q.FilterType == "" || q.FilterType == ResultVideo {
		videoWhere := "v.fts @@ " + tsQuery
		if q.FilterProjectID != "" {
			videoWhere += fmt.Sprintf(" AND v.project_id = $%d", argN)
			args = append(args, q.FilterProjectID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'video'::text AS type, v.id, v.title,
				v.status AS snippet,
				''::text AS video_id, v.project_id,
				ts_rank(v.fts, %s) AS rank
			FROM videos v
			WHERE %s`, tsQuery, videoWhere))
	}

	if q.FilterType == "" || q.FilterType == ResultProject {
		projectWhere := "p.fts @@ " + tsQuery
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'project'::text AS type, p.id, p.name AS title,
				ts_headline('english', p.description, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				''::text AS video_id, p.id AS project_id,
				ts_rank(p.fts, %s) AS rank
			FROM projects p
			WHERE %s`, tsQuery, tsQuery, projectWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, video_id, project_id
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.VideoID, &r.ProjectID); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]DocumentRecord, []VideoRecord, []ProjectRecord, error) {
	docRows, err := p.db.QueryContext(ctx, `
		SELECT d.id, d.kind, d.content, d.video_id, v.title, v.project_id, d.version
		FROM documents d
		JOIN videos v ON v.id = d.video_id
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load documents: %w", err)
	}
	defer docRows.Close()

	documents := make([]DocumentRecord, 0)
	for docRows.Next() {
		var d DocumentRecord
		if err := docRows.Scan(&d.ID, &d.Kind, &d.Content, &d.VideoID, &d.VideoTitle, &d.ProjectID, &d.Version); err != nil {
			return nil, nil, nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, d)
	}
	if err := docRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate documents: %w", err)
	}

	videoRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, status, project_id
		FROM videos
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load videos: %w", err)
	}
	defer videoRows.Close()

	videos := make([]VideoRecord, 0)
	for videoRows.Next() {
		var v VideoRecord
		if err := videoRows.Scan(&v.ID, &v.Title, &v.Status, &v.ProjectID); err != nil {
			return nil, nil, nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := videoRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate videos: %w", err)
	}

	projectRows, err := p.db.QueryContext(ctx, `
		SELECT id, name, description
		FROM projects
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load projects: %w", err)
	}
	defer projectRows.Close()

	projects := make([]ProjectRecord, 0)
	for projectRows.Next() {
		var pr ProjectRecord
		if err := projectRows.Scan(&pr.ID, &pr.Name, &pr.Description); err != nil {
			return nil, nil, nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, pr)
	}
	if err := projectRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate projects: %w", err)
	}

	return documents, videos, projects, nil
}
