package store

import (
	"context"
	"fmt"
)

// InsertAuditEvent appends one row to the audit trail. The table carries
// triggers that reject UPDATE and DELETE, so a row written here is permanent.
func (s *PostgresStore) InsertAuditEvent(ctx context.Context, event AuditEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (document_id, action, actor_id, actor_name, old_version, new_version)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.DocumentID, event.Action, event.ActorID, event.ActorName, event.OldVersion, event.NewVersion)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAuditEvents(ctx context.Context, documentID string, limit int) ([]AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, action, actor_id, actor_name, old_version, new_version, created_at
		FROM audit_events
		WHERE document_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	items := make([]AuditEvent, 0)
	for rows.Next() {
		var item AuditEvent
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.Action, &item.ActorID, &item.ActorName, &item.OldVersion, &item.NewVersion, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return items, nil
}
