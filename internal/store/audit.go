package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gav/internal/models"
)

const auditColumns = "id, occurred_at, COALESCE(request_id, ''), method, path, status, outcome, COALESCE(detail, '')"

// InsertAuditEvent writes one audit event row.
func (s *Store) InsertAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	if event == nil {
		return fmt.Errorf("audit event is required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO audit_events (id, occurred_at, request_id, method, path, status, outcome, detail)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		dbFormatTime(event.OccurredAt),
		nullIfEmpty(event.RequestID),
		event.Method,
		event.Path,
		event.Status,
		event.Outcome,
		nullIfEmpty(event.Detail),
	)
	return err
}

// ListAuditEvents lists the most recent audit events.
func (s *Store) ListAuditEvents(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+auditColumns+" FROM audit_events ORDER BY occurred_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.AuditEvent{}
	for rows.Next() {
		var event models.AuditEvent
		var occurredAt string
		if err := rows.Scan(
			&event.ID,
			&occurredAt,
			&event.RequestID,
			&event.Method,
			&event.Path,
			&event.Status,
			&event.Outcome,
			&event.Detail,
		); err != nil {
			return nil, err
		}
		event.OccurredAt, err = dbParseTime(occurredAt)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// PruneAuditEvents deletes events older than the cutoff and reports how
// many rows were removed.
func (s *Store) PruneAuditEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM audit_events WHERE occurred_at < ?", dbFormatTime(cutoff))
	if err != nil {
		return 0, err
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
