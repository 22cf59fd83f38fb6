package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/overseer/internal/core/domain"
)

// AlertRepo archives escalations in PostgreSQL so alerts survive process
// restarts even when no external alerting channel is configured.
type AlertRepo struct {
	db *DB
}

// NewAlertRepo creates a new PostgreSQL alert repository.
func NewAlertRepo(db *DB) *AlertRepo {
	return &AlertRepo{db: db}
}

// Save archives an escalation.
func (r *AlertRepo) Save(ctx context.Context, esc *domain.Escalation) error {
	recordCtx, err := json.Marshal(esc.Record.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal escalation context: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO alerts (id, kind, severity, message, context, occurrence_count, occurred_at, escalated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		esc.ID,
		esc.Record.Kind,
		string(esc.Record.Severity),
		esc.Record.Message,
		recordCtx,
		esc.Count,
		esc.Record.OccurredAt,
		esc.EscalatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

// Recent returns the most recent archived escalations, newest first.
func (r *AlertRepo) Recent(ctx context.Context, limit int) ([]*domain.Escalation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, severity, message, context, occurrence_count, occurred_at, escalated_at
		FROM alerts
		ORDER BY escalated_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.Escalation
	for rows.Next() {
		var esc domain.Escalation
		var rawCtx []byte
		if err := rows.Scan(
			&esc.ID,
			&esc.Record.Kind,
			&esc.Record.Severity,
			&esc.Record.Message,
			&rawCtx,
			&esc.Count,
			&esc.Record.OccurredAt,
			&esc.EscalatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if len(rawCtx) > 0 {
			if err := json.Unmarshal(rawCtx, &esc.Record.Context); err != nil {
				return nil, fmt.Errorf("failed to unmarshal alert context: %w", err)
			}
		}
		esc.Record.ID = esc.ID
		alerts = append(alerts, &esc)
	}
	return alerts, rows.Err()
}
