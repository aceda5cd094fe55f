package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/venlock/credstore/internal/domain"
	"github.com/venlock/credstore/internal/repository"
)

// usageLogRepository implements repository.UsageLogRepository for SQLite.
type usageLogRepository struct {
	db *DB
}

// NewUsageLogRepository creates a new SQLite usage log repository.
func NewUsageLogRepository(db *DB) repository.UsageLogRepository {
	return &usageLogRepository{db: db}
}

// Append records one usage event.
func (r *usageLogRepository) Append(ctx context.Context, event *domain.UsageEvent) error {
	query := `
		INSERT INTO access_key_usage (key_id, endpoint, method, caller_addr, user_agent, status, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, query,
		event.KeyID,
		event.Endpoint,
		event.Method,
		nullIfEmpty(event.CallerAddr),
		nullIfEmpty(event.UserAgent),
		nullIfZero(event.Status),
		event.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append usage event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	event.ID = id

	return nil
}

// ListByKey returns up to limit events for a key, newest first.
func (r *usageLogRepository) ListByKey(ctx context.Context, keyID string, limit int) ([]*domain.UsageEvent, error) {
	query := `
		SELECT id, key_id, endpoint, method, caller_addr, user_agent, status, timestamp
		FROM access_key_usage
		WHERE key_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, keyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage events: %w", err)
	}
	defer rows.Close()

	var events []*domain.UsageEvent
	for rows.Next() {
		event := &domain.UsageEvent{}
		var callerAddr, userAgent sql.NullString
		var status sql.NullInt64
		var timestamp string

		err := rows.Scan(
			&event.ID,
			&event.KeyID,
			&event.Endpoint,
			&event.Method,
			&callerAddr,
			&userAgent,
			&status,
			&timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage event: %w", err)
		}

		if callerAddr.Valid {
			event.CallerAddr = callerAddr.String
		}
		if userAgent.Valid {
			event.UserAgent = userAgent.String
		}
		if status.Valid {
			event.Status = int(status.Int64)
		}
		event.Timestamp, err = time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage events: %w", err)
	}

	return events, nil
}

// nullIfEmpty converts an empty string to a SQL NULL.
func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullIfZero converts a zero status to a SQL NULL.
func nullIfZero(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

// Ensure usageLogRepository implements repository.UsageLogRepository.
var _ repository.UsageLogRepository = (*usageLogRepository)(nil)
