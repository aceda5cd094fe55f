package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/venlock/credstore/internal/domain"
	"github.com/venlock/credstore/internal/repository"
)

// usageLogRepository implements repository.UsageLogRepository for PostgreSQL.
type usageLogRepository struct {
	db *DB
}

// NewUsageLogRepository creates a new PostgreSQL usage log repository.
func NewUsageLogRepository(db *DB) repository.UsageLogRepository {
	return &usageLogRepository{db: db}
}

// Append records one usage event.
func (r *usageLogRepository) Append(ctx context.Context, event *domain.UsageEvent) error {
	query := `
		INSERT INTO access_key_usage (key_id, endpoint, method, caller_addr, user_agent, status, timestamp)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, 0), $7)
		RETURNING id
	`

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	err := r.db.Pool.QueryRow(ctx, query,
		event.KeyID,
		event.Endpoint,
		event.Method,
		event.CallerAddr,
		event.UserAgent,
		event.Status,
		event.Timestamp,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to append usage event: %w", err)
	}

	return nil
}

// ListByKey returns up to limit events for a key, newest first.
func (r *usageLogRepository) ListByKey(ctx context.Context, keyID string, limit int) ([]*domain.UsageEvent, error) {
	query := `
		SELECT id, key_id, endpoint, method, COALESCE(caller_addr, ''), COALESCE(user_agent, ''), COALESCE(status, 0), timestamp
		FROM access_key_usage
		WHERE key_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, keyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage events: %w", err)
	}
	defer rows.Close()

	var events []*domain.UsageEvent
	for rows.Next() {
		event := &domain.UsageEvent{}
		err := rows.Scan(
			&event.ID,
			&event.KeyID,
			&event.Endpoint,
			&event.Method,
			&event.CallerAddr,
			&event.UserAgent,
			&event.Status,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage events: %w", err)
	}

	return events, nil
}

// Ensure usageLogRepository implements repository.UsageLogRepository.
var _ repository.UsageLogRepository = (*usageLogRepository)(nil)
