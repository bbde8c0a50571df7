package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-touchnode/internal/event"
)

// Page size bounds for List.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Filter controls which events List returns.
type Filter struct {
	Kind      event.Kind // optional
	Component string     // optional: sensor, publisher, actuator, monitor, node
	Since     time.Time  // optional: only events at or after this time
	Limit     int        // default 50, max 500
	Offset    int
}

// ListResult contains one page of events, most recent first.
type ListResult struct {
	Events []event.Event `json:"events"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// Repository stores journal events.
type Repository interface {
	Append(ctx context.Context, e *event.Event) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// SQLiteRepository stores events in the events table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a journal repository on an open database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append inserts e and sets its ID. A zero Time is stamped with now.
func (r *SQLiteRepository) Append(ctx context.Context, e *event.Event) error {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	var value any
	if e.Value != nil {
		value = boolToInt(*e.Value)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (node_id, kind, component, topic, value, detail, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.NodeID, string(e.Kind), e.Component, e.Topic, value, e.Detail, e.Time.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading event id: %w", err)
	}
	e.ID = id
	return nil
}

// List returns events matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	filter = clampFilter(filter)

	var conditions []string
	var args []any

	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Component != "" {
		conditions = append(conditions, "component = ?")
		args = append(args, filter.Component)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, filter.Since.UnixNano())
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM events " + where //nolint:gosec // WHERE built from parameterised conditions
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting events: %w", err)
	}

	query := "SELECT id, node_id, kind, component, topic, value, detail, occurred_at FROM events " + //nolint:gosec // WHERE built from parameterised conditions
		where + " ORDER BY occurred_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	events := []event.Event{}
	for rows.Next() {
		var e event.Event
		var kind string
		var value sql.NullInt64
		var occurredAt int64

		if err := rows.Scan(&e.ID, &e.NodeID, &kind, &e.Component, &e.Topic, &value, &e.Detail, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Kind = event.Kind(kind)
		if value.Valid {
			e.Value = event.Bool(value.Int64 != 0)
		}
		e.Time = time.Unix(0, occurredAt).UTC()

		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// Prune deletes events older than before and returns how many were removed.
func (r *SQLiteRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE occurred_at < ?", before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned events: %w", err)
	}
	return n, nil
}

func clampFilter(f Filter) Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
