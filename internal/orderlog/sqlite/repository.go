// Package sqlite реализация orderlog.Repository на modernc.org/sqlite (без CGO).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"storefront/internal/domain"
	"storefront/internal/orderlog"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_status_history (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id    TEXT NOT NULL,
    from_status TEXT NOT NULL,
    to_status   TEXT NOT NULL,
    actor       TEXT NOT NULL DEFAULT '',
    trace_id    TEXT NOT NULL DEFAULT '',
    span_id     TEXT NOT NULL DEFAULT '',
    changed_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, changed_at);
CREATE INDEX IF NOT EXISTS idx_order_status_history_trace ON order_status_history(trace_id);
`

// Repository журнал статусов в SQLite
type Repository struct {
	db *sql.DB
}

var _ orderlog.Repository = (*Repository)(nil)

// Open открывает (или создаёт) базу и применяет схему. WAL: читатели не блокируют писателя.
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// один писатель
	db.SetMaxOpenConns(1)

	if err := Migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

// Migrate идемпотентно применяет схему
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Save(ctx context.Context, e *orderlog.StatusChange) error {
	const q = `
		INSERT INTO order_status_history
			(order_id, from_status, to_status, actor, trace_id, span_id, changed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		e.OrderID,
		string(e.From),
		string(e.To),
		e.Actor,
		e.TraceID,
		e.SpanID,
		formatTime(e.ChangedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save status change for %q: %w", e.OrderID, err)
	}
	return nil
}

func (r *Repository) ListByOrder(ctx context.Context, orderID string) ([]orderlog.StatusChange, error) {
	const q = `
		SELECT order_id, from_status, to_status, actor, trace_id, span_id, changed_at
		FROM   order_status_history
		WHERE  order_id = ?
		ORDER  BY changed_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list history for %q: %w", orderID, err)
	}
	defer rows.Close()

	out := make([]orderlog.StatusChange, 0)
	for rows.Next() {
		var (
			e         orderlog.StatusChange
			from, to  string
			changedAt string
		)
		if err := rows.Scan(&e.OrderID, &from, &to, &e.Actor, &e.TraceID, &e.SpanID, &changedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan history row: %w", err)
		}
		e.From = domain.OrderStatus(from)
		e.To = domain.OrderStatus(to)
		if e.ChangedAt, err = parseTime(changedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
