package offline

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - pending_mutations with actor_id
const currentSchemaVersion = 1

// Queue is the durable FIFO behind the Buffer. It survives process restarts.
type Queue struct {
	db *sql.DB
}

// OpenQueue creates or opens the SQLite file at path.
//
// The database is configured with:
//   - WAL mode so the queue subcommand can read while the terminal writes
//   - FULL synchronous mode; an acknowledged enqueue must survive power loss
//   - 5-second busy timeout for lock contention
func OpenQueue(path string) (*Queue, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to queue: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		db.Close()
		return nil, fmt.Errorf("set user_version: %w", err)
	}

	return &Queue{db: db}, nil
}

// Close closes the database connection.
func (q *Queue) Close() error {
	if q.db == nil {
		return nil
	}
	return q.db.Close()
}

// Append stores m and returns its assigned sequence.
func (q *Queue) Append(ctx context.Context, m domain.PendingMutation) (int64, error) {
	actor := ""
	if m.ActorID != uuid.Nil {
		actor = m.ActorID.String()
	}
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO pending_mutations (order_id, target_status, expected_status, actor_id, enqueued_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		m.OrderID.String(),
		string(m.TargetStatus),
		string(m.ExpectedStatus),
		actor,
		m.EnqueuedAt.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("append mutation: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append mutation: %w", err)
	}
	return seq, nil
}

// List returns every queued mutation in sequence order.
func (q *Queue) List(ctx context.Context) ([]domain.PendingMutation, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT sequence, order_id, target_status, expected_status, actor_id, enqueued_at
		FROM pending_mutations
		ORDER BY sequence ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	mutations := []domain.PendingMutation{}
	for rows.Next() {
		var (
			m                       domain.PendingMutation
			orderID, target, expect string
			actor                   string
			enqueuedAt              int64
		)
		if err := rows.Scan(&m.Sequence, &orderID, &target, &expect, &actor, &enqueuedAt); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		if m.OrderID, err = uuid.Parse(orderID); err != nil {
			return nil, fmt.Errorf("mutation %d: order id: %w", m.Sequence, err)
		}
		if actor != "" {
			if m.ActorID, err = uuid.Parse(actor); err != nil {
				return nil, fmt.Errorf("mutation %d: actor id: %w", m.Sequence, err)
			}
		}
		m.TargetStatus = enum.OrderStatus(target)
		m.ExpectedStatus = enum.OrderStatus(expect)
		m.EnqueuedAt = time.Unix(0, enqueuedAt).UTC()
		mutations = append(mutations, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}
	return mutations, nil
}

// Delete removes the given sequences.
func (q *Queue) Delete(ctx context.Context, sequences ...int64) error {
	if len(sequences) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sequences)), ",")
	args := make([]any, len(sequences))
	for i, s := range sequences {
		args[i] = s
	}
	if _, err := q.db.ExecContext(ctx,
		"DELETE FROM pending_mutations WHERE sequence IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("delete mutations: %w", err)
	}
	return nil
}

// Len returns the number of queued mutations.
func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pending_mutations").Scan(&n); err != nil {
		return 0, fmt.Errorf("count mutations: %w", err)
	}
	return n, nil
}
