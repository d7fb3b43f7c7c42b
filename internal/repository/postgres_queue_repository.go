package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/basepark/smartpark/internal/domain"
	"github.com/basepark/smartpark/pkg/telemetry"
)

// PostgresQueueRepository implements QueueRepository using PostgreSQL with
// pgxpool
type PostgresQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresQueueRepository creates a new PostgresQueueRepository
func NewPostgresQueueRepository(pool *pgxpool.Pool) *PostgresQueueRepository {
	return &PostgresQueueRepository{pool: pool}
}

const queueColumns = `id, plate_number, name, contact, joined_at, notified, notified_at`

// Enqueue appends an entry and fills in the generated ID
func (r *PostgresQueueRepository) Enqueue(ctx context.Context, entry *domain.QueueEntry) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.enqueue")
	defer span.End()

	span.SetAttributes(attribute.String("plate", entry.PlateNumber))

	query := `
		INSERT INTO waiting_queue (plate_number, name, contact, joined_at, notified)
		VALUES ($1, $2, $3, $4, false)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		entry.PlateNumber,
		entry.Name,
		entry.Contact,
		entry.Timestamp,
	).Scan(&entry.ID)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to enqueue: %w", err)
	}

	span.SetAttributes(attribute.Int64("entry_id", entry.ID))
	span.SetStatus(codes.Ok, "")
	return nil
}

// List retrieves every entry in FIFO order
func (r *PostgresQueueRepository) List(ctx context.Context) ([]*domain.QueueEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.list")
	defer span.End()

	query := `SELECT ` + queueColumns + ` FROM waiting_queue ORDER BY joined_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	defer rows.Close()

	var entries []*domain.QueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating queue: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(entries)))
	span.SetStatus(codes.Ok, "")
	return entries, nil
}

// PendingCount returns the number of entries not yet notified
func (r *PostgresQueueRepository) PendingCount(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.pending_count")
	defer span.End()

	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM waiting_queue WHERE notified = false`).Scan(&count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}

	span.SetAttributes(attribute.Int("count", count))
	span.SetStatus(codes.Ok, "")
	return count, nil
}

// DequeueNext claims the oldest un-notified entry with SKIP LOCKED so that
// concurrent sweepers never hand the same entry to two callers. Returns
// nil, nil when the queue is empty.
func (r *PostgresQueueRepository) DequeueNext(ctx context.Context) (*domain.QueueEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.dequeue_next")
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	entry, err := scanQueueEntryRow(tx.QueryRow(ctx, `
		SELECT `+queueColumns+`
		FROM waiting_queue
		WHERE notified = false
		ORDER BY joined_at ASC, id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "empty")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to select queue head: %w", err)
	}

	now := time.Now()
	_, err = tx.Exec(ctx, `
		UPDATE waiting_queue SET notified = true, notified_at = $2 WHERE id = $1
	`, entry.ID, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to mark entry notified: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to commit dequeue: %w", err)
	}

	entry.Notified = true
	entry.NotifiedAt = &now

	span.SetAttributes(
		attribute.Int64("entry_id", entry.ID),
		attribute.String("plate", entry.PlateNumber),
	)
	span.SetStatus(codes.Ok, "")
	return entry, nil
}

// Clear removes every entry
func (r *PostgresQueueRepository) Clear(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.clear")
	defer span.End()

	result, err := r.pool.Exec(ctx, `DELETE FROM waiting_queue`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to clear queue: %w", err)
	}

	span.SetAttributes(attribute.Int64("count", result.RowsAffected()))
	span.SetStatus(codes.Ok, "")
	return nil
}

func scanQueueEntryRow(row pgx.Row) (*domain.QueueEntry, error) {
	return scanQueueEntryFrom(row)
}

func scanQueueEntry(rows pgx.Rows) (*domain.QueueEntry, error) {
	entry, err := scanQueueEntryFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan queue entry: %w", err)
	}
	return entry, nil
}

func scanQueueEntryFrom(src spotScanner) (*domain.QueueEntry, error) {
	entry := &domain.QueueEntry{}
	err := src.Scan(
		&entry.ID,
		&entry.PlateNumber,
		&entry.Name,
		&entry.Contact,
		&entry.Timestamp,
		&entry.Notified,
		&entry.NotifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Ensure PostgresQueueRepository implements QueueRepository
var _ QueueRepository = (*PostgresQueueRepository)(nil)
