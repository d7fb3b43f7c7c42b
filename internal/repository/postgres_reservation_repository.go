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

// PostgresReservationRepository implements ReservationRepository using
// PostgreSQL with pgxpool
type PostgresReservationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresReservationRepository creates a new PostgresReservationRepository
func NewPostgresReservationRepository(pool *pgxpool.Pool) *PostgresReservationRepository {
	return &PostgresReservationRepository{pool: pool}
}

const reservationColumns = `id, spot_id, plate_number, customer_name, start_time, end_time, duration_minutes, detection_time, status, created_at`

// Create inserts a reservation and fills in the generated ID
func (r *PostgresReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("spot_id", res.SpotID),
		attribute.String("plate", res.PlateNumber),
		attribute.String("status", res.Status.String()),
	)

	query := `
		INSERT INTO reservations (
			spot_id, plate_number, customer_name, start_time, end_time,
			duration_minutes, detection_time, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		res.SpotID,
		res.PlateNumber,
		res.CustomerName,
		res.StartTime,
		res.EndTime,
		res.DurationMinutes,
		res.DetectionTime,
		res.Status.String(),
		res.CreatedAt,
	).Scan(&res.ID)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	span.SetAttributes(attribute.Int64("reservation_id", res.ID))
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a reservation by its ID
func (r *PostgresReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.Int64("reservation_id", id))

	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	res, err := scanReservationFrom(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrReservationNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return res, nil
}

// List retrieves reservations filtered by status, newest first
func (r *PostgresReservationRepository) List(ctx context.Context, statuses []domain.ReservationStatus, limit, offset int) ([]*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.list")
	defer span.End()

	span.SetAttributes(
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	args := []any{}
	if len(statuses) > 0 {
		names := make([]string, 0, len(statuses))
		for _, s := range statuses {
			names = append(names, s.String())
		}
		query += ` WHERE status = ANY($1)`
		args = append(args, names)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	reservations, err := collectReservations(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(reservations)))
	span.SetStatus(codes.Ok, "")
	return reservations, nil
}

// FindPendingByPlate returns the oldest waiting_detection reservation for the
// plate, or nil when none exists. Plates are stored normalized, so the match
// is a plain equality.
func (r *PostgresReservationRepository) FindPendingByPlate(ctx context.Context, plate string) (*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.find_pending_by_plate")
	defer span.End()

	span.SetAttributes(attribute.String("plate", plate))

	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE plate_number = $1 AND status = 'waiting_detection'
		ORDER BY created_at ASC
		LIMIT 1
	`

	res, err := scanReservationFrom(r.pool.QueryRow(ctx, query, plate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "not found")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to find pending reservation: %w", err)
	}

	span.SetAttributes(attribute.Int64("reservation_id", res.ID))
	span.SetStatus(codes.Ok, "")
	return res, nil
}

// FindRunningByPlate returns the active or emergency reservation for the
// plate, or nil when none exists
func (r *PostgresReservationRepository) FindRunningByPlate(ctx context.Context, plate string) (*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.find_running_by_plate")
	defer span.End()

	span.SetAttributes(attribute.String("plate", plate))

	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE plate_number = $1 AND status IN ('active', 'emergency')
		ORDER BY created_at DESC
		LIMIT 1
	`

	res, err := scanReservationFrom(r.pool.QueryRow(ctx, query, plate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "not found")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to find running reservation: %w", err)
	}

	span.SetAttributes(attribute.Int64("reservation_id", res.ID))
	span.SetStatus(codes.Ok, "")
	return res, nil
}

// HasRunningForSpot reports whether the spot already carries a non-terminal
// reservation
func (r *PostgresReservationRepository) HasRunningForSpot(ctx context.Context, spotID string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.has_running_for_spot")
	defer span.End()

	span.SetAttributes(attribute.String("spot_id", spotID))

	query := `
		SELECT EXISTS(
			SELECT 1 FROM reservations
			WHERE spot_id = $1 AND status IN ('waiting_detection', 'active', 'emergency')
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, spotID).Scan(&exists); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to check spot reservations: %w", err)
	}

	span.SetAttributes(attribute.Bool("exists", exists))
	span.SetStatus(codes.Ok, "")
	return exists, nil
}

// Activate starts the clock on a waiting_detection reservation. The status
// guard makes exactly one concurrent caller win.
func (r *PostgresReservationRepository) Activate(ctx context.Context, id int64, start, end, detected time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.activate")
	defer span.End()

	span.SetAttributes(attribute.Int64("reservation_id", id))

	query := `
		UPDATE reservations SET
			status = 'active',
			start_time = $2,
			end_time = $3,
			detection_time = $4
		WHERE id = $1 AND status = 'waiting_detection'
	`

	result, err := r.pool.Exec(ctx, query, id, start, end, detected)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to activate reservation: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM reservations WHERE id = $1)", id).Scan(&exists)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to check reservation existence: %w", err)
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return domain.ErrReservationNotFound
		}
		span.SetStatus(codes.Error, "already activated")
		return domain.ErrConcurrencyConflict
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetExpired retrieves running reservations whose end time has passed
func (r *PostgresReservationRepository) GetExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.get_expired")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status IN ('active', 'emergency')
			AND end_time IS NOT NULL
			AND end_time <= $1
		ORDER BY end_time ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get expired reservations: %w", err)
	}
	defer rows.Close()

	reservations, err := collectReservations(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(reservations)))
	span.SetStatus(codes.Ok, "")
	return reservations, nil
}

// MarkExpired marks one running reservation as expired
func (r *PostgresReservationRepository) MarkExpired(ctx context.Context, id int64) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.mark_expired")
	defer span.End()

	span.SetAttributes(attribute.Int64("reservation_id", id))

	query := `
		UPDATE reservations SET status = 'expired'
		WHERE id = $1 AND status IN ('active', 'emergency')
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to mark reservation expired: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not running")
		return domain.ErrReservationNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetStalePending retrieves waiting_detection reservations created before the
// cutoff
func (r *PostgresReservationRepository) GetStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.get_stale_pending")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status = 'waiting_detection' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get stale pending reservations: %w", err)
	}
	defer rows.Close()

	reservations, err := collectReservations(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(reservations)))
	span.SetStatus(codes.Ok, "")
	return reservations, nil
}

// Cancel cancels a waiting_detection reservation
func (r *PostgresReservationRepository) Cancel(ctx context.Context, id int64) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.cancel")
	defer span.End()

	span.SetAttributes(attribute.Int64("reservation_id", id))

	query := `
		UPDATE reservations SET status = 'cancelled'
		WHERE id = $1 AND status = 'waiting_detection'
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not pending")
		return domain.ErrReservationNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Clear removes every reservation
func (r *PostgresReservationRepository) Clear(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.clear")
	defer span.End()

	result, err := r.pool.Exec(ctx, `DELETE FROM reservations`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to clear reservations: %w", err)
	}

	span.SetAttributes(attribute.Int64("count", result.RowsAffected()))
	span.SetStatus(codes.Ok, "")
	return nil
}

func collectReservations(rows pgx.Rows) ([]*domain.Reservation, error) {
	var reservations []*domain.Reservation
	for rows.Next() {
		res, err := scanReservationFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}
	return reservations, nil
}

func scanReservationFrom(src spotScanner) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	var status string

	err := src.Scan(
		&res.ID,
		&res.SpotID,
		&res.PlateNumber,
		&res.CustomerName,
		&res.StartTime,
		&res.EndTime,
		&res.DurationMinutes,
		&res.DetectionTime,
		&status,
		&res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	res.Status = domain.ReservationStatus(status)
	return res, nil
}

// Ensure PostgresReservationRepository implements ReservationRepository
var _ ReservationRepository = (*PostgresReservationRepository)(nil)
