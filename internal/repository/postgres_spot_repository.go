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
	"go.opentelemetry.io/otel/trace"

	"github.com/basepark/smartpark/internal/domain"
	"github.com/basepark/smartpark/pkg/telemetry"
)

// PostgresSpotRepository implements SpotRepository using PostgreSQL with pgxpool
type PostgresSpotRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSpotRepository creates a new PostgresSpotRepository
func NewPostgresSpotRepository(pool *pgxpool.Pool) *PostgresSpotRepository {
	return &PostgresSpotRepository{pool: pool}
}

const spotColumns = `spot_id, zone, status, occupant_plate, occupant_name, reserved_until, version, last_updated`

// GetAll retrieves every spot ordered by spot_id
func (r *PostgresSpotRepository) GetAll(ctx context.Context) ([]*domain.Spot, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.spot.get_all")
	defer span.End()

	query := `SELECT ` + spotColumns + ` FROM spots ORDER BY spot_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get spots: %w", err)
	}
	defer rows.Close()

	var spots []*domain.Spot
	for rows.Next() {
		spot, err := scanSpot(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		spots = append(spots, spot)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating spots: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(spots)))
	span.SetStatus(codes.Ok, "")
	return spots, nil
}

// GetByID retrieves a spot by its ID
func (r *PostgresSpotRepository) GetByID(ctx context.Context, spotID string) (*domain.Spot, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.spot.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("spot_id", spotID))

	query := `SELECT ` + spotColumns + ` FROM spots WHERE spot_id = $1`

	spot, err := scanSpotRow(r.pool.QueryRow(ctx, query, spotID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrSpotNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get spot: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return spot, nil
}

// Reserve transitions an available spot to reserved. The status guard in the
// WHERE clause makes exactly one concurrent caller win.
func (r *PostgresSpotRepository) Reserve(ctx context.Context, spotID, plate, name string, until *time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.spot.reserve")
	defer span.End()

	span.SetAttributes(
		attribute.String("spot_id", spotID),
		attribute.String("plate", plate),
	)

	query := `
		UPDATE spots SET
			status = 'reserved',
			occupant_plate = $2,
			occupant_name = $3,
			reserved_until = $4,
			version = version + 1,
			last_updated = $5
		WHERE spot_id = $1 AND status = 'available'
	`

	result, err := r.pool.Exec(ctx, query, spotID, plate, name, until, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to reserve spot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return r.classifyMiss(ctx, span, spotID)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Occupy transitions a reserved spot to occupied, guarded by the plate the
// reservation recorded.
func (r *PostgresSpotRepository) Occupy(ctx context.Context, spotID, plate string, until *time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.spot.occupy")
	defer span.End()

	span.SetAttributes(
		attribute.String("spot_id", spotID),
		attribute.String("plate", plate),
	)

	query := `
		UPDATE spots SET
			status = 'occupied',
			reserved_until = $3,
			version = version + 1,
			last_updated = $4
		WHERE spot_id = $1 AND status = 'reserved' AND occupant_plate = $2
	`

	result, err := r.pool.Exec(ctx, query, spotID, plate, until, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to occupy spot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return r.classifyMiss(ctx, span, spotID)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// OccupyAvailable transitions an available spot directly to occupied
func (r *PostgresSpotRepository) OccupyAvailable(ctx context.Context, spotID, plate, name string, until *time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.spot.occupy_available")
	defer span.End()

	span.SetAttributes(
		attribute.String("spot_id", spotID),
		attribute.String("plate", plate),
	)

	query := `
		UPDATE spots SET
			status = 'occupied',
			occupant_plate = $2,
			occupant_name = $3,
			reserved_until = $4,
			version = version + 1,
			last_updated = $5
		WHERE spot_id = $1 AND status = 'available'
	`

	result, err := r.pool.Exec(ctx, query, spotID, plate, name, until, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to occupy spot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return r.classifyMiss(ctx, span, spotID)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ClaimAvailable locks any free spot with SKIP LOCKED and marks it occupied.
// Concurrent claims each land on a different spot.
func (r *PostgresSpotRepository) ClaimAvailable(ctx context.Context, plate, name string, until *time.Time) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.spot.claim_available")
	defer span.End()

	span.SetAttributes(attribute.String("plate", plate))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var spotID string
	err = tx.QueryRow(ctx, `
		SELECT spot_id FROM spots
		WHERE status = 'available'
		ORDER BY spot_id
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`).Scan(&spotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "lot full")
			return "", domain.ErrSpotNotAvailable
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to select free spot: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE spots SET
			status = 'occupied',
			occupant_plate = $2,
			occupant_name = $3,
			reserved_until = $4,
			version = version + 1,
			last_updated = $5
		WHERE spot_id = $1
	`, spotID, plate, name, until, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to claim spot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to commit claim: %w", err)
	}

	span.SetAttributes(attribute.String("spot_id", spotID))
	span.SetStatus(codes.Ok, "")
	return spotID, nil
}

// Release returns a spot to available and clears the occupant fields
func (r *PostgresSpotRepository) Release(ctx context.Context, spotID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.spot.release")
	defer span.End()

	span.SetAttributes(attribute.String("spot_id", spotID))

	query := `
		UPDATE spots SET
			status = 'available',
			occupant_plate = '',
			occupant_name = '',
			reserved_until = NULL,
			version = version + 1,
			last_updated = $2
		WHERE spot_id = $1
	`

	result, err := r.pool.Exec(ctx, query, spotID, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to release spot: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrSpotNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Override force-sets the spot state. The version guard rejects writes that
// raced with another update.
func (r *PostgresSpotRepository) Override(ctx context.Context, spot *domain.Spot, expectedVersion int64) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.spot.override")
	defer span.End()

	span.SetAttributes(
		attribute.String("spot_id", spot.SpotID),
		attribute.String("status", spot.Status.String()),
		attribute.Int64("expected_version", expectedVersion),
	)

	query := `
		UPDATE spots SET
			status = $2,
			occupant_plate = $3,
			occupant_name = $4,
			reserved_until = $5,
			version = version + 1,
			last_updated = $6
		WHERE spot_id = $1 AND version = $7
	`

	result, err := r.pool.Exec(ctx, query,
		spot.SpotID,
		spot.Status.String(),
		spot.OccupantPlate,
		spot.OccupantName,
		spot.ReservedUntil,
		time.Now(),
		expectedVersion,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to override spot: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM spots WHERE spot_id = $1)", spot.SpotID).Scan(&exists)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to check spot existence: %w", err)
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return domain.ErrSpotNotFound
		}
		span.SetStatus(codes.Error, "version conflict")
		return domain.ErrConcurrencyConflict
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ResetAll returns every spot to available
func (r *PostgresSpotRepository) ResetAll(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.spot.reset_all")
	defer span.End()

	query := `
		UPDATE spots SET
			status = 'available',
			occupant_plate = '',
			occupant_name = '',
			reserved_until = NULL,
			version = version + 1,
			last_updated = $1
	`

	result, err := r.pool.Exec(ctx, query, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to reset spots: %w", err)
	}

	span.SetAttributes(attribute.Int64("count", result.RowsAffected()))
	span.SetStatus(codes.Ok, "")
	return nil
}

// ReplaceAll drops all spots and inserts the given set in one transaction
func (r *PostgresSpotRepository) ReplaceAll(ctx context.Context, spots []*domain.Spot) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.spot.replace_all")
	defer span.End()

	span.SetAttributes(attribute.Int("count", len(spots)))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM spots`); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to clear spots: %w", err)
	}

	for _, spot := range spots {
		_, err := tx.Exec(ctx, `
			INSERT INTO spots (spot_id, zone, status, occupant_plate, occupant_name, reserved_until, version, last_updated)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, spot.SpotID, spot.Zone, spot.Status.String(), spot.OccupantPlate, spot.OccupantName, spot.ReservedUntil, spot.Version, spot.LastUpdated)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to insert spot %s: %w", spot.SpotID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit spot replacement: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// classifyMiss distinguishes a missing spot from a lost status race after a
// zero-row conditional update.
func (r *PostgresSpotRepository) classifyMiss(ctx context.Context, span trace.Span, spotID string) error {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM spots WHERE spot_id = $1)", spotID).Scan(&exists)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to check spot existence: %w", err)
	}
	if !exists {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrSpotNotFound
	}
	span.SetStatus(codes.Error, "not available")
	return domain.ErrSpotNotAvailable
}

type spotScanner interface {
	Scan(dest ...any) error
}

func scanSpotRow(row pgx.Row) (*domain.Spot, error) {
	return scanSpotFrom(row)
}

func scanSpot(rows pgx.Rows) (*domain.Spot, error) {
	return scanSpotFrom(rows)
}

func scanSpotFrom(src spotScanner) (*domain.Spot, error) {
	spot := &domain.Spot{}
	var (
		status        string
		reservedUntil *time.Time
	)

	err := src.Scan(
		&spot.SpotID,
		&spot.Zone,
		&status,
		&spot.OccupantPlate,
		&spot.OccupantName,
		&reservedUntil,
		&spot.Version,
		&spot.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	spot.Status = domain.SpotStatus(status)
	spot.ReservedUntil = reservedUntil
	return spot, nil
}

// Ensure PostgresSpotRepository implements SpotRepository
var _ SpotRepository = (*PostgresSpotRepository)(nil)
