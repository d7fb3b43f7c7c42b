package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/basepark/smartpark/internal/domain"
	"github.com/basepark/smartpark/pkg/telemetry"
)

// PostgresDetectionRepository implements DetectionRepository using PostgreSQL
// with pgxpool
type PostgresDetectionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresDetectionRepository creates a new PostgresDetectionRepository
func NewPostgresDetectionRepository(pool *pgxpool.Pool) *PostgresDetectionRepository {
	return &PostgresDetectionRepository{pool: pool}
}

// Record inserts an audit entry for a processed detection
func (r *PostgresDetectionRepository) Record(ctx context.Context, rec *domain.DetectionRecord) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.detection.record")
	defer span.End()

	span.SetAttributes(
		attribute.String("plate", rec.PlateNumber),
		attribute.String("action", string(rec.Action)),
	)

	query := `
		INSERT INTO anpr_detections (plate_number, confidence, is_emergency, camera, action, spot_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		rec.PlateNumber,
		rec.Confidence,
		rec.IsEmergency,
		rec.Camera,
		string(rec.Action),
		rec.SpotID,
		rec.CreatedAt,
	).Scan(&rec.ID)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to record detection: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Recent retrieves the newest records, most recent first
func (r *PostgresDetectionRepository) Recent(ctx context.Context, limit int) ([]*domain.DetectionRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.detection.recent")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	query := `
		SELECT id, plate_number, confidence, is_emergency, camera, action, spot_id, created_at
		FROM anpr_detections
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get recent detections: %w", err)
	}
	defer rows.Close()

	var records []*domain.DetectionRecord
	for rows.Next() {
		rec := &domain.DetectionRecord{}
		var action string
		err := rows.Scan(
			&rec.ID,
			&rec.PlateNumber,
			&rec.Confidence,
			&rec.IsEmergency,
			&rec.Camera,
			&action,
			&rec.SpotID,
			&rec.CreatedAt,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		rec.Action = domain.DetectionAction(action)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating detections: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(records)))
	span.SetStatus(codes.Ok, "")
	return records, nil
}

// Clear removes every record
func (r *PostgresDetectionRepository) Clear(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.detection.clear")
	defer span.End()

	result, err := r.pool.Exec(ctx, `DELETE FROM anpr_detections`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to clear detections: %w", err)
	}

	span.SetAttributes(attribute.Int64("count", result.RowsAffected()))
	span.SetStatus(codes.Ok, "")
	return nil
}

// Ensure PostgresDetectionRepository implements DetectionRepository
var _ DetectionRepository = (*PostgresDetectionRepository)(nil)
