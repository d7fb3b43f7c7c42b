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

// PostgresSettingsRepository implements SettingsRepository using PostgreSQL.
// The settings live in a single row with a fixed primary key.
type PostgresSettingsRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSettingsRepository creates a new PostgresSettingsRepository
func NewPostgresSettingsRepository(pool *pgxpool.Pool) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{pool: pool}
}

// Get returns the current settings snapshot. A missing row yields the
// everything-enabled defaults.
func (r *PostgresSettingsRepository) Get(ctx context.Context) (*domain.SystemSettings, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.settings.get")
	defer span.End()

	query := `
		SELECT system_enabled, anpr_enabled, reservations_enabled, reason, updated_by, updated_at
		FROM system_settings
		WHERE id = 1
	`

	settings := &domain.SystemSettings{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&settings.SystemEnabled,
		&settings.ANPREnabled,
		&settings.ReservationsEnabled,
		&settings.Reason,
		&settings.UpdatedBy,
		&settings.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "defaults")
			return domain.DefaultSettings(time.Now()), nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return settings, nil
}

// Update replaces the settings row
func (r *PostgresSettingsRepository) Update(ctx context.Context, settings *domain.SystemSettings) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.settings.update")
	defer span.End()

	span.SetAttributes(
		attribute.Bool("system_enabled", settings.SystemEnabled),
		attribute.Bool("anpr_enabled", settings.ANPREnabled),
		attribute.Bool("reservations_enabled", settings.ReservationsEnabled),
	)

	query := `
		INSERT INTO system_settings (id, system_enabled, anpr_enabled, reservations_enabled, reason, updated_by, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			system_enabled = EXCLUDED.system_enabled,
			anpr_enabled = EXCLUDED.anpr_enabled,
			reservations_enabled = EXCLUDED.reservations_enabled,
			reason = EXCLUDED.reason,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		settings.SystemEnabled,
		settings.ANPREnabled,
		settings.ReservationsEnabled,
		settings.Reason,
		settings.UpdatedBy,
		settings.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update settings: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// RecordAction appends one audit entry
func (r *PostgresSettingsRepository) RecordAction(ctx context.Context, action *domain.SystemAction) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.settings.record_action")
	defer span.End()

	span.SetAttributes(attribute.String("action", action.Action))

	query := `
		INSERT INTO system_actions (action, reason, admin, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		action.Action,
		action.Reason,
		action.Admin,
		action.Timestamp,
	).Scan(&action.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to record action: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// RecentActions retrieves the newest audit entries, most recent first
func (r *PostgresSettingsRepository) RecentActions(ctx context.Context, limit int) ([]*domain.SystemAction, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.settings.recent_actions")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	query := `
		SELECT id, action, reason, admin, created_at
		FROM system_actions
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get recent actions: %w", err)
	}
	defer rows.Close()

	var actions []*domain.SystemAction
	for rows.Next() {
		action := &domain.SystemAction{}
		err := rows.Scan(&action.ID, &action.Action, &action.Reason, &action.Admin, &action.Timestamp)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, action)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating actions: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(actions)))
	span.SetStatus(codes.Ok, "")
	return actions, nil
}

// Ensure PostgresSettingsRepository implements SettingsRepository
var _ SettingsRepository = (*PostgresSettingsRepository)(nil)
