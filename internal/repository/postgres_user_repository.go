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

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// GetByUsername retrieves an admin account by username. A missing account
// maps to domain.ErrInvalidCredentials so callers cannot distinguish a wrong
// username from a wrong password.
func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*domain.AdminUser, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.user.get_by_username")
	defer span.End()

	span.SetAttributes(attribute.String("username", username))

	query := `
		SELECT id, username, password_hash, email, role, created_at, last_login
		FROM admin_users
		WHERE username = $1
	`

	user := &domain.AdminUser{}
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
		&user.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrInvalidCredentials
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return user, nil
}

// UpdateLastLogin stamps a successful login
func (r *PostgresUserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.user.update_last_login")
	defer span.End()

	span.SetAttributes(attribute.Int64("user_id", id))

	_, err := r.pool.Exec(ctx, `UPDATE admin_users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update last login: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Ensure PostgresUserRepository implements UserRepository
var _ UserRepository = (*PostgresUserRepository)(nil)
