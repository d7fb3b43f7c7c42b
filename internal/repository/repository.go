package repository

import (
	"context"
	"time"

	"github.com/basepark/smartpark/internal/domain"
)

// SpotRepository defines storage operations for parking spots
type SpotRepository interface {
	// GetAll returns every spot ordered by spot_id
	GetAll(ctx context.Context) ([]*domain.Spot, error)

	// GetByID returns one spot or domain.ErrSpotNotFound
	GetByID(ctx context.Context, spotID string) (*domain.Spot, error)

	// Reserve transitions an available spot to reserved. Exactly one caller
	// wins; losers get domain.ErrSpotNotAvailable.
	Reserve(ctx context.Context, spotID, plate, name string, until *time.Time) error

	// Occupy transitions a reserved spot to occupied, guarded by the
	// occupant plate recorded at reservation time.
	Occupy(ctx context.Context, spotID, plate string, until *time.Time) error

	// OccupyAvailable transitions an available spot directly to occupied,
	// for walk-ins and admin hand-offs.
	OccupyAvailable(ctx context.Context, spotID, plate, name string, until *time.Time) error

	// ClaimAvailable picks any free spot, locks it, and marks it occupied.
	// Returns the claimed spot ID, or domain.ErrSpotNotAvailable when the
	// lot is full.
	ClaimAvailable(ctx context.Context, plate, name string, until *time.Time) (string, error)

	// Release returns a spot to available and clears its occupant fields
	Release(ctx context.Context, spotID string) error

	// Override force-sets a spot's state. The expected version guards
	// against concurrent updates.
	Override(ctx context.Context, spot *domain.Spot, expectedVersion int64) error

	// ResetAll returns every spot to available
	ResetAll(ctx context.Context) error

	// ReplaceAll drops all spots and inserts the given set
	ReplaceAll(ctx context.Context, spots []*domain.Spot) error
}

// ReservationRepository defines storage operations for reservations
type ReservationRepository interface {
	// Create inserts a reservation and fills in its generated ID
	Create(ctx context.Context, res *domain.Reservation) error

	// GetByID returns one reservation or domain.ErrReservationNotFound
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)

	// List returns reservations filtered by status, newest first.
	// An empty status list means all statuses.
	List(ctx context.Context, statuses []domain.ReservationStatus, limit, offset int) ([]*domain.Reservation, error)

	// FindPendingByPlate returns the oldest waiting_detection reservation
	// for the plate, or nil when none exists
	FindPendingByPlate(ctx context.Context, plate string) (*domain.Reservation, error)

	// FindRunningByPlate returns the active or emergency reservation for
	// the plate, or nil when none exists
	FindRunningByPlate(ctx context.Context, plate string) (*domain.Reservation, error)

	// HasRunningForSpot reports whether the spot already carries a
	// non-terminal reservation
	HasRunningForSpot(ctx context.Context, spotID string) (bool, error)

	// Activate starts the clock on a waiting_detection reservation.
	// Exactly one caller wins; losers get domain.ErrConcurrencyConflict.
	Activate(ctx context.Context, id int64, start, end, detected time.Time) error

	// GetExpired returns running reservations whose end time has passed
	GetExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error)

	// MarkExpired marks one running reservation as expired
	MarkExpired(ctx context.Context, id int64) error

	// GetStalePending returns waiting_detection reservations created
	// before the cutoff
	GetStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Reservation, error)

	// Cancel cancels a waiting_detection reservation
	Cancel(ctx context.Context, id int64) error

	// Clear removes every reservation
	Clear(ctx context.Context) error
}

// QueueRepository defines storage operations for the waiting queue
type QueueRepository interface {
	// Enqueue appends an entry and fills in its generated ID
	Enqueue(ctx context.Context, entry *domain.QueueEntry) error

	// List returns all entries in FIFO order, notified ones included
	List(ctx context.Context) ([]*domain.QueueEntry, error)

	// PendingCount returns the number of entries not yet notified
	PendingCount(ctx context.Context) (int, error)

	// DequeueNext claims the oldest un-notified entry and marks it
	// notified. Returns nil, nil when the queue is empty. Concurrent
	// callers never claim the same entry.
	DequeueNext(ctx context.Context) (*domain.QueueEntry, error)

	// Clear removes every entry
	Clear(ctx context.Context) error
}

// DetectionRepository archives processed detection events
type DetectionRepository interface {
	// Record inserts an audit entry for a processed detection
	Record(ctx context.Context, rec *domain.DetectionRecord) error

	// Recent returns the newest records, most recent first
	Recent(ctx context.Context, limit int) ([]*domain.DetectionRecord, error)

	// Clear removes every record
	Clear(ctx context.Context) error
}

// SettingsRepository stores the system kill-switch flags and their audit trail
type SettingsRepository interface {
	// Get returns the current settings snapshot. A missing row yields the
	// everything-enabled defaults.
	Get(ctx context.Context) (*domain.SystemSettings, error)

	// Update replaces the settings row
	Update(ctx context.Context, settings *domain.SystemSettings) error

	// RecordAction appends one audit entry
	RecordAction(ctx context.Context, action *domain.SystemAction) error

	// RecentActions returns the newest audit entries, most recent first
	RecentActions(ctx context.Context, limit int) ([]*domain.SystemAction, error)
}

// UserRepository stores admin accounts
type UserRepository interface {
	// GetByUsername returns one account or domain.ErrInvalidCredentials
	GetByUsername(ctx context.Context, username string) (*domain.AdminUser, error)

	// UpdateLastLogin stamps a successful login
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}
