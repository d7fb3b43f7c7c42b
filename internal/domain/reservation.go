package domain

import (
	"strings"
	"time"
)

// ReservationStatus represents the lifecycle state of a reservation
type ReservationStatus string

const (
	// ReservationStatusWaiting means the spot is held until the plate is
	// detected by a camera (or the pending window runs out).
	ReservationStatusWaiting ReservationStatus = "waiting_detection"
	// ReservationStatusActive means the vehicle has arrived and the clock runs.
	ReservationStatusActive ReservationStatus = "active"
	// ReservationStatusEmergency is an active slot granted to an emergency
	// vehicle without a prior booking.
	ReservationStatusEmergency ReservationStatus = "emergency"
	ReservationStatusExpired   ReservationStatus = "expired"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// String returns the string representation of the status
func (s ReservationStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the reservation can no longer change state
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusExpired || s == ReservationStatusCancelled
}

// IsRunning reports whether the reservation currently occupies or holds a spot
func (s ReservationStatus) IsRunning() bool {
	return s == ReservationStatusWaiting || s == ReservationStatusActive || s == ReservationStatusEmergency
}

const (
	// DurationUnlimited is the canonical sentinel for open-ended reservations.
	DurationUnlimited = -1

	// UnlimitedHorizon bounds the end time of an unlimited reservation.
	UnlimitedHorizon = 3650 * 24 * time.Hour

	// EmergencyDuration is the slot granted to a detected emergency vehicle.
	EmergencyDuration = 4 * time.Hour

	// PendingWindow is how long a waiting_detection reservation holds its
	// spot before the sweeper cancels it.
	PendingWindow = 30 * time.Minute

	// QueueHandOffDuration is the slot granted to a waiting party when a
	// freed spot is handed to them.
	QueueHandOffDuration = 60 * time.Minute

	// EmergencyCustomerName is the synthetic customer recorded on
	// emergency admissions.
	EmergencyCustomerName = "EMERGENCY VEHICLE"
)

// Reservation represents a claim on a parking spot
type Reservation struct {
	ID              int64             `json:"id"`
	SpotID          string            `json:"spot_id"`
	PlateNumber     string            `json:"plate_number"`
	CustomerName    string            `json:"customer_name"`
	StartTime       *time.Time        `json:"start_time,omitempty"`
	EndTime         *time.Time        `json:"end_time,omitempty"`
	DurationMinutes int               `json:"duration_minutes"` // DurationUnlimited for open-ended
	DetectionTime   *time.Time        `json:"detection_time,omitempty"`
	Status          ReservationStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
}

// IsUnlimited reports whether the reservation has no fixed duration
func (r *Reservation) IsUnlimited() bool {
	return r.DurationMinutes == DurationUnlimited
}

// EndTimeFrom computes the reservation end time when the clock starts at start
func (r *Reservation) EndTimeFrom(start time.Time) time.Time {
	return ReservationEnd(start, r.DurationMinutes)
}

// MatchesPlate reports whether the reservation belongs to the plate,
// ignoring case.
func (r *Reservation) MatchesPlate(plate string) bool {
	return strings.EqualFold(r.PlateNumber, plate)
}

// ReservationEnd computes an end time for the given duration, applying the
// unlimited horizon for the sentinel value.
func ReservationEnd(start time.Time, durationMinutes int) time.Time {
	if durationMinutes == DurationUnlimited {
		return start.Add(UnlimitedHorizon)
	}
	return start.Add(time.Duration(durationMinutes) * time.Minute)
}

// ValidDuration reports whether the duration is positive or the unlimited
// sentinel.
func ValidDuration(durationMinutes int) bool {
	return durationMinutes > 0 || durationMinutes == DurationUnlimited
}

// NormalizePlate canonicalizes a plate number for storage and matching
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}
