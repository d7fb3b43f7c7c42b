package domain

import "time"

// SystemSettings is the process-wide kill-switch state. Services read a
// snapshot once per operation instead of consulting a global, so one
// operation always sees a consistent view of the flags.
type SystemSettings struct {
	SystemEnabled       bool      `json:"system_enabled"`
	ANPREnabled         bool      `json:"anpr_enabled"`
	ReservationsEnabled bool      `json:"reservations_enabled"`
	Reason              string    `json:"reason,omitempty"`
	UpdatedBy           string    `json:"updated_by,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// DefaultSettings returns the everything-enabled settings row
func DefaultSettings(now time.Time) *SystemSettings {
	return &SystemSettings{
		SystemEnabled:       true,
		ANPREnabled:         true,
		ReservationsEnabled: true,
		UpdatedBy:           "system",
		UpdatedAt:           now,
	}
}

// AllowReservations reports whether new reservations may be created
func (s *SystemSettings) AllowReservations() bool {
	return s.SystemEnabled && s.ReservationsEnabled
}

// AllowDetections reports whether detection events may be processed
func (s *SystemSettings) AllowDetections() bool {
	return s.SystemEnabled && s.ANPREnabled
}

// SystemAction is one audit entry for a settings change
type SystemAction struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason,omitempty"`
	Admin     string    `json:"admin"`
	Timestamp time.Time `json:"timestamp"`
}
