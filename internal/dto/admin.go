package dto

import (
	"time"

	"github.com/basepark/smartpark/internal/domain"
)

// LoginRequest represents admin login credentials
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// SettingsResponse represents the system toggle state
type SettingsResponse struct {
	SystemEnabled       bool      `json:"system_enabled"`
	ANPREnabled         bool      `json:"anpr_enabled"`
	ReservationsEnabled bool      `json:"reservations_enabled"`
	Reason              string    `json:"reason,omitempty"`
	UpdatedBy           string    `json:"updated_by,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// UpdateSettingsRequest represents an admin change to the system toggles.
// Pointers distinguish "leave as is" from an explicit false.
type UpdateSettingsRequest struct {
	SystemEnabled       *bool  `json:"system_enabled,omitempty"`
	ANPREnabled         *bool  `json:"anpr_enabled,omitempty"`
	ReservationsEnabled *bool  `json:"reservations_enabled,omitempty"`
	Reason              string `json:"reason,omitempty"`
}

// SweepResponse reports the outcome of a manual expiry sweep
type SweepResponse struct {
	Expired   int `json:"expired"`
	Cancelled int `json:"cancelled"`
	Notified  int `json:"notified"`
}

// SettingsFromDomain converts domain SystemSettings to its API shape
func SettingsFromDomain(s *domain.SystemSettings) *SettingsResponse {
	return &SettingsResponse{
		SystemEnabled:       s.SystemEnabled,
		ANPREnabled:         s.ANPREnabled,
		ReservationsEnabled: s.ReservationsEnabled,
		Reason:              s.Reason,
		UpdatedBy:           s.UpdatedBy,
		UpdatedAt:           s.UpdatedAt,
	}
}
