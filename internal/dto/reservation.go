package dto

import (
	"time"

	"github.com/basepark/smartpark/internal/domain"
)

// CreateReservationRequest represents request to create a pending reservation
type CreateReservationRequest struct {
	SpotID          string `json:"spot_id" binding:"required"`
	PlateNumber     string `json:"plate_number" binding:"required"`
	CustomerName    string `json:"customer_name" binding:"required"`
	DurationMinutes int    `json:"duration_minutes" binding:"required"`
}

// WalkInRequest represents request to create an immediately active reservation
type WalkInRequest struct {
	SpotID          string `json:"spot_id" binding:"required"`
	PlateNumber     string `json:"plate_number" binding:"required"`
	CustomerName    string `json:"customer_name" binding:"required"`
	DurationMinutes int    `json:"duration_minutes" binding:"required"`
	Email           string `json:"email" binding:"omitempty,email"`
}

// ReservationResponse represents a reservation in API responses
type ReservationResponse struct {
	ID              int64      `json:"id"`
	SpotID          string     `json:"spot_id"`
	PlateNumber     string     `json:"plate_number"`
	CustomerName    string     `json:"customer_name"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DetectionTime   *time.Time `json:"detection_time,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	Unlimited       bool       `json:"unlimited"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ReservationListResponse wraps a page of reservations
type ReservationListResponse struct {
	Reservations []*ReservationResponse `json:"reservations"`
	Total        int                    `json:"total"`
}

// FromDomain converts a domain Reservation to a ReservationResponse
func FromDomain(r *domain.Reservation) *ReservationResponse {
	return &ReservationResponse{
		ID:              r.ID,
		SpotID:          r.SpotID,
		PlateNumber:     r.PlateNumber,
		CustomerName:    r.CustomerName,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DetectionTime:   r.DetectionTime,
		DurationMinutes: r.DurationMinutes,
		Unlimited:       r.IsUnlimited(),
		Status:          string(r.Status),
		CreatedAt:       r.CreatedAt,
	}
}

// FromDomainList converts a slice of domain reservations
func FromDomainList(items []*domain.Reservation) *ReservationListResponse {
	out := make([]*ReservationResponse, 0, len(items))
	for _, r := range items {
		out = append(out, FromDomain(r))
	}
	return &ReservationListResponse{Reservations: out, Total: len(out)}
}
