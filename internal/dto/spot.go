package dto

import (
	"time"

	"github.com/basepark/smartpark/internal/domain"
)

// SpotResponse represents a parking spot in API responses
type SpotResponse struct {
	SpotID        string     `json:"spot_id"`
	Zone          string     `json:"zone"`
	Status        string     `json:"status"`
	OccupantPlate string     `json:"occupant_plate,omitempty"`
	OccupantName  string     `json:"occupant_name,omitempty"`
	ReservedUntil *time.Time `json:"reserved_until,omitempty"`
	LastUpdated   time.Time  `json:"last_updated"`
}

// SpotListResponse wraps all spots plus per-status counts
type SpotListResponse struct {
	Spots     []*SpotResponse `json:"spots"`
	Total     int             `json:"total"`
	Available int             `json:"available"`
	Reserved  int             `json:"reserved"`
	Occupied  int             `json:"occupied"`
}

// OverrideSpotRequest represents an admin request to force a spot's state
type OverrideSpotRequest struct {
	Status        string `json:"status" binding:"required"`
	OccupantPlate string `json:"occupant_plate,omitempty"`
	OccupantName  string `json:"occupant_name,omitempty"`
}

// SpotFromDomain converts a domain Spot to a SpotResponse
func SpotFromDomain(s *domain.Spot) *SpotResponse {
	return &SpotResponse{
		SpotID:        s.SpotID,
		Zone:          s.Zone,
		Status:        string(s.Status),
		OccupantPlate: s.OccupantPlate,
		OccupantName:  s.OccupantName,
		ReservedUntil: s.ReservedUntil,
		LastUpdated:   s.LastUpdated,
	}
}

// SpotListFromDomain converts a slice of spots and tallies statuses
func SpotListFromDomain(items []*domain.Spot) *SpotListResponse {
	resp := &SpotListResponse{Spots: make([]*SpotResponse, 0, len(items)), Total: len(items)}
	for _, s := range items {
		resp.Spots = append(resp.Spots, SpotFromDomain(s))
		switch s.Status {
		case domain.SpotStatusAvailable:
			resp.Available++
		case domain.SpotStatusReserved:
			resp.Reserved++
		case domain.SpotStatusOccupied:
			resp.Occupied++
		}
	}
	return resp
}
