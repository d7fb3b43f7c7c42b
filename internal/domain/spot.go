package domain

import (
	"fmt"
	"time"
)

// SpotStatus represents the lifecycle state of a parking spot
type SpotStatus string

const (
	SpotStatusAvailable   SpotStatus = "available"
	SpotStatusReserved    SpotStatus = "reserved"
	SpotStatusOccupied    SpotStatus = "occupied"
	SpotStatusMaintenance SpotStatus = "maintenance"
)

// String returns the string representation of the status
func (s SpotStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is one of the known spot states
func (s SpotStatus) IsValid() bool {
	switch s {
	case SpotStatusAvailable, SpotStatusReserved, SpotStatusOccupied, SpotStatusMaintenance:
		return true
	}
	return false
}

// Zones is the fixed set of parking zones, in display order
var Zones = []string{"A", "B", "S", "E"}

// SpotsPerZone is the number of spots generated per zone
const SpotsPerZone = 10

// Spot represents a single parking space
type Spot struct {
	SpotID        string     `json:"spot_id"`
	Zone          string     `json:"zone"`
	Status        SpotStatus `json:"status"`
	OccupantPlate string     `json:"occupant_plate,omitempty"`
	OccupantName  string     `json:"occupant_name,omitempty"`
	ReservedUntil *time.Time `json:"reserved_until,omitempty"`
	Version       int64      `json:"version"`
	LastUpdated   time.Time  `json:"last_updated"`
}

// IsAvailable reports whether the spot can accept a new reservation
func (s *Spot) IsAvailable() bool {
	return s.Status == SpotStatusAvailable
}

// CheckInvariant verifies that an available spot carries no occupant data.
// status == available must hold exactly when the occupant fields are empty
// and reserved_until is unset.
func (s *Spot) CheckInvariant() error {
	empty := s.OccupantPlate == "" && s.OccupantName == "" && s.ReservedUntil == nil
	if s.Status == SpotStatusAvailable && !empty {
		return fmt.Errorf("spot %s: available but carries occupant data", s.SpotID)
	}
	if s.Status != SpotStatusAvailable && s.Status != SpotStatusMaintenance && empty {
		return fmt.Errorf("spot %s: %s but occupant fields are empty", s.SpotID, s.Status)
	}
	return nil
}

// DefaultSpots generates the configured zone×index grid, all available.
// IDs look like "A01".."A10" for zone A.
func DefaultSpots(now time.Time) []*Spot {
	spots := make([]*Spot, 0, len(Zones)*SpotsPerZone)
	for _, zone := range Zones {
		for i := 1; i <= SpotsPerZone; i++ {
			spots = append(spots, &Spot{
				SpotID:      fmt.Sprintf("%s%02d", zone, i),
				Zone:        zone,
				Status:      SpotStatusAvailable,
				LastUpdated: now,
			})
		}
	}
	return spots
}
