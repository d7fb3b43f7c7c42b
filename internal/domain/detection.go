package domain

import "time"

// DetectionEvent is one plate-recognition result from a camera.
// The recognizer itself is an external collaborator; smartpark only
// consumes its output.
type DetectionEvent struct {
	PlateNumber string    `json:"plate_number"`
	Confidence  float64   `json:"confidence"`
	IsEmergency bool      `json:"is_emergency"`
	Camera      string    `json:"camera,omitempty"`
	ObservedAt  time.Time `json:"observed_at,omitempty"`
}

// DetectionAction classifies the outcome of arbitrating one detection event
type DetectionAction string

const (
	// ActionReservationActivated means a pending reservation matched the plate
	ActionReservationActivated DetectionAction = "reservation_activated"
	// ActionEmergencyAssigned means an emergency vehicle was granted a free spot
	ActionEmergencyAssigned DetectionAction = "emergency_assigned"
	// ActionNoCapacity means an emergency vehicle arrived but no spot was free.
	// This is a normal outcome under load, not an error.
	ActionNoCapacity DetectionAction = "no_capacity"
	// ActionUnknownVehicle means the plate matched nothing; informational only
	ActionUnknownVehicle DetectionAction = "unknown_vehicle"
)

// DetectionResult is the arbitration outcome for one detection event
type DetectionResult struct {
	Action      DetectionAction `json:"action"`
	SpotID      string          `json:"spot_id,omitempty"`
	PlateNumber string          `json:"plate_number"`
	Message     string          `json:"message"`
}

// Mutated reports whether the arbitration changed any spot or reservation state
func (r *DetectionResult) Mutated() bool {
	return r.Action == ActionReservationActivated || r.Action == ActionEmergencyAssigned
}

// DetectionRecord is the persisted audit entry for a processed detection
type DetectionRecord struct {
	ID          int64           `json:"id"`
	PlateNumber string          `json:"plate_number"`
	Confidence  float64         `json:"confidence"`
	IsEmergency bool            `json:"is_emergency"`
	Camera      string          `json:"camera,omitempty"`
	Action      DetectionAction `json:"action"`
	SpotID      string          `json:"spot_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
