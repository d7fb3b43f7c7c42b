package dto

import (
	"time"

	"github.com/basepark/smartpark/internal/domain"
)

// DetectionRequest represents a plate detection reported by a camera
type DetectionRequest struct {
	PlateNumber string  `json:"plate_number" binding:"required"`
	Confidence  float64 `json:"confidence,omitempty"`
	IsEmergency bool    `json:"is_emergency,omitempty"`
	Camera      string  `json:"camera,omitempty"`
}

// DetectionResponse represents the arbitration outcome of a detection
type DetectionResponse struct {
	Action      string `json:"action"`
	SpotID      string `json:"spot_id,omitempty"`
	PlateNumber string `json:"plate_number"`
	Message     string `json:"message,omitempty"`
}

// DetectionRecordResponse represents an archived detection in API responses
type DetectionRecordResponse struct {
	ID          int64     `json:"id"`
	PlateNumber string    `json:"plate_number"`
	Confidence  float64   `json:"confidence"`
	IsEmergency bool      `json:"is_emergency"`
	Camera      string    `json:"camera,omitempty"`
	Action      string    `json:"action"`
	SpotID      string    `json:"spot_id,omitempty"`
	DetectedAt  time.Time `json:"detected_at"`
}

// DetectionFromDomain converts an arbitration result to a DetectionResponse
func DetectionFromDomain(r *domain.DetectionResult) *DetectionResponse {
	return &DetectionResponse{
		Action:      string(r.Action),
		SpotID:      r.SpotID,
		PlateNumber: r.PlateNumber,
		Message:     r.Message,
	}
}

// DetectionRecordFromDomain converts an audit record to its API shape
func DetectionRecordFromDomain(rec *domain.DetectionRecord) *DetectionRecordResponse {
	return &DetectionRecordResponse{
		ID:          rec.ID,
		PlateNumber: rec.PlateNumber,
		Confidence:  rec.Confidence,
		IsEmergency: rec.IsEmergency,
		Camera:      rec.Camera,
		Action:      string(rec.Action),
		SpotID:      rec.SpotID,
		DetectedAt:  rec.CreatedAt,
	}
}
