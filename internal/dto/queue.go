package dto

import (
	"time"

	"github.com/basepark/smartpark/internal/domain"
)

// JoinQueueRequest represents request to join the waiting queue
type JoinQueueRequest struct {
	PlateNumber string `json:"plate_number" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Contact     string `json:"contact" binding:"required"`
}

// JoinQueueResponse represents response after joining the waiting queue
type JoinQueueResponse struct {
	Position    int       `json:"position"`
	PlateNumber string    `json:"plate_number"`
	ContactKind string    `json:"contact_kind"`
	JoinedAt    time.Time `json:"joined_at"`
	Message     string    `json:"message,omitempty"`
}

// QueueEntryResponse represents a waiting queue entry in API responses
type QueueEntryResponse struct {
	ID          int64      `json:"id"`
	Position    int        `json:"position"`
	PlateNumber string     `json:"plate_number"`
	Name        string     `json:"name"`
	Contact     string     `json:"contact"`
	Timestamp   time.Time  `json:"timestamp"`
	Notified    bool       `json:"notified"`
	NotifiedAt  *time.Time `json:"notified_at,omitempty"`
}

// QueueListResponse wraps the full waiting queue in FIFO order
type QueueListResponse struct {
	Entries []*QueueEntryResponse `json:"entries"`
	Total   int                   `json:"total"`
}

// QueueEntryFromDomain converts a domain QueueEntry. Position is 1-based.
func QueueEntryFromDomain(e *domain.QueueEntry, position int) *QueueEntryResponse {
	return &QueueEntryResponse{
		ID:          e.ID,
		Position:    position,
		PlateNumber: e.PlateNumber,
		Name:        e.Name,
		Contact:     e.Contact,
		Timestamp:   e.Timestamp,
		Notified:    e.Notified,
		NotifiedAt:  e.NotifiedAt,
	}
}

// QueueListFromDomain converts a FIFO-ordered slice of queue entries
func QueueListFromDomain(items []*domain.QueueEntry) *QueueListResponse {
	out := make([]*QueueEntryResponse, 0, len(items))
	for i, e := range items {
		out = append(out, QueueEntryFromDomain(e, i+1))
	}
	return &QueueListResponse{Entries: out, Total: len(out)}
}
