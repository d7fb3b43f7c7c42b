package domain

import "time"

// ParkingEventType classifies events published to the event stream
type ParkingEventType string

const (
	EventReservationCreated   ParkingEventType = "reservation.created"
	EventReservationActivated ParkingEventType = "reservation.activated"
	EventReservationExpired   ParkingEventType = "reservation.expired"
	EventReservationCancelled ParkingEventType = "reservation.cancelled"
	EventEmergencyAssigned    ParkingEventType = "emergency.assigned"
	EventQueueNotified        ParkingEventType = "queue.notified"
)

// ParkingEvent is the envelope published for reservation lifecycle changes
type ParkingEvent struct {
	EventID     string           `json:"event_id"`
	EventType   ParkingEventType `json:"event_type"`
	OccurredAt  time.Time        `json:"occurred_at"`
	Reservation *Reservation     `json:"reservation,omitempty"`
	QueueEntry  *QueueEntry      `json:"queue_entry,omitempty"`
}

// NewParkingEvent creates an event for a reservation lifecycle change
func NewParkingEvent(eventType ParkingEventType, res *Reservation, eventID string) *ParkingEvent {
	return &ParkingEvent{
		EventID:     eventID,
		EventType:   eventType,
		OccurredAt:  time.Now(),
		Reservation: res,
	}
}

// Key returns the partition key for the event stream. Events for the same
// spot stay ordered.
func (e *ParkingEvent) Key() string {
	if e.Reservation != nil {
		return e.Reservation.SpotID
	}
	if e.QueueEntry != nil {
		return e.QueueEntry.PlateNumber
	}
	return e.EventID
}
