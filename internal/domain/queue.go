package domain

import (
	"regexp"
	"time"
)

// QueueEntry represents a party waiting for a spot to free up.
// Entries are append-only: they are never removed, only marked notified.
type QueueEntry struct {
	ID          int64      `json:"id"`
	PlateNumber string     `json:"plate_number"`
	Name        string     `json:"name"`
	Contact     string     `json:"contact"`
	Timestamp   time.Time  `json:"timestamp"`
	Notified    bool       `json:"notified"`
	NotifiedAt  *time.Time `json:"notified_at,omitempty"`
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// ValidContact reports whether the contact is an email address or phone number
func ValidContact(contact string) bool {
	return emailPattern.MatchString(contact) || phonePattern.MatchString(contact)
}

// ContactKind returns "email" or "phone" for a valid contact, "" otherwise
func ContactKind(contact string) string {
	switch {
	case emailPattern.MatchString(contact):
		return "email"
	case phonePattern.MatchString(contact):
		return "phone"
	}
	return ""
}

// Validate validates the queue entry fields
func (q *QueueEntry) Validate() error {
	if q.PlateNumber == "" {
		return ErrInvalidPlate
	}
	if !ValidContact(q.Contact) {
		return ErrInvalidContact
	}
	return nil
}
