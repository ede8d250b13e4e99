package registrations

import (
	"strings"
	"time"
)

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Source names the table a registration lives in. Web sign-ups land in
// bookings, the mobile app writes rsvps.
type Source string

const (
	SourceWeb    Source = "bookings"
	SourceMobile Source = "rsvps"
)

// Registration holds the columns shared by bookings and rsvps.
type Registration struct {
	ID          string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	EventID     string     `gorm:"type:varchar(64);not null;index" json:"eventId"`
	UserID      *uint      `gorm:"index" json:"userId,omitempty"`
	Name        string     `json:"name"`
	Email       string     `gorm:"index" json:"email"`
	Phone       string     `json:"phone,omitempty"`
	Status      string     `gorm:"type:varchar(20);not null;default:'confirmed'" json:"status"`
	TicketID    string     `gorm:"type:varchar(64);uniqueIndex" json:"ticketId"`
	CheckedInAt *time.Time `json:"checkedInAt,omitempty"`
	CheckedInBy string     `json:"checkedInBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type Booking struct {
	Registration
}

func (Booking) TableName() string { return string(SourceWeb) }

type RSVP struct {
	Registration
}

func (RSVP) TableName() string { return string(SourceMobile) }

// Attendee is a confirmed registration flattened for messaging.
type Attendee struct {
	Name   string
	Email  string
	Phone  string
	Source Source
}

// DedupeByEmail keeps the first attendee for each email address, compared
// case-insensitively. Attendees without an email are dropped.
func DedupeByEmail(in []Attendee) []Attendee {
	seen := make(map[string]struct{}, len(in))
	out := make([]Attendee, 0, len(in))
	for _, a := range in {
		key := strings.ToLower(strings.TrimSpace(a.Email))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}
