package notify

import (
	"context"

	"gorm.io/gorm"

	"tickethub/internal/domain/registrations"
)

// AttendeeStore lists who to notify about an event.
type AttendeeStore interface {
	ConfirmedAttendees(ctx context.Context, eventID string) ([]registrations.Attendee, error)
}

type gormAttendeeStore struct {
	db *gorm.DB
}

func NewAttendeeStore(db *gorm.DB) AttendeeStore {
	return &gormAttendeeStore{db: db}
}

// ConfirmedAttendees reads web bookings first, then mobile rsvps. The result
// is not de-duplicated.
func (s *gormAttendeeStore) ConfirmedAttendees(ctx context.Context, eventID string) ([]registrations.Attendee, error) {
	var out []registrations.Attendee
	for _, src := range []registrations.Source{registrations.SourceWeb, registrations.SourceMobile} {
		var rows []registrations.Registration
		err := s.db.WithContext(ctx).Table(string(src)).
			Where("event_id = ? AND status = ?", eventID, registrations.StatusConfirmed).
			Order("created_at asc").
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, registrations.Attendee{Name: r.Name, Email: r.Email, Phone: r.Phone, Source: src})
		}
	}
	return out, nil
}
