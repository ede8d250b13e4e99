package messaging

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tickethub/internal/domain/events"
	"tickethub/internal/domain/registrations"
	"tickethub/internal/notify"
	"tickethub/internal/ticketing"
)

var errNotFound = errors.New("not found")

type gormDirectory struct {
	notify.AttendeeStore
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) Directory {
	return &gormDirectory{AttendeeStore: notify.NewAttendeeStore(db), db: db}
}

func (d *gormDirectory) FindEvent(ctx context.Context, id string) (*events.Event, error) {
	var ev events.Event
	err := d.db.WithContext(ctx).First(&ev, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// FindRegistration looks in web bookings, then mobile rsvps.
func (d *gormDirectory) FindRegistration(ctx context.Context, id string) (*registrations.Registration, error) {
	for _, src := range []registrations.Source{registrations.SourceWeb, registrations.SourceMobile} {
		var reg registrations.Registration
		err := d.db.WithContext(ctx).Table(string(src)).Where("id = ?", id).First(&reg).Error
		if err == nil {
			return &reg, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, errNotFound
}

func encodeTicket(reg *registrations.Registration) (string, error) {
	return ticketing.EncodePayload(reg.ID, reg.EventID, reg.TicketID)
}
