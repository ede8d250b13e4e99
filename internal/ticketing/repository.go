package ticketing

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"tickethub/internal/domain/events"
	"tickethub/internal/domain/registrations"
)

var ErrNotFound = errors.New("not found")

// Store is the persistence the ticket service needs.
type Store interface {
	FindByTicketID(ctx context.Context, ticketID string) (*registrations.Registration, registrations.Source, error)
	FindEvent(ctx context.Context, eventID string) (*events.Event, error)
	// MarkCheckedIn sets the check-in columns only if they are still empty
	// and reports whether this call won.
	MarkCheckedIn(ctx context.Context, source registrations.Source, id string, at time.Time, by string) (bool, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) FindByTicketID(ctx context.Context, ticketID string) (*registrations.Registration, registrations.Source, error) {
	for _, src := range []registrations.Source{registrations.SourceWeb, registrations.SourceMobile} {
		var reg registrations.Registration
		err := s.db.WithContext(ctx).Table(string(src)).Where("ticket_id = ?", ticketID).Take(&reg).Error
		if err == nil {
			return &reg, src, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", err
		}
	}
	return nil, "", ErrNotFound
}

func (s *gormStore) FindEvent(ctx context.Context, eventID string) (*events.Event, error) {
	var ev events.Event
	err := s.db.WithContext(ctx).Where("id = ?", eventID).Take(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *gormStore) MarkCheckedIn(ctx context.Context, source registrations.Source, id string, at time.Time, by string) (bool, error) {
	tx := s.db.WithContext(ctx).Table(string(source)).
		Where("id = ? AND checked_in_at IS NULL", id).
		Updates(map[string]interface{}{
			"checked_in_at": at,
			"checked_in_by": by,
			"updated_at":    at,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}
