package events

import "time"

const (
	StatusPublished = "published"
	StatusCancelled = "cancelled"
)

type Event struct {
	ID             string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	OrganizationID string     `gorm:"type:varchar(64);not null;index" json:"organizationId"`
	Title          string     `gorm:"not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	Venue          string     `json:"venue"`
	StartsAt       time.Time  `gorm:"index" json:"startsAt"`
	EndsAt         *time.Time `json:"endsAt,omitempty"`
	Capacity       int        `gorm:"not null;default:0" json:"capacity"` // 0 = unlimited
	Status         string     `gorm:"type:varchar(20);not null;default:'published'" json:"status"`
	ImageKey       string     `json:"-"`
	ImageURL       string     `json:"imageUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e Event) IsCancelled() bool {
	return e.Status == StatusCancelled
}
