package organizations

import "time"

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationExpired  = "expired"
)

type Invitation struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID string    `gorm:"type:varchar(64);not null;index" json:"organizationId"`
	Email          string    `gorm:"not null;index" json:"email"`
	Role           string    `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	Token          string    `gorm:"not null;uniqueIndex" json:"-"`
	Status         string    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	InvitedBy      uint      `json:"invitedBy"`
	ExpiresAt      time.Time `json:"expiresAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Usable reports whether the invitation can still be accepted at now.
func (i Invitation) Usable(now time.Time) bool {
	return i.Status == InvitationPending && now.Before(i.ExpiresAt)
}
