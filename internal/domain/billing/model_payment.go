package billing

import "time"

type Payment struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	OrganizationID string     `gorm:"type:varchar(64);not null;index" json:"organizationId"`
	Plan           string     `gorm:"type:varchar(32)" json:"plan"`
	Reference      string     `gorm:"not null;uniqueIndex" json:"reference"`
	AmountMinor    int64      `json:"amountMinor"` // pesewas/kobo
	Currency       string     `gorm:"type:varchar(8)" json:"currency"`
	Status         string     `gorm:"type:varchar(20)" json:"status"`
	Source         string     `gorm:"type:varchar(32)" json:"source"` // verify | webhook
	PaidAt         *time.Time `json:"paidAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}
