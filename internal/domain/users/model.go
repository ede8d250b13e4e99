package users

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Organization roles.
const (
	OrgRoleOwner  = "owner"
	OrgRoleMember = "member"
)

type User struct {
	ID           uint `gorm:"primaryKey"`
	Name         string
	Lastname     string
	Tel          string
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Password     *string `gorm:""`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub"`
	FirebaseUID  *string `gorm:"column:firebase_uid;uniqueIndex:idx_users_firebase_uid"`
	Role         string
	IsVerified   bool

	OrganizationID *string `gorm:"type:varchar(64);index"`
	OrgRole        string  `gorm:"type:varchar(20)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) OrgID() string {
	if u.OrganizationID == nil {
		return ""
	}
	return *u.OrganizationID
}
