package models

import "time"

// User is the local projection of an account owned by the external identity provider.
// ID is the provider's subject claim.
type User struct {
	ID          string    `gorm:"primaryKey;size:128" json:"id"`
	Username    string    `gorm:"size:64;index" json:"username"`
	DisplayName string    `gorm:"size:120" json:"display_name"`
	AvatarURL   string    `gorm:"size:500" json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}
