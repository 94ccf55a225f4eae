package models

import "time"

// User is a local snapshot of the identity the auth layer verifies. The
// identity provider owns the account; we only mirror the fields duel
// tracking needs, refreshed on every authenticated request.
type User struct {
	ID          string    `json:"id" gorm:"primaryKey"` // external subject id
	Username    string    `json:"username" gorm:"index"`
	IsAdmin     bool      `json:"is_admin" gorm:"default:false"`
	IsSupporter bool      `json:"is_supporter" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
