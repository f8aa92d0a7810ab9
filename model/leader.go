package model

import "time"

// Role distinguishes the seeded admin account from regular leaders.
type Role string

const (
	RoleLeader Role = "leader"
	RoleAdmin  Role = "admin"
)

// Leader is an account that owns polls. Admins manage leader accounts;
// leaders create and manage their own polls. Passwords are stored as bcrypt
// hashes and never serialized.
type Leader struct {
	ID           string    `gorm:"primaryKey;size:40" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Slug         string    `gorm:"size:160;index" json:"slug"`
	Mobile       string    `gorm:"size:32;uniqueIndex;not null" json:"mobile"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Email        string    `json:"email,omitempty"`
	Role         Role      `gorm:"size:16;not null;default:leader" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
