package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles assignable to a user account.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User describes an account that can own class sessions or check in to them.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Name     string `gorm:"not null" json:"name"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	Role     string `gorm:"not null;default:student;index" json:"role"`

	// DeviceFingerprint is bound to the account on the first successful
	// check-in and never changes afterwards. The unique index makes the
	// one-device-one-student rule hold under concurrent binds.
	DeviceFingerprint *string `gorm:"uniqueIndex" json:"device_fingerprint,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidRole reports whether the supplied role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
