package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit actions recorded by the attendance engine.
const (
	ActionAttendanceMarked = "ATTENDANCE_MARKED"
	ActionAttendanceFailed = "ATTENDANCE_FAILED"
)

// AuditLog is an append-only record of a check-in outcome. UserID is
// nullable because a failure can be recorded before the actor resolves.
type AuditLog struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    *string        `gorm:"type:uuid;index" json:"user_id"`
	User      *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action    string         `gorm:"not null;index" json:"action"`
	Reason    string         `json:"reason,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	Details   datatypes.JSON `gorm:"type:json" json:"details,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
