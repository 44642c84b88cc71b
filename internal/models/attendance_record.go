package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttendanceRecord is the write-once proof that a student checked in to a
// session. The composite unique index enforces one record per
// (student, session) pair at the database level so concurrent duplicate
// attempts cannot both commit.
type AttendanceRecord struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	StudentID string `gorm:"type:uuid;not null;uniqueIndex:idx_attendance_student_session" json:"student_id"`
	SessionID string `gorm:"type:uuid;not null;uniqueIndex:idx_attendance_student_session;index:idx_attendance_session_device" json:"session_id"`
	Student   *User  `gorm:"foreignKey:StudentID" json:"student,omitempty"`

	MarkedAt    time.Time `gorm:"not null" json:"marked_at"`
	LocationLat float64   `json:"location_lat"`
	LocationLng float64   `json:"location_lng"`

	DeviceFingerprint string `gorm:"index:idx_attendance_session_device" json:"device_fingerprint"`
	IPAddress         string `json:"ip_address"`
	Verified          bool   `gorm:"default:false" json:"verified"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (r *AttendanceRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
