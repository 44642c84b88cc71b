package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultGeofenceRadiusM applies when a session is created without an
// explicit radius.
const DefaultGeofenceRadiusM = 100

// Session is a time-boxed roll-call owned by one teacher. The geofence
// center is mandatory at creation; the QR token fields are mutated only by
// the token issuer and are always written together.
type Session struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	TeacherID string `gorm:"type:uuid;not null;index" json:"teacher_id"`
	Teacher   *User  `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`

	Subject   string     `gorm:"not null" json:"subject"`
	StartTime time.Time  `gorm:"not null" json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	IsActive  bool       `gorm:"default:true;index" json:"is_active"`

	LocationLat float64 `gorm:"not null" json:"location_lat"`
	LocationLng float64 `gorm:"not null" json:"location_lng"`
	RadiusM     int     `gorm:"default:100" json:"radius_m"`

	// The currently displayed QR secret. Never serialised to clients; the
	// only way to learn it is to scan the live display.
	CurrentQRToken     string     `json:"-"`
	CurrentQRExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GeofenceRadiusM returns the configured radius, falling back to the default.
func (s *Session) GeofenceRadiusM() int {
	if s.RadiusM > 0 {
		return s.RadiusM
	}
	return DefaultGeofenceRadiusM
}

// BeforeCreate ensures a UUID is present before persisting.
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
