package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campuskit/rollcall/internal/geo"
	"github.com/campuskit/rollcall/internal/models"
	"github.com/campuskit/rollcall/internal/store"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.AttendanceRecord{},
		&models.AuditLog{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func newTestStore(t *testing.T, db *gorm.DB) *store.GormStore {
	t.Helper()

	st, err := store.NewGormStore(db)
	require.NoError(t, err)
	return st
}

func createTestUser(t *testing.T, db *gorm.DB, name, role string) *models.User {
	t.Helper()

	user := &models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: "hashed",
		Role:     role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// createTestSession provisions an active session centered on New York City
// Hall with a valid token that expires 30 seconds after now.
func createTestSession(t *testing.T, db *gorm.DB, teacherID string, now time.Time) *models.Session {
	t.Helper()

	expires := now.Add(30 * time.Second)
	session := &models.Session{
		TeacherID:          teacherID,
		Subject:            "Distributed Systems",
		StartTime:          now.Add(-10 * time.Minute),
		IsActive:           true,
		LocationLat:        40.7128,
		LocationLng:        -74.0060,
		RadiusM:            200,
		CurrentQRToken:     "valid-token",
		CurrentQRExpiresAt: &expires,
	}
	require.NoError(t, db.Create(session).Error)
	return session
}

func newTestAttendanceService(t *testing.T, db *gorm.DB, now time.Time) *AttendanceService {
	t.Helper()

	audit, err := NewAuditService(db)
	require.NoError(t, err)

	svc, err := NewAttendanceService(newTestStore(t, db), NewDeviceLedger(), audit, AttendanceConfig{
		Clock: func() time.Time { return now },
	})
	require.NoError(t, err)
	return svc
}

func countAuditEntries(t *testing.T, db *gorm.DB, action, reason string) int64 {
	t.Helper()

	var count int64
	query := db.Model(&models.AuditLog{}).Where("action = ?", action)
	if reason != "" {
		query = query.Where("reason = ?", reason)
	}
	require.NoError(t, query.Count(&count).Error)
	return count
}

func markInput(session *models.Session, studentID, fingerprint string) MarkAttendanceInput {
	return MarkAttendanceInput{
		SessionID:         session.ID,
		StudentID:         studentID,
		QRToken:           "valid-token",
		Location:          geo.Coordinate{Lat: session.LocationLat, Lng: session.LocationLng},
		DeviceFingerprint: fingerprint,
		IPAddress:         "192.0.2.10",
	}
}
