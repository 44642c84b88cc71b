// Package store exposes the narrow persistence surface the attendance
// engine depends on. The engine never touches the database directly; it
// reads and writes through this interface so the integrity checks stay
// independent of the storage vendor.
package store

import (
	"context"
	"time"

	"github.com/campuskit/rollcall/internal/models"
)

// Store is the repository consumed by the attendance, QR token and device
// binding services. Lookup methods return (nil, nil) when no row matches;
// errors are reserved for storage faults.
type Store interface {
	Session(ctx context.Context, id string) (*models.Session, error)
	ActiveSessions(ctx context.Context) ([]models.Session, error)
	CreateSession(ctx context.Context, session *models.Session) error
	ListSessions(ctx context.Context) ([]models.Session, error)
	UpdateSessionQR(ctx context.Context, sessionID, token string, expiresAt time.Time) error
	EndSession(ctx context.Context, sessionID string, endedAt time.Time) error

	User(ctx context.Context, id string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByFingerprint(ctx context.Context, fingerprint string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUserFingerprint(ctx context.Context, userID, fingerprint string) error

	AttendanceRecord(ctx context.Context, studentID, sessionID string) (*models.AttendanceRecord, error)
	SessionDeviceRecords(ctx context.Context, sessionID, fingerprint string) ([]models.AttendanceRecord, error)
	SessionAttendance(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error)
	InsertAttendanceRecord(ctx context.Context, record *models.AttendanceRecord) error

	// Transact runs fn against a store bound to a single transaction.
	// Returning an error rolls every write back.
	Transact(ctx context.Context, fn func(Store) error) error
}
