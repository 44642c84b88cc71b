package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/campuskit/rollcall/internal/models"
)

// GormStore implements Store on top of a gorm database handle.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps the supplied database handle.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("store: db is required")
	}
	return &GormStore{db: db}, nil
}

// DB exposes the underlying handle for collaborators that manage their own
// queries, such as the audit sink.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) Session(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *GormStore) ActiveSessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *GormStore) CreateSession(ctx context.Context, session *models.Session) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *GormStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := s.db.WithContext(ctx).Order("start_time DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// UpdateSessionQR overwrites the token and its expiry in one statement so a
// concurrent reader never observes the fields from different rotations.
func (s *GormStore) UpdateSessionQR(ctx context.Context, sessionID, token string, expiresAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{
			"current_qr_token":      token,
			"current_qr_expires_at": expiresAt,
		}).Error
}

// EndSession deactivates the session and clears its QR token in one write.
func (s *GormStore) EndSession(ctx context.Context, sessionID string, endedAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{
			"is_active":             false,
			"end_time":              endedAt,
			"current_qr_token":      "",
			"current_qr_expires_at": nil,
		}).Error
}

func (s *GormStore) User(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) UserByFingerprint(ctx context.Context, fingerprint string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "device_fingerprint = ?", fingerprint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *GormStore) UpdateUserFingerprint(ctx context.Context, userID, fingerprint string) error {
	return s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("device_fingerprint", fingerprint).Error
}

func (s *GormStore) AttendanceRecord(ctx context.Context, studentID, sessionID string) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	err := s.db.WithContext(ctx).
		First(&record, "student_id = ? AND session_id = ?", studentID, sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *GormStore) SessionDeviceRecords(ctx context.Context, sessionID, fingerprint string) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND device_fingerprint = ?", sessionID, fingerprint).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) SessionAttendance(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := s.db.WithContext(ctx).
		Preload("Student").
		Where("session_id = ?", sessionID).
		Order("marked_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) InsertAttendanceRecord(ctx context.Context, record *models.AttendanceRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *GormStore) Transact(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}
