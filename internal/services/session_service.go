package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/rollcall/internal/models"
	"github.com/campuskit/rollcall/internal/store"
	apperrors "github.com/campuskit/rollcall/pkg/errors"
	"github.com/campuskit/rollcall/pkg/logger"
)

// CreateSessionInput carries the fields required to open a roll-call
// session. The geofence center is mandatory; there is no implicit campus
// default.
type CreateSessionInput struct {
	TeacherID   string
	Subject     string
	StartTime   time.Time
	LocationLat *float64
	LocationLng *float64
	RadiusM     int
}

// SessionService manages the session lifecycle around the attendance core.
type SessionService struct {
	store store.Store
	now   func() time.Time
	log   *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(st store.Store) (*SessionService, error) {
	if st == nil {
		return nil, errors.New("session service: store is required")
	}
	return &SessionService{store: st, now: time.Now, log: logger.WithModule("sessions")}, nil
}

// Create opens a session on behalf of the requester. Only teachers and
// admins may create sessions, and the geofence center must be supplied
// explicitly.
func (s *SessionService) Create(ctx context.Context, input CreateSessionInput) (*models.Session, error) {
	ctx = ensureContext(ctx)

	requester, err := s.store.User(ctx, input.TeacherID)
	if err != nil {
		return nil, apperrors.Wrap(err, "session service: load requester")
	}
	if requester == nil {
		return nil, apperrors.ErrForbidden
	}
	if requester.Role != models.RoleTeacher && requester.Role != models.RoleAdmin {
		return nil, apperrors.ErrForbidden
	}

	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewBadRequest("subject is required")
	}
	if input.LocationLat == nil || input.LocationLng == nil {
		return nil, apperrors.NewBadRequest("classroom location is required")
	}

	start := input.StartTime
	if start.IsZero() {
		start = s.now()
	}

	radius := input.RadiusM
	if radius <= 0 {
		radius = models.DefaultGeofenceRadiusM
	}

	session := &models.Session{
		TeacherID:   requester.ID,
		Subject:     subject,
		StartTime:   start,
		IsActive:    true,
		LocationLat: *input.LocationLat,
		LocationLng: *input.LocationLng,
		RadiusM:     radius,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, apperrors.Wrap(err, "session service: create session")
	}

	s.log.Info("session opened",
		zap.String("session_id", session.ID),
		zap.String("teacher_id", session.TeacherID),
		zap.Int("radius_m", session.RadiusM),
	)
	return session, nil
}

// Get loads a single session.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	ctx = ensureContext(ctx)

	session, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, "session service: load session")
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// List returns every session, newest first.
func (s *SessionService) List(ctx context.Context) ([]models.Session, error) {
	ctx = ensureContext(ctx)

	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "session service: list sessions")
	}
	return sessions, nil
}

// End closes an active session. Only the owning teacher or an admin may end
// it; ending clears the current QR token so stale displays stop validating.
func (s *SessionService) End(ctx context.Context, sessionID, requesterID string) (*models.Session, error) {
	ctx = ensureContext(ctx)

	session, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, "session service: load session")
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	requester, err := s.store.User(ctx, requesterID)
	if err != nil {
		return nil, apperrors.Wrap(err, "session service: load requester")
	}
	if requester == nil {
		return nil, apperrors.ErrForbidden
	}
	if requester.Role != models.RoleAdmin && session.TeacherID != requester.ID {
		return nil, apperrors.ErrForbidden
	}

	now := s.now()
	if err := s.store.EndSession(ctx, sessionID, now); err != nil {
		return nil, apperrors.Wrap(err, "session service: end session")
	}

	session.IsActive = false
	session.EndTime = &now
	session.CurrentQRToken = ""
	session.CurrentQRExpiresAt = nil

	s.log.Info("session closed",
		zap.String("session_id", session.ID),
		zap.String("requester_id", requesterID),
	)
	return session, nil
}
