package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/rollcall/internal/geo"
	"github.com/campuskit/rollcall/internal/models"
	"github.com/campuskit/rollcall/internal/store"
	apperrors "github.com/campuskit/rollcall/pkg/errors"
	"github.com/campuskit/rollcall/pkg/logger"
	"github.com/campuskit/rollcall/pkg/metrics"
)

// MarkAttendanceInput carries one fully validated check-in attempt. Identity
// is explicit: the student id comes from the authenticated caller, never
// from ambient state.
type MarkAttendanceInput struct {
	SessionID         string
	StudentID         string
	QRToken           string
	Location          geo.Coordinate
	DeviceFingerprint string
	IPAddress         string
}

// AttendanceConfig tunes the attendance service.
type AttendanceConfig struct {
	Clock func() time.Time
}

// AttendanceService decides whether a single check-in attempt is accepted.
// Checks run in a fixed order and short-circuit on the first failure; cheap,
// non-mutating checks come first, the first-time device bind runs inside the
// commit transaction, and geofencing runs last so no location data is
// processed for attempts already doomed by a bad token.
type AttendanceService struct {
	store  store.Store
	ledger *DeviceLedger
	audit  *AuditService
	now    func() time.Time
	log    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(st store.Store, ledger *DeviceLedger, audit *AuditService, cfg AttendanceConfig) (*AttendanceService, error) {
	if st == nil {
		return nil, errors.New("attendance service: store is required")
	}
	if ledger == nil {
		return nil, errors.New("attendance service: device ledger is required")
	}
	if audit == nil {
		return nil, errors.New("attendance service: audit service is required")
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &AttendanceService{
		store:  st,
		ledger: ledger,
		audit:  audit,
		now:    now,
		log:    logger.WithModule("attendance"),
	}, nil
}

// Mark runs the full check sequence for one attempt and, on success,
// persists the attendance record. Every validation reject produces exactly
// one audit entry before the error is returned; storage faults surface as
// internal errors without an audit guarantee. No partial record is ever left
// behind: the insert is the only point of persistence and shares a
// transaction with the duplicate, exclusivity and binding checks.
func (s *AttendanceService) Mark(ctx context.Context, input MarkAttendanceInput) (*models.AttendanceRecord, error) {
	ctx = ensureContext(ctx)
	now := s.now()

	// 1. Session existence.
	session, err := s.store.Session(ctx, input.SessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, "attendance: load session")
	}
	if session == nil {
		return nil, s.reject(ctx, input, ErrInvalidSession, nil)
	}

	// 2. Token match. Exact equality against the stored value; an empty
	// stored token never matches anything.
	if session.CurrentQRToken == "" || session.CurrentQRToken != input.QRToken {
		return nil, s.reject(ctx, input, ErrInvalidQRToken, nil)
	}

	// 3. Token freshness. The boundary instant is still valid.
	if session.CurrentQRExpiresAt == nil || now.After(*session.CurrentQRExpiresAt) {
		return nil, s.reject(ctx, input, ErrQRTokenExpired, nil)
	}

	var (
		record      *models.AttendanceRecord
		failDetails map[string]any
	)

	err = s.store.Transact(ctx, func(tx store.Store) error {
		// 4. Duplicate check.
		existing, err := tx.AttendanceRecord(ctx, input.StudentID, input.SessionID)
		if err != nil {
			return apperrors.Wrap(err, "attendance: lookup existing record")
		}
		if existing != nil {
			return ErrAlreadyMarked
		}

		// 5. Per-session device exclusivity.
		if err := s.ledger.CheckSessionExclusivity(ctx, tx, input.SessionID, input.StudentID, input.DeviceFingerprint); err != nil {
			return err
		}

		// 6. User existence.
		user, err := tx.User(ctx, input.StudentID)
		if err != nil {
			return apperrors.Wrap(err, "attendance: load user")
		}
		if user == nil {
			return ErrUserNotFound
		}

		// 7. Global device binding, including the first-time bind. A reject
		// in any later step rolls the bind back.
		if err := s.ledger.EnsureBinding(ctx, tx, user, input.DeviceFingerprint); err != nil {
			if errors.Is(err, ErrDeviceMismatch) && user.DeviceFingerprint != nil {
				failDetails = map[string]any{
					"registered": *user.DeviceFingerprint,
					"presented":  input.DeviceFingerprint,
				}
			}
			return err
		}

		// 8. Geofence, last: the most expensive check, and no location is
		// evaluated for attempts that already failed.
		center := geo.Coordinate{Lat: session.LocationLat, Lng: session.LocationLng}
		distance := geo.DistanceMeters(input.Location, center)
		radius := float64(session.GeofenceRadiusM())
		if distance > radius {
			failDetails = map[string]any{
				"distance_m": math.Round(distance),
				"allowed_m":  radius,
			}
			return NewTooFarError(distance)
		}

		// 9. Commit.
		record = &models.AttendanceRecord{
			StudentID:         input.StudentID,
			SessionID:         input.SessionID,
			MarkedAt:          now,
			LocationLat:       input.Location.Lat,
			LocationLng:       input.Location.Lng,
			DeviceFingerprint: input.DeviceFingerprint,
			IPAddress:         input.IPAddress,
			Verified:          true,
		}
		if err := tx.InsertAttendanceRecord(ctx, record); err != nil {
			if store.IsUniqueViolation(err) {
				return ErrAlreadyMarked
			}
			return apperrors.Wrap(err, "attendance: insert record")
		}
		return nil
	})
	if err != nil {
		if reason, ok := rejectReason(err); ok {
			return nil, s.rejectWithReason(ctx, input, err, reason, failDetails)
		}
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		UserID:    &input.StudentID,
		Action:    models.ActionAttendanceMarked,
		IPAddress: input.IPAddress,
	})
	metrics.CheckinAttempts.WithLabelValues("marked").Inc()

	s.log.Info("attendance marked",
		zap.String("session_id", input.SessionID),
		zap.String("student_id", input.StudentID),
	)

	return record, nil
}

// ListBySession returns a session's attendance records, including student
// details, to the owning teacher or an admin.
func (s *AttendanceService) ListBySession(ctx context.Context, sessionID, requesterID string) ([]models.AttendanceRecord, error) {
	ctx = ensureContext(ctx)

	session, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, "attendance: load session")
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	requester, err := s.store.User(ctx, requesterID)
	if err != nil {
		return nil, apperrors.Wrap(err, "attendance: load requester")
	}
	if requester == nil {
		return nil, apperrors.ErrForbidden
	}
	if requester.Role != models.RoleAdmin && session.TeacherID != requester.ID {
		return nil, apperrors.ErrForbidden
	}

	records, err := s.store.SessionAttendance(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, "attendance: list records")
	}
	return records, nil
}

// reject records the audit entry for a validation failure and hands the
// error back for the caller to surface.
func (s *AttendanceService) reject(ctx context.Context, input MarkAttendanceInput, appErr *apperrors.AppError, details map[string]any) error {
	reason := rejectReasons[appErr.Code]
	return s.rejectWithReason(ctx, input, appErr, reason, details)
}

func (s *AttendanceService) rejectWithReason(ctx context.Context, input MarkAttendanceInput, err error, reason string, details map[string]any) error {
	s.audit.Record(ctx, AuditEntry{
		UserID:    &input.StudentID,
		Action:    models.ActionAttendanceFailed,
		Reason:    reason,
		IPAddress: input.IPAddress,
		Details:   details,
	})

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		metrics.CheckinAttempts.WithLabelValues(strings.ToLower(appErr.Code)).Inc()
	}

	return err
}
