package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campuskit/rollcall/internal/models"
	apperrors "github.com/campuskit/rollcall/pkg/errors"
)

func floatPtr(v float64) *float64 { return &v }

func TestCreateSessionRequiresTeacherRole(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewSessionService(newTestStore(t, db))
	require.NoError(t, err)
	ctx := context.Background()

	student := createTestUser(t, db, "student", models.RoleStudent)
	_, err = svc.Create(ctx, CreateSessionInput{
		TeacherID:   student.ID,
		Subject:     "Algorithms",
		LocationLat: floatPtr(40.7128),
		LocationLng: floatPtr(-74.0060),
	})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.Create(ctx, CreateSessionInput{
		TeacherID:   "00000000-0000-0000-0000-000000000000",
		Subject:     "Algorithms",
		LocationLat: floatPtr(40.7128),
		LocationLng: floatPtr(-74.0060),
	})
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCreateSessionRequiresExplicitLocation(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewSessionService(newTestStore(t, db))
	require.NoError(t, err)

	teacher := createTestUser(t, db, "teacher", models.RoleTeacher)

	_, err = svc.Create(context.Background(), CreateSessionInput{
		TeacherID: teacher.ID,
		Subject:   "Algorithms",
	})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrBadRequest.Code, apperrors.FromError(err).Code)
}

func TestCreateSessionDefaultsRadiusAndStart(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewSessionService(newTestStore(t, db))
	require.NoError(t, err)

	teacher := createTestUser(t, db, "teacher", models.RoleTeacher)

	session, err := svc.Create(context.Background(), CreateSessionInput{
		TeacherID:   teacher.ID,
		Subject:     "Algorithms",
		LocationLat: floatPtr(40.7128),
		LocationLng: floatPtr(-74.0060),
	})
	require.NoError(t, err)
	require.True(t, session.IsActive)
	require.Equal(t, models.DefaultGeofenceRadiusM, session.RadiusM)
	require.False(t, session.StartTime.IsZero())
	require.NotEmpty(t, session.ID)
}

func TestEndSessionAuthorizationAndTokenClear(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewSessionService(newTestStore(t, db))
	require.NoError(t, err)
	ctx := context.Background()

	teacher := createTestUser(t, db, "teacher", models.RoleTeacher)
	other := createTestUser(t, db, "other", models.RoleTeacher)
	session := createTestSession(t, db, teacher.ID, time.Now())

	_, err = svc.End(ctx, session.ID, other.ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	ended, err := svc.End(ctx, session.ID, teacher.ID)
	require.NoError(t, err)
	require.False(t, ended.IsActive)
	require.NotNil(t, ended.EndTime)

	var reloaded models.Session
	require.NoError(t, db.First(&reloaded, "id = ?", session.ID).Error)
	require.False(t, reloaded.IsActive)
	require.Empty(t, reloaded.CurrentQRToken)
	require.Nil(t, reloaded.CurrentQRExpiresAt)
}

func TestGetAndListSessions(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewSessionService(newTestStore(t, db))
	require.NoError(t, err)
	ctx := context.Background()

	teacher := createTestUser(t, db, "teacher", models.RoleTeacher)
	session := createTestSession(t, db, teacher.ID, time.Now())

	got, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, session.ID, got.ID)

	_, err = svc.Get(ctx, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrSessionNotFound)

	sessions, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
}
