package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campuskit/rollcall/internal/models"
)

func TestAuditLogRequiresAction(t *testing.T) {
	db := openServiceTestDB(t)
	audit, err := NewAuditService(db)
	require.NoError(t, err)

	err = audit.Log(context.Background(), AuditEntry{Action: "  "})
	require.Error(t, err)

	require.Zero(t, countAuditEntries(t, db, models.ActionAttendanceFailed, ""))
}

func TestAuditLogPersistsDetails(t *testing.T) {
	db := openServiceTestDB(t)
	audit, err := NewAuditService(db)
	require.NoError(t, err)

	student := createTestUser(t, db, "student", models.RoleStudent)

	require.NoError(t, audit.Log(context.Background(), AuditEntry{
		UserID:    &student.ID,
		Action:    models.ActionAttendanceFailed,
		Reason:    "Device Mismatch",
		IPAddress: "192.0.2.40",
		Details: map[string]any{
			"registered": "device-a",
			"presented":  "device-b",
		},
	}))

	var row models.AuditLog
	require.NoError(t, db.First(&row).Error)
	require.NotNil(t, row.UserID)
	require.Equal(t, student.ID, *row.UserID)
	require.Equal(t, "Device Mismatch", row.Reason)

	var details map[string]string
	require.NoError(t, json.Unmarshal(row.Details, &details))
	require.Equal(t, "device-a", details["registered"])
	require.Equal(t, "device-b", details["presented"])
}

func TestAuditRecordSwallowsFailure(t *testing.T) {
	db := openServiceTestDB(t)
	audit, err := NewAuditService(db)
	require.NoError(t, err)

	// Missing action makes the underlying write fail; Record must not panic
	// and must not persist anything.
	audit.Record(context.Background(), AuditEntry{Reason: "no action"})

	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestAuditListFiltersAndPaginates(t *testing.T) {
	db := openServiceTestDB(t)
	audit, err := NewAuditService(db)
	require.NoError(t, err)

	student := createTestUser(t, db, "student", models.RoleStudent)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, audit.Log(ctx, AuditEntry{
			UserID: &student.ID,
			Action: models.ActionAttendanceFailed,
			Reason: "Invalid QR Token",
		}))
	}
	require.NoError(t, audit.Log(ctx, AuditEntry{
		UserID: &student.ID,
		Action: models.ActionAttendanceMarked,
	}))

	logs, total, err := audit.List(ctx, AuditListOptions{
		Page:     1,
		PageSize: 2,
		Filters:  AuditFilters{Action: models.ActionAttendanceFailed},
	})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, logs, 2)
	for _, row := range logs {
		require.Equal(t, models.ActionAttendanceFailed, row.Action)
	}

	logs, total, err = audit.List(ctx, AuditListOptions{
		Filters: AuditFilters{UserID: student.ID},
	})
	require.NoError(t, err)
	require.EqualValues(t, 4, total)
	require.Len(t, logs, 4)
	require.NotNil(t, logs[0].User)
	require.Equal(t, student.Email, logs[0].User.Email)
}

func TestAuditCleanupOlderThan(t *testing.T) {
	db := openServiceTestDB(t)
	audit, err := NewAuditService(db)
	require.NoError(t, err)

	old := models.AuditLog{Action: models.ActionAttendanceMarked}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&models.AuditLog{}).
		Where("id = ?", old.ID).
		Update("created_at", time.Now().AddDate(0, 0, -120)).Error)

	recent := models.AuditLog{Action: models.ActionAttendanceMarked}
	require.NoError(t, db.Create(&recent).Error)

	removed, err := audit.CleanupOlderThan(context.Background(), 90)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	_, err = audit.CleanupOlderThan(context.Background(), 0)
	require.Error(t, err)
}
