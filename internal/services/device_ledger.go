package services

import (
	"context"

	"github.com/campuskit/rollcall/internal/models"
	"github.com/campuskit/rollcall/internal/store"
	apperrors "github.com/campuskit/rollcall/pkg/errors"
)

// DeviceLedger enforces the two device-binding rules: one device may mark at
// most one student per session, and a device fingerprint belongs to at most
// one account globally. Methods take the store explicitly so callers can
// hand in the transactional store and keep the checks and the first-time
// bind inside the same commit window as the attendance insert.
type DeviceLedger struct{}

// NewDeviceLedger constructs a DeviceLedger.
func NewDeviceLedger() *DeviceLedger {
	return &DeviceLedger{}
}

// CheckSessionExclusivity fails when the fingerprint already marked a
// different student's attendance in the session.
func (l *DeviceLedger) CheckSessionExclusivity(ctx context.Context, st store.Store, sessionID, studentID, fingerprint string) error {
	records, err := st.SessionDeviceRecords(ctx, sessionID, fingerprint)
	if err != nil {
		return apperrors.Wrap(err, "device ledger: query session records")
	}

	for _, record := range records {
		if record.StudentID != studentID {
			return ErrDeviceAlreadyUsedInSession
		}
	}
	return nil
}

// EnsureBinding verifies the fingerprint against the user's stored one and
// performs the first-time bind when the account is still unbound. The bind
// is a side effect of a successful check-in only; callers must run it inside
// the check-in transaction so any later reject rolls it back.
func (l *DeviceLedger) EnsureBinding(ctx context.Context, st store.Store, user *models.User, fingerprint string) error {
	if user.DeviceFingerprint != nil {
		if *user.DeviceFingerprint != fingerprint {
			return ErrDeviceMismatch
		}
		return nil
	}

	owner, err := st.UserByFingerprint(ctx, fingerprint)
	if err != nil {
		return apperrors.Wrap(err, "device ledger: lookup fingerprint owner")
	}
	if owner != nil && owner.ID != user.ID {
		return ErrDeviceAlreadyRegistered
	}

	if err := st.UpdateUserFingerprint(ctx, user.ID, fingerprint); err != nil {
		// A concurrent first-time bind of the same device loses the race on
		// the unique index rather than silently double-binding.
		if store.IsUniqueViolation(err) {
			return ErrDeviceAlreadyRegistered
		}
		return apperrors.Wrap(err, "device ledger: bind fingerprint")
	}
	return nil
}
