package services

import (
	"fmt"
	"math"
	"net/http"

	apperrors "github.com/campuskit/rollcall/pkg/errors"
)

// Error codes surfaced by the attendance engine. Every one of these is a
// definitive reject: retrying with the same input cannot succeed.
const (
	CodeSessionNotFound            = "SESSION_NOT_FOUND"
	CodeInvalidSession             = "INVALID_SESSION"
	CodeInvalidQRToken             = "INVALID_QR_TOKEN"
	CodeQRTokenExpired             = "QR_TOKEN_EXPIRED"
	CodeAlreadyMarked              = "ATTENDANCE_ALREADY_MARKED"
	CodeDeviceAlreadyUsedInSession = "DEVICE_ALREADY_USED_IN_SESSION"
	CodeDeviceMismatch             = "DEVICE_MISMATCH"
	CodeDeviceAlreadyRegistered    = "DEVICE_ALREADY_REGISTERED"
	CodeTooFarFromClassroom        = "TOO_FAR_FROM_CLASSROOM"
	CodeUserNotFound               = "USER_NOT_FOUND"
)

var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = apperrors.New(CodeSessionNotFound, "Session not found", http.StatusNotFound)
	// ErrInvalidSession rejects a check-in against a session that does not exist.
	ErrInvalidSession = apperrors.New(CodeInvalidSession, "Invalid session", http.StatusBadRequest)
	// ErrInvalidQRToken rejects a presented token that does not match the
	// session's current one. Deliberately indistinguishable from a stale
	// token so probing clients learn nothing.
	ErrInvalidQRToken = apperrors.New(CodeInvalidQRToken, "Invalid or expired QR code", http.StatusBadRequest)
	// ErrQRTokenExpired rejects a matching token presented after its expiry.
	ErrQRTokenExpired = apperrors.New(CodeQRTokenExpired, "QR code expired", http.StatusBadRequest)
	// ErrAlreadyMarked rejects a second check-in for the same student and session.
	ErrAlreadyMarked = apperrors.New(CodeAlreadyMarked, "Attendance already marked", http.StatusConflict)
	// ErrDeviceAlreadyUsedInSession rejects a device that already marked a
	// different student in the same session.
	ErrDeviceAlreadyUsedInSession = apperrors.New(CodeDeviceAlreadyUsedInSession,
		"This device has already been used to mark another student's attendance for this session", http.StatusForbidden)
	// ErrDeviceMismatch rejects a fingerprint that differs from the one bound
	// to the account.
	ErrDeviceMismatch = apperrors.New(CodeDeviceMismatch,
		"Device mismatch. Please use your originally registered device", http.StatusForbidden)
	// ErrDeviceAlreadyRegistered rejects a fingerprint already bound to
	// another account.
	ErrDeviceAlreadyRegistered = apperrors.New(CodeDeviceAlreadyRegistered,
		"This device is already registered to another student account", http.StatusForbidden)
	// ErrUserNotFound indicates the acting user could not be resolved.
	ErrUserNotFound = apperrors.New(CodeUserNotFound, "User not found", http.StatusNotFound)
)

// NewTooFarError builds the geofence reject, embedding the rounded computed
// distance so the student sees how far off they are.
func NewTooFarError(distanceMeters float64) *apperrors.AppError {
	return apperrors.New(CodeTooFarFromClassroom,
		fmt.Sprintf("You are too far from the classroom (%dm)", int(math.Round(distanceMeters))),
		http.StatusForbidden)
}

// rejectReasons maps reject codes to the audit reason recorded alongside the
// failure.
var rejectReasons = map[string]string{
	CodeInvalidSession:             "Invalid session",
	CodeInvalidQRToken:             "Invalid QR token",
	CodeQRTokenExpired:             "Expired QR token",
	CodeAlreadyMarked:              "Attendance already marked",
	CodeDeviceAlreadyUsedInSession: "Device already used in session",
	CodeUserNotFound:               "User not found",
	CodeDeviceMismatch:             "Device mismatch",
	CodeDeviceAlreadyRegistered:    "Device already registered",
	CodeTooFarFromClassroom:        "Location out of range",
}
