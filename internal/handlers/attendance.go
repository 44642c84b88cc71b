package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/rollcall/internal/geo"
	"github.com/campuskit/rollcall/internal/services"
	"github.com/campuskit/rollcall/pkg/response"
)

// AttendanceHandler exposes check-in and per-session attendance listing.
type AttendanceHandler struct {
	attendance *services.AttendanceService
}

func NewAttendanceHandler(attendance *services.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

type markAttendanceRequest struct {
	SessionID         string   `json:"session_id" validate:"required,uuid4"`
	QRToken           string   `json:"qr_token" validate:"required"`
	Latitude          *float64 `json:"latitude" validate:"required,latitude"`
	Longitude         *float64 `json:"longitude" validate:"required,longitude"`
	DeviceFingerprint string   `json:"device_fingerprint" validate:"required,min=8,max=256"`
}

// POST /api/attendance/mark
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req markAttendanceRequest
	if !bindAndValidate(c, &req) {
		return
	}

	record, err := h.attendance.Mark(requestContext(c), services.MarkAttendanceInput{
		SessionID:         req.SessionID,
		StudentID:         currentUserID(c),
		QRToken:           req.QRToken,
		Location:          geo.Coordinate{Lat: *req.Latitude, Lng: *req.Longitude},
		DeviceFingerprint: req.DeviceFingerprint,
		IPAddress:         c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"record": record})
}

// GET /api/sessions/:id/attendance
func (h *AttendanceHandler) ListBySession(c *gin.Context) {
	records, err := h.attendance.ListBySession(requestContext(c), c.Param("id"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"records": records})
}
