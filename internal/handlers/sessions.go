package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/rollcall/internal/services"
	"github.com/campuskit/rollcall/pkg/response"
)

// SessionHandler exposes the session lifecycle and QR rotation endpoints.
type SessionHandler struct {
	sessions *services.SessionService
	qr       *services.QRTokenService
}

func NewSessionHandler(sessions *services.SessionService, qr *services.QRTokenService) *SessionHandler {
	return &SessionHandler{sessions: sessions, qr: qr}
}

type createSessionRequest struct {
	Subject     string     `json:"subject" validate:"required,min=2,max=200"`
	StartTime   *time.Time `json:"start_time"`
	LocationLat *float64   `json:"location_lat" validate:"required,latitude"`
	LocationLng *float64   `json:"location_lng" validate:"required,longitude"`
	RadiusM     int        `json:"radius_m" validate:"omitempty,min=10,max=10000"`
}

// POST /api/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.CreateSessionInput{
		TeacherID:   currentUserID(c),
		Subject:     req.Subject,
		LocationLat: req.LocationLat,
		LocationLng: req.LocationLng,
		RadiusM:     req.RadiusM,
	}
	if req.StartTime != nil {
		input.StartTime = *req.StartTime
	}

	session, err := h.sessions.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": session})
}

// GET /api/sessions
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.sessions.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// GET /api/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// POST /api/sessions/:id/end
func (h *SessionHandler) End(c *gin.Context) {
	session, err := h.sessions.End(requestContext(c), c.Param("id"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// POST /api/sessions/:id/qr
func (h *SessionHandler) RotateQR(c *gin.Context) {
	rotation, err := h.qr.Rotate(requestContext(c), c.Param("id"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, rotation)
}

// GET /api/sessions/:id/qr.png
func (h *SessionHandler) QRImage(c *gin.Context) {
	size := parseIntQuery(c, "size", 256)

	png, err := h.qr.CurrentPNG(requestContext(c), c.Param("id"), currentUserID(c), size)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
