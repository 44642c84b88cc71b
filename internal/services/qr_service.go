package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/campuskit/rollcall/internal/models"
	"github.com/campuskit/rollcall/internal/store"
	"github.com/campuskit/rollcall/pkg/crypto"
	apperrors "github.com/campuskit/rollcall/pkg/errors"
	"github.com/campuskit/rollcall/pkg/logger"
	"github.com/campuskit/rollcall/pkg/metrics"
)

// DefaultQRTokenTTL bounds how long a displayed code stays usable.
const DefaultQRTokenTTL = 30 * time.Second

const qrNonceBytes = 16

// QRTokenConfig bundles the settings required to build a QRTokenService.
type QRTokenConfig struct {
	// Secret signs the token payload, binding each token to its session so
	// a captured code cannot be replayed against a different session.
	Secret string
	TTL    time.Duration
	Clock  func() time.Time
}

// TokenRotation is the result of issuing a fresh QR token.
type TokenRotation struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// qrClaims is the signed payload encoded into a rotated token.
type qrClaims struct {
	SessionID string `json:"sid"`
	Nonce     string `json:"nce"`
	jwt.RegisteredClaims
}

// QRTokenService generates and rotates the short-lived per-session token
// displayed as a QR code. It only ever writes the token; validation happens
// in the attendance service by exact comparison against the stored value.
type QRTokenService struct {
	store  store.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	log    *zap.Logger
}

// NewQRTokenService constructs a QRTokenService.
func NewQRTokenService(st store.Store, cfg QRTokenConfig) (*QRTokenService, error) {
	if st == nil {
		return nil, errors.New("qr service: store is required")
	}
	if cfg.Secret == "" {
		return nil, errors.New("qr service: secret is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultQRTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &QRTokenService{
		store:  st,
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    now,
		log:    logger.WithModule("qr"),
	}, nil
}

// TTL returns the configured token lifetime.
func (s *QRTokenService) TTL() time.Duration {
	return s.ttl
}

// Rotate issues a fresh token for the session on behalf of the requester.
// Only the owning teacher or an admin may rotate; the previous token becomes
// invalid the moment the new one is stored.
func (s *QRTokenService) Rotate(ctx context.Context, sessionID, requesterID string) (*TokenRotation, error) {
	ctx = ensureContext(ctx)

	session, err := s.authorize(ctx, sessionID, requesterID)
	if err != nil {
		return nil, err
	}

	rotation, err := s.issue(ctx, session)
	if err != nil {
		return nil, err
	}

	metrics.QRRotations.WithLabelValues("manual").Inc()
	return rotation, nil
}

// RotateActiveSessions refreshes the token of every active session. The
// background rotator calls it on a cadence shorter than the TTL so displayed
// codes never go stale. Failures on individual sessions do not stop the
// sweep.
func (s *QRTokenService) RotateActiveSessions(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)

	sessions, err := s.store.ActiveSessions(ctx)
	if err != nil {
		return 0, apperrors.Wrap(err, "qr service: list active sessions")
	}

	var (
		rotated int
		errs    error
	)
	for i := range sessions {
		if _, err := s.issue(ctx, &sessions[i]); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		rotated++
		metrics.QRRotations.WithLabelValues("scheduled").Inc()
	}

	return rotated, errs
}

// CurrentPNG renders the session's current token as a QR code image,
// rotating first when the stored token is absent or expired. Authorization
// matches Rotate.
func (s *QRTokenService) CurrentPNG(ctx context.Context, sessionID, requesterID string, size int) ([]byte, error) {
	ctx = ensureContext(ctx)

	session, err := s.authorize(ctx, sessionID, requesterID)
	if err != nil {
		return nil, err
	}

	token := session.CurrentQRToken
	if token == "" || session.CurrentQRExpiresAt == nil || s.now().After(*session.CurrentQRExpiresAt) {
		rotation, err := s.issue(ctx, session)
		if err != nil {
			return nil, err
		}
		metrics.QRRotations.WithLabelValues("manual").Inc()
		token = rotation.Token
	}

	if size <= 0 {
		size = 256
	}

	png, err := qrcode.Encode(token, qrcode.Medium, size)
	if err != nil {
		return nil, apperrors.Wrap(err, "qr service: encode image")
	}
	return png, nil
}

func (s *QRTokenService) authorize(ctx context.Context, sessionID, requesterID string) (*models.Session, error) {
	session, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, "qr service: load session")
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	requester, err := s.store.User(ctx, requesterID)
	if err != nil {
		return nil, apperrors.Wrap(err, "qr service: load requester")
	}
	if requester == nil {
		return nil, apperrors.ErrForbidden
	}
	if requester.Role != models.RoleAdmin && session.TeacherID != requester.ID {
		return nil, apperrors.ErrForbidden
	}

	return session, nil
}

// issue signs a fresh token and persists it with its expiry in one write.
func (s *QRTokenService) issue(ctx context.Context, session *models.Session) (*TokenRotation, error) {
	nonce, err := crypto.RandomToken(qrNonceBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "qr service: generate nonce")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := &qrClaims{
		SessionID: session.ID,
		Nonce:     nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apperrors.Wrap(err, "qr service: sign token")
	}

	if err := s.store.UpdateSessionQR(ctx, session.ID, token, expiresAt); err != nil {
		return nil, apperrors.Wrap(err, "qr service: persist token")
	}

	session.CurrentQRToken = token
	session.CurrentQRExpiresAt = &expiresAt

	s.log.Debug("qr token rotated",
		zap.String("session_id", session.ID),
		zap.Time("expires_at", expiresAt),
	)

	return &TokenRotation{Token: token, ExpiresAt: expiresAt}, nil
}
