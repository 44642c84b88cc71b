package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestJWTService(t *testing.T, clock func() time.Time) *JWTService {
	t.Helper()

	svc, err := NewJWTService(JWTConfig{
		Secret: "test-secret",
		Issuer: "rollcall-test",
		Clock:  clock,
	})
	require.NoError(t, err)
	return svc
}

func TestJWTRoundTrip(t *testing.T) {
	svc := newTestJWTService(t, nil)

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-1", Role: "teacher"})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "teacher", claims.Role)
	require.Equal(t, "rollcall-test", claims.Issuer)
}

func TestJWTRequiresUserAndRole(t *testing.T) {
	svc := newTestJWTService(t, nil)

	_, err := svc.GenerateAccessToken(AccessTokenInput{Role: "student"})
	require.Error(t, err)

	_, err = svc.GenerateAccessToken(AccessTokenInput{UserID: "user-1"})
	require.Error(t, err)
}

func TestJWTExpiredToken(t *testing.T) {
	base := time.Now()
	current := base
	svc := newTestJWTService(t, func() time.Time { return current })

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-1", Role: "student"})
	require.NoError(t, err)

	current = base.Add(DefaultAccessTokenTTL + time.Minute)
	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	svc := newTestJWTService(t, nil)

	other, err := NewJWTService(JWTConfig{Secret: "other-secret", Issuer: "rollcall-test"})
	require.NoError(t, err)

	token, err := other.GenerateAccessToken(AccessTokenInput{UserID: "user-1", Role: "student"})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestJWTRejectsWrongIssuer(t *testing.T) {
	svc := newTestJWTService(t, nil)

	other, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "someone-else"})
	require.NoError(t, err)

	token, err := other.GenerateAccessToken(AccessTokenInput{UserID: "user-1", Role: "student"})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestJWTRejectsGarbage(t *testing.T) {
	svc := newTestJWTService(t, nil)

	_, err := svc.ValidateAccessToken("")
	require.Error(t, err)

	_, err = svc.ValidateAccessToken("not.a.token")
	require.Error(t, err)
}
