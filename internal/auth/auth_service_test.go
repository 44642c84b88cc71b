package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campuskit/rollcall/internal/models"
	"github.com/campuskit/rollcall/internal/store"
	"github.com/campuskit/rollcall/pkg/crypto"
	apperrors "github.com/campuskit/rollcall/pkg/errors"
)

func newTestAuthService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	st, err := store.NewGormStore(db)
	require.NoError(t, err)

	jwtService, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "rollcall-test"})
	require.NoError(t, err)

	svc, err := NewAuthService(st, jwtService)
	require.NoError(t, err)
	return svc, db
}

func TestRegisterHashesPasswordAndNormalizesEmail(t *testing.T) {
	svc, db := newTestAuthService(t)

	user, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Ada Lovelace",
		Email:    "  Ada@Example.com ",
		Password: "correct horse",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", user.Email)
	require.Equal(t, models.RoleTeacher, user.Role)
	require.NotEqual(t, "correct horse", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "correct horse"))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRegisterDefaultsToStudentRole(t *testing.T) {
	svc, _ := newTestAuthService(t)

	user, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Grace Hopper",
		Email:    "grace@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, user.Role)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "correct horse"})
	require.Error(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "short"})
	require.Error(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "correct horse", Role: "janitor"})
	require.Error(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "dup@example.com", Password: "correct horse"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "B", Email: "DUP@example.com", Password: "correct horse"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginIssuesToken(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "correct horse"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.Equal(t, registered.ID, result.User.ID)

	claims, err := svc.jwt.ValidateAccessToken(result.Token)
	require.NoError(t, err)
	require.Equal(t, registered.ID, claims.UserID)
	require.Equal(t, models.RoleStudent, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "correct horse"})
	require.NoError(t, err)

	// Unknown email and wrong password fail identically.
	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "correct horse"})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "wrong"})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestCurrentUser(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "correct horse"})
	require.NoError(t, err)

	user, err := svc.CurrentUser(ctx, &Claims{UserID: registered.ID})
	require.NoError(t, err)
	require.Equal(t, registered.Email, user.Email)

	_, err = svc.CurrentUser(ctx, &Claims{UserID: "00000000-0000-0000-0000-000000000000"})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = svc.CurrentUser(ctx, nil)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
