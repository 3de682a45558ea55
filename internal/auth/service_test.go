package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgAuth "github.com/davidhalperin/gemcore-backend/pkg/auth"
	"github.com/davidhalperin/gemcore-backend/pkg/auth/session"
	"github.com/davidhalperin/gemcore-backend/pkg/config"
	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	"github.com/davidhalperin/gemcore-backend/pkg/enums"
	pkgerrors "github.com/davidhalperin/gemcore-backend/pkg/errors"
	"github.com/davidhalperin/gemcore-backend/pkg/security"
)

type stubUserRepo struct {
	user *models.User
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) TouchLastLogin(_ context.Context, _ uuid.UUID, at time.Time) error {
	return nil
}

type stubSessionManager struct {
	generated []string
	rotateErr error
	revoked   []string
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	newID := session.NewAccessID()
	return newID, "refresh-" + newID, nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "gemcore-test", ExpirationMinutes: 15}
}

func testUser(t *testing.T, password string, active bool) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	require.NoError(t, err)
	return &models.User{
		ID:           uuid.New(),
		Email:        "dana@gemcore.example",
		PasswordHash: hash,
		FirstName:    "Dana",
		LastName:     "Klein",
		Role:         enums.UserRoleStaff,
		IsActive:     active,
	}
}

func newAuthService(t *testing.T, repo userRepository, mgr sessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: mgr,
		JWTConfig:      testJWTConfig(),
	})
	require.NoError(t, err)
	return svc
}

func TestLoginIssuesTokenPair(t *testing.T) {
	user := testUser(t, "correct-horse", true)
	mgr := &stubSessionManager{}
	svc := newAuthService(t, &stubUserRepo{user: user}, mgr)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "Dana@Gemcore.Example",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, enums.UserRoleStaff, claims.Role)

	require.Len(t, mgr.generated, 1)
	assert.Equal(t, claims.ID, mgr.generated[0], "refresh session keyed by the jti")
	assert.Equal(t, "refresh-"+claims.ID, resp.RefreshToken)
	assert.Equal(t, "Dana Klein", resp.User.DisplayName)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	user := testUser(t, "correct-horse", true)
	svc := newAuthService(t, &stubUserRepo{user: user}, &stubSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "dana@gemcore.example",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	user := testUser(t, "correct-horse", false)
	svc := newAuthService(t, &stubUserRepo{user: user}, &stubSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "dana@gemcore.example",
		Password: "correct-horse",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := newAuthService(t, &stubUserRepo{}, &stubSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "ghost@gemcore.example",
		Password: "whatever",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestRefreshRotatesSession(t *testing.T) {
	user := testUser(t, "correct-horse", true)
	mgr := &stubSessionManager{}
	svc := newAuthService(t, &stubUserRepo{user: user}, mgr)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "dana@gemcore.example",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	resp, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.NotEqual(t, login.AccessToken, resp.AccessToken)
}

func TestRefreshRejectsInvalidRefreshToken(t *testing.T) {
	user := testUser(t, "correct-horse", true)
	mgr := &stubSessionManager{rotateErr: session.ErrInvalidRefreshToken}
	svc := newAuthService(t, &stubUserRepo{user: user}, mgr)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "dana@gemcore.example",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: "forged",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestLogoutRevokesSession(t *testing.T) {
	mgr := &stubSessionManager{}
	svc := newAuthService(t, &stubUserRepo{}, mgr)

	require.NoError(t, svc.Logout(context.Background(), "session-1"))
	assert.Equal(t, []string{"session-1"}, mgr.revoked)

	err := svc.Logout(context.Background(), "  ")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}
