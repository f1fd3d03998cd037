package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/lanternmail/lantern/app/dto"
	"github.com/lanternmail/lantern/app/services"
	"github.com/lanternmail/lantern/models"
	"github.com/lanternmail/lantern/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testChallengeID = "challenge-1"

func newAdminAuthFixture(t *testing.T, admins ...*models.Admin) (AdminAuthFlow, *fakeAdminRepo, services.TokenService) {
	t.Helper()
	adminRepo := newFakeAdminRepo(admins...)
	tokenService, err := services.NewTokenService(time.Hour, 24*time.Hour, "lantern-test", "lantern-admin", false, "", "", "test-secret-key-with-enough-length")
	require.NoError(t, err)
	flow := NewAdminAuthFlow(adminRepo, tokenService, &fakeCaptchaService{validChallengeID: testChallengeID})
	return flow, adminRepo, tokenService
}

func testAdmin(t *testing.T, username, password string, active bool) *models.Admin {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.Admin{
		ID:           1,
		UUID:         uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		IsActive:     utils.ToPtr(active),
	}
}

func TestAdminLogin(t *testing.T) {
	t.Run("SuccessfulLogin", func(t *testing.T) {
		flow, adminRepo, tokenService := newAdminAuthFixture(t, testAdmin(t, "editor", "SecurePass123!", true))

		result, err := flow.Login(context.Background(), &dto.AdminLoginRequest{
			Username:    "editor",
			Password:    "SecurePass123!",
			ChallengeID: testChallengeID,
		}, testMetadata())
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, "editor", result.Username)
		require.NotEmpty(t, result.AccessToken)
		require.NotEmpty(t, result.RefreshToken)

		claims, err := tokenService.ValidateAdminToken(result.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, uint(1), claims.AdminID)
		assert.Equal(t, "access", claims.TokenType)

		// Last login is recorded
		assert.NotZero(t, adminRepo.lastLogin[1])
	})

	t.Run("WrongPassword", func(t *testing.T) {
		flow, _, _ := newAdminAuthFixture(t, testAdmin(t, "editor", "SecurePass123!", true))

		result, err := flow.Login(context.Background(), &dto.AdminLoginRequest{
			Username:    "editor",
			Password:    "wrong-password",
			ChallengeID: testChallengeID,
		}, testMetadata())
		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, IsIncorrectPassword(err))
	})

	t.Run("UnknownAdmin", func(t *testing.T) {
		flow, _, _ := newAdminAuthFixture(t)

		_, err := flow.Login(context.Background(), &dto.AdminLoginRequest{
			Username:    "ghost",
			Password:    "whatever",
			ChallengeID: testChallengeID,
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsAdminNotFound(err))
	})

	t.Run("InactiveAdminRejected", func(t *testing.T) {
		flow, _, _ := newAdminAuthFixture(t, testAdmin(t, "editor", "SecurePass123!", false))

		_, err := flow.Login(context.Background(), &dto.AdminLoginRequest{
			Username:    "editor",
			Password:    "SecurePass123!",
			ChallengeID: testChallengeID,
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsAdminInactive(err))
	})

	t.Run("InvalidCaptchaRejectedBeforeLookup", func(t *testing.T) {
		flow, _, _ := newAdminAuthFixture(t, testAdmin(t, "editor", "SecurePass123!", true))

		_, err := flow.Login(context.Background(), &dto.AdminLoginRequest{
			Username:    "editor",
			Password:    "SecurePass123!",
			ChallengeID: "stale-challenge",
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsInvalidCaptcha(err))
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		flow, _, _ := newAdminAuthFixture(t)

		_, err := flow.Login(context.Background(), &dto.AdminLoginRequest{
			ChallengeID: testChallengeID,
		}, testMetadata())
		require.Error(t, err)

		var businessErr *BusinessError
		require.ErrorAs(t, err, &businessErr)
		assert.Equal(t, "ADMIN_LOGIN_VALIDATION_FAILED", businessErr.Code)
	})
}

func TestAdminInitCaptcha(t *testing.T) {
	t.Run("ReturnsChallengeAssets", func(t *testing.T) {
		flow, _, _ := newAdminAuthFixture(t)

		result, err := flow.InitCaptcha(context.Background())
		require.NoError(t, err)
		assert.Equal(t, testChallengeID, result.ChallengeID)
		assert.NotEmpty(t, result.MasterImageBase64)
		assert.NotEmpty(t, result.ThumbImageBase64)
	})

	t.Run("UnavailableWithoutService", func(t *testing.T) {
		flow := NewAdminAuthFlow(newFakeAdminRepo(), nil, nil)

		_, err := flow.InitCaptcha(context.Background())
		require.Error(t, err)
		assert.True(t, IsInvalidCaptcha(err))
	})
}
