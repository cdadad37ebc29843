package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wappanel/wappanel-backend/app/dto"
	"github.com/wappanel/wappanel-backend/app/services"
	"github.com/wappanel/wappanel-backend/models"
	"golang.org/x/crypto/bcrypt"
)

func newLoginFlowFixture(t *testing.T, customers ...*models.Customer) (LoginFlow, services.TokenService) {
	t.Helper()

	tokenService, err := services.NewTokenService(
		15*time.Minute,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false,
		"",
		"",
		"test-secret-key-for-jwt-signing-32-chars",
	)
	require.NoError(t, err)

	return NewLoginFlow(newFakeCustomerRepo(customers...), tokenService), tokenService
}

func customerWithPassword(t *testing.T, id uint, email, password string) *models.Customer {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	c := activeCustomer(id, "inst-1")
	c.Email = email
	c.PasswordHash = string(hash)
	return c
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	metadata := NewClientMetadata("127.0.0.1", "test-agent")

	t.Run("valid credentials issue a token pair", func(t *testing.T) {
		customer := customerWithPassword(t, 1, "owner@example.com", "s3cret-password")
		flow, tokenService := newLoginFlowFixture(t, customer)

		resp, err := flow.Login(ctx, &dto.LoginRequest{
			Email:    "owner@example.com",
			Password: "s3cret-password",
		}, metadata)

		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, "owner@example.com", resp.Customer.Email)

		claims, err := tokenService.ValidateToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, customer.ID, claims.CustomerID)
		assert.Equal(t, "access", claims.TokenType)
	})

	t.Run("unknown email and wrong password look identical", func(t *testing.T) {
		flow, _ := newLoginFlowFixture(t, customerWithPassword(t, 1, "owner@example.com", "s3cret-password"))

		_, unknownErr := flow.Login(ctx, &dto.LoginRequest{
			Email:    "nobody@example.com",
			Password: "s3cret-password",
		}, metadata)
		require.Error(t, unknownErr)
		assert.True(t, IsUnauthenticated(unknownErr))

		_, wrongErr := flow.Login(ctx, &dto.LoginRequest{
			Email:    "owner@example.com",
			Password: "wrong-password",
		}, metadata)
		require.Error(t, wrongErr)
		assert.True(t, IsUnauthenticated(wrongErr))

		unknownBE, _ := AsBusinessError(unknownErr)
		wrongBE, _ := AsBusinessError(wrongErr)
		assert.Equal(t, unknownBE.Message, wrongBE.Message)
	})

	t.Run("inactive account cannot log in", func(t *testing.T) {
		customer := customerWithPassword(t, 1, "owner@example.com", "s3cret-password")
		inactive := false
		customer.IsActive = &inactive
		flow, _ := newLoginFlowFixture(t, customer)

		_, err := flow.Login(ctx, &dto.LoginRequest{
			Email:    "owner@example.com",
			Password: "s3cret-password",
		}, metadata)

		require.Error(t, err)
		assert.True(t, IsUnauthenticated(err))
		assert.ErrorIs(t, err, ErrAccountInactive)
	})
}

func TestRefreshTokens(t *testing.T) {
	ctx := context.Background()
	metadata := NewClientMetadata("127.0.0.1", "test-agent")

	t.Run("refresh token rotates the pair", func(t *testing.T) {
		flow, _ := newLoginFlowFixture(t, customerWithPassword(t, 1, "owner@example.com", "s3cret-password"))

		login, err := flow.Login(ctx, &dto.LoginRequest{
			Email:    "owner@example.com",
			Password: "s3cret-password",
		}, metadata)
		require.NoError(t, err)

		refreshed, err := flow.RefreshTokens(ctx, login.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, refreshed.AccessToken)
		assert.NotEqual(t, login.AccessToken, refreshed.AccessToken)
		assert.Equal(t, login.Customer.UUID, refreshed.Customer.UUID)
	})

	t.Run("access token is not accepted as refresh token", func(t *testing.T) {
		flow, _ := newLoginFlowFixture(t, customerWithPassword(t, 1, "owner@example.com", "s3cret-password"))

		login, err := flow.Login(ctx, &dto.LoginRequest{
			Email:    "owner@example.com",
			Password: "s3cret-password",
		}, metadata)
		require.NoError(t, err)

		_, err = flow.RefreshTokens(ctx, login.AccessToken)
		require.Error(t, err)
		assert.True(t, IsUnauthenticated(err))
	})

	t.Run("garbage refresh token is rejected", func(t *testing.T) {
		flow, _ := newLoginFlowFixture(t)

		_, err := flow.RefreshTokens(ctx, "not.a.token")
		require.Error(t, err)
		assert.True(t, IsUnauthenticated(err))
	})
}
