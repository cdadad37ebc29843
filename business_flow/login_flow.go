// Package businessflow contains the core business logic and use cases for authentication workflows
package businessflow

import (
	"context"

	"github.com/wappanel/wappanel-backend/app/dto"
	"github.com/wappanel/wappanel-backend/app/services"
	"github.com/wappanel/wappanel-backend/repository"
	"golang.org/x/crypto/bcrypt"
)

// LoginFlow handles tenant authentication
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	customerRepo repository.CustomerRepository
	tokenService services.TokenService
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(customerRepo repository.CustomerRepository, tokenService services.TokenService) LoginFlow {
	return &LoginFlowImpl{
		customerRepo: customerRepo,
		tokenService: tokenService,
	}
}

// Login checks credentials and issues access and refresh tokens. Bad email
// and bad password collapse into the same error.
func (s *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	customer, err := s.customerRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to lookup customer", err)
	}
	if customer == nil {
		return nil, NewBusinessError(CodeUnauthenticated, "Invalid credentials", ErrCustomerNotFound)
	}
	if customer.IsActive != nil && !*customer.IsActive {
		return nil, NewBusinessError(CodeUnauthenticated, "Account is inactive", ErrAccountInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(req.Password)); err != nil {
		return nil, NewBusinessError(CodeUnauthenticated, "Invalid credentials", ErrIncorrectPassword)
	}

	accessToken, refreshToken, err := s.tokenService.GenerateTokens(customer.ID)
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to issue tokens", err)
	}

	return &dto.LoginResponse{
		Message:      "Login successful",
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Customer:     ToCustomerDTO(*customer),
	}, nil
}

// RefreshTokens exchanges a refresh token for a fresh token pair
func (s *LoginFlowImpl) RefreshTokens(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	accessToken, newRefreshToken, err := s.tokenService.RefreshToken(refreshToken)
	if err != nil {
		return nil, NewBusinessError(CodeUnauthenticated, "Invalid refresh token", err)
	}

	claims, err := s.tokenService.ValidateToken(accessToken)
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to read issued token", err)
	}

	customer, err := getCustomer(ctx, s.customerRepo, claims.CustomerID)
	if err != nil {
		return nil, NewBusinessError(CodeUnauthenticated, "Account unavailable", err)
	}

	return &dto.LoginResponse{
		Message:      "Tokens refreshed",
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		Customer:     ToCustomerDTO(*customer),
	}, nil
}
