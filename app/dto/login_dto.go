package dto

// LoginRequest represents the request to authenticate a tenant
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// CustomerDTO represents the authenticated tenant in responses
type CustomerDTO struct {
	ID                uint   `json:"id"`
	UUID              string `json:"uuid"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	GatewayInstanceID string `json:"gateway_instance_id"`
}

// LoginResponse represents the response to a successful login
type LoginResponse struct {
	Message      string      `json:"message"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	Customer     CustomerDTO `json:"customer"`
}

// RefreshTokenRequest represents the request to rotate an access token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
