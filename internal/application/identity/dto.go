package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/sasa-apparel/backend/internal/domain/analytics"
)

// LoginInput contains login credentials
type LoginInput struct {
	Username string
	Password string
	IP       string
}

// UserInfo is the account view returned to the client after authentication
type UserInfo struct {
	ID          uuid.UUID      `json:"id"`
	TenantID    *uuid.UUID     `json:"tenant_id,omitempty"`
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email,omitempty"`
	Role        analytics.Role `json:"role"`
	VendorID    *uuid.UUID     `json:"vendor_id,omitempty"`
	TailorID    *uuid.UUID     `json:"tailor_id,omitempty"`
}

// LoginResult contains the outcome of a successful login
type LoginResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
	User                  UserInfo
}

// RefreshTokenInput contains the refresh token
type RefreshTokenInput struct {
	RefreshToken string
}

// RefreshTokenResult contains the new token pair
type RefreshTokenResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
}

// LogoutInput identifies the session being terminated
type LogoutInput struct {
	UserID         uuid.UUID
	TokenJTI       string
	TokenExpiresAt time.Time
}

// GetCurrentUserInput identifies the authenticated account
type GetCurrentUserInput struct {
	UserID uuid.UUID
}

// ChangePasswordInput contains a password change request
type ChangePasswordInput struct {
	UserID      uuid.UUID
	OldPassword string
	NewPassword string
}
