package auth

import (
	"github.com/angelmondragon/conduit-storefront/internal/users"
)

// RegisterRequest creates a password account. Role defaults to client.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required" trim:"-"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=client distributor"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required" trim:"-"`
}

// RefreshRequest pairs the (possibly expired) access token with its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// MagicLinkRequest asks for a sign-in link. Redirect is an optional app path
// appended to the link.
type MagicLinkRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Redirect string `json:"redirect,omitempty" validate:"omitempty,max=512"`
}

// MagicLinkCompleteRequest consumes a link token for the email it was sent to.
type MagicLinkCompleteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

// TokenResponse is returned by every flow that signs a user in.
type TokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int            `json:"expires_in"`
	User         *users.UserDTO `json:"user"`
}
