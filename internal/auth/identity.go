package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned when a callback token cannot be decoded into
// an identity.
var ErrMalformedToken = errors.New("auth: malformed token")

// Identity is the display identity carried by the backend's token.
type Identity struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// DisplayName is what the navbar shows after "Signed in as".
func (i Identity) DisplayName() string {
	for _, v := range []string{i.Username, i.Name, i.Email, i.ID} {
		if v != "" {
			return v
		}
	}
	return ""
}

type tokenClaims struct {
	UserID    any    `json:"id"`
	Username  string `json:"username"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	jwt.RegisteredClaims
}

// DecodeIdentity reads the identity claims of token. The signature is not
// checked here; the backend verifies the token on every API call.
func DecodeIdentity(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrMalformedToken
	}
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	id := claimString(claims.UserID)
	if id == "" {
		id = claims.Subject
	}
	username := claims.Username
	if username == "" {
		username = claims.Login
	}
	identity := Identity{
		ID:        id,
		Username:  username,
		Name:      claims.Name,
		Email:     claims.Email,
		AvatarURL: claims.AvatarURL,
	}
	if identity.ID == "" && identity.DisplayName() == "" {
		return Identity{}, fmt.Errorf("%w: no identity claims", ErrMalformedToken)
	}
	if identity.ID == "" {
		identity.ID = identity.DisplayName()
	}
	return identity, nil
}

func claimString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprint(t)
	}
}
