package auth

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingToken     = errors.New("missing access token")
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrInsufficientRole = errors.New("insufficient role")
)

// Gate authenticates a connection attempt and checks the caller's role before
// any per-connection state is created.
type Gate struct {
	jwt     *JWTService
	minRole Role
}

func NewGate(jwtService *JWTService, minRole Role) *Gate {
	return &Gate{jwt: jwtService, minRole: minRole}
}

// Authorize returns the identity of the caller. The token is read from the
// `token` query parameter or from an `Authorization: Bearer` header.
func (g *Gate) Authorize(r *http.Request) (*Claims, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := g.jwt.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if !claims.Role.AtLeast(g.minRole) {
		return nil, ErrInsufficientRole
	}
	return claims, nil
}

// TokenFromRequest extracts a bearer token from the query string or the
// Authorization header.
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// StatusForError maps a Gate error onto an HTTP status code.
func StatusForError(err error) int {
	if errors.Is(err, ErrInsufficientRole) {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}
