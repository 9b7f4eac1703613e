package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type Claims struct {
	StaffID   int64  `json:"sid"`
	Email     string `json:"email,omitempty"`
	Role      Role   `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Identity returns the staff identity carried by the claims.
func (c *Claims) Identity() Identity {
	return Identity{ID: c.StaffID, Role: c.Role}
}

type JWTService struct {
	secretKey       []byte
	accessDuration  time.Duration
	refreshDuration time.Duration
}

func NewJWTService(secretKey string) *JWTService {
	return &JWTService{
		secretKey:       []byte(secretKey),
		accessDuration:  12 * time.Hour,
		refreshDuration: 7 * 24 * time.Hour,
	}
}

// GenerateToken issues an access token. Access tokens cover a full service
// shift so that long-lived waiter connections are not cut mid-service.
func (j *JWTService) GenerateToken(staffID int64, email string, role Role) (string, error) {
	return j.sign(staffID, email, role, tokenTypeAccess, j.accessDuration)
}

func (j *JWTService) GenerateRefreshToken(staffID int64, role Role) (string, error) {
	return j.sign(staffID, "", role, tokenTypeRefresh, j.refreshDuration)
}

func (j *JWTService) sign(staffID int64, email string, role Role, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		StaffID:   staffID,
		Email:     email,
		Role:      role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(staffID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

// ValidateToken parses an access token.
func (j *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, tokenTypeAccess)
}

// ValidateRefreshToken parses a refresh token.
func (j *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, tokenTypeRefresh)
}

func (j *JWTService) validate(tokenString, typ string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.TokenType != typ {
		return nil, fmt.Errorf("invalid token type %q", claims.TokenType)
	}
	if claims.StaffID <= 0 {
		return nil, fmt.Errorf("token has no staff id")
	}
	return claims, nil
}
