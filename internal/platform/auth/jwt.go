package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"mailbridge/internal/platform/config"
)

// Claims carried by access tokens issued by the identity service. This
// service only validates tokens; issuance lives elsewhere.
type Claims struct {
	UserID         string `json:"uid"`
	OrganizationID string `json:"oid"`
	Role           string `json:"role"`
	Email          string `json:"email"`
	jwt.RegisteredClaims
}

// Platform-operator roles bypass tenant scoping on admin endpoints.
const (
	RoleAdmin    = "sb_admin"
	RoleOperator = "sb_operator"
)

func (c *Claims) IsPlatformRole() bool {
	return c.Role == RoleAdmin || c.Role == RoleOperator
}

type TokenService struct {
	config config.JWTConfig
}

func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{config: cfg}
}

func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.Secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
