package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Identity is what downstream handlers need to know about the caller.
type Identity struct {
	UserID string
	Role   string
	Email  string
}

// TokenParser validates HS256 access tokens issued by the identity provider.
type TokenParser struct {
	secret []byte
}

// NewTokenParser returns nil when secret is blank, which disables bearer
// authentication.
func NewTokenParser(secret string) *TokenParser {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	return &TokenParser{secret: []byte(secret)}
}

// ParseAndValidateToken parses tokenStr and returns its claims. If
// expectedType is non-empty, the "typ" claim must match it.
func (p *TokenParser) ParseAndValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error) {
	if p == nil {
		return nil, fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if expectedType != "" {
		if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
			return nil, fmt.Errorf("invalid token type")
		}
	}
	return claims, nil
}

// IdentityFromToken validates an access token and extracts the caller.
func (p *TokenParser) IdentityFromToken(tokenStr string) (*Identity, error) {
	claims, err := p.ParseAndValidateToken(tokenStr, "access")
	if err != nil {
		return nil, err
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)
	return &Identity{UserID: sub, Role: role, Email: email}, nil
}
