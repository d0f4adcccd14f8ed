package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eventhub/backend/services/common/auth"
	apperrors "github.com/eventhub/backend/services/common/errors"
)

const (
	UserContextKey  = "userID"
	RoleContextKey  = "role"
	EmailContextKey = "email"
	AdminRole       = "admin"

	GatewaySecretHeader = "X-Gateway-Secret"
)

// Authenticator resolves the caller from gateway headers, gateway cookies or
// a bearer access token, in that order. Gateway values are read only when
// the request carries the configured gateway secret.
type Authenticator struct {
	tokens        *auth.TokenParser
	gatewaySecret []byte
}

type Option func(*Authenticator)

// WithGatewaySecret trusts X-User-* headers and user_* cookies on requests
// presenting secret in X-Gateway-Secret. An empty secret trusts nothing.
func WithGatewaySecret(secret string) Option {
	return func(a *Authenticator) {
		a.gatewaySecret = []byte(secret)
	}
}

// NewAuthenticator accepts a nil parser, which disables bearer tokens.
func NewAuthenticator(tokens *auth.TokenParser, opts ...Option) *Authenticator {
	a := &Authenticator{tokens: tokens}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Authenticator) fromGateway(c *gin.Context) bool {
	if len(a.gatewaySecret) == 0 {
		return false
	}
	presented := []byte(c.GetHeader(GatewaySecretHeader))
	return subtle.ConstantTimeCompare(presented, a.gatewaySecret) == 1
}

func gatewayIdentity(c *gin.Context) *auth.Identity {
	id := &auth.Identity{
		UserID: c.GetHeader("X-User-ID"),
		Role:   c.GetHeader("X-User-Role"),
		Email:  c.GetHeader("X-User-Email"),
	}
	if id.UserID == "" {
		if v, err := c.Cookie("user_id"); err == nil {
			id.UserID = v
			if r, err := c.Cookie("user_role"); err == nil {
				id.Role = r
			}
			if e, err := c.Cookie("user_email"); err == nil {
				id.Email = e
			}
		}
	}
	if id.UserID == "" {
		return nil
	}
	return id
}

func (a *Authenticator) identify(c *gin.Context) (*auth.Identity, error) {
	if a.fromGateway(c) {
		if id := gatewayIdentity(c); id != nil {
			return id, nil
		}
	}

	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, nil
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || a.tokens == nil {
		return nil, apperrors.ErrInvalidToken
	}
	tokID, err := a.tokens.IdentityFromToken(strings.TrimSpace(token))
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	return tokID, nil
}

func setIdentity(c *gin.Context, id *auth.Identity) {
	c.Set(UserContextKey, id.UserID)
	c.Set(RoleContextKey, id.Role)
	c.Set(EmailContextKey, id.Email)
}

// Optional attaches the caller when one is presented. Anonymous requests pass;
// a bad token does not.
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := a.identify(c)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		if id != nil {
			setIdentity(c, id)
		}
		c.Next()
	}
}

// Required rejects anonymous callers.
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := a.identify(c)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		if id == nil {
			apperrors.Respond(c, apperrors.ErrUnauthorized)
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != AdminRole {
			apperrors.Respond(c, apperrors.Forbidden("admin role required"))
			return
		}
		c.Next()
	}
}

// Helper functions for controllers

func GetUserID(c *gin.Context) string {
	return c.GetString(UserContextKey)
}

func GetRole(c *gin.Context) string {
	return c.GetString(RoleContextKey)
}

func GetEmail(c *gin.Context) string {
	return c.GetString(EmailContextKey)
}
