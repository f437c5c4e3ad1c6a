package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// ActorType identifies who performed a domain action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorAI     ActorType = "ai"
	ActorSystem ActorType = "system"
)

// Actor is the acting principal of a core operation.
type Actor struct {
	TenantID string
	UserID   string
	Type     ActorType
}

// SystemActor returns an actor for unattended writes inside tenantID.
func SystemActor(tenantID string) Actor {
	return Actor{TenantID: tenantID, Type: ActorSystem}
}

// UserIDPtr returns the actor's user id or nil for anonymous actors.
func (a Actor) UserIDPtr() *string {
	if a.UserID == "" {
		return nil
	}
	id := a.UserID
	return &id
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	TenantID string   `json:"tenant_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the acting principal.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return Actor{Type: ActorSystem}
	}
	return Actor{TenantID: c.TenantID, UserID: c.UserID, Type: ActorUser}
}
