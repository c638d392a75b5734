package domain

import (
	"context"
	"errors"
)

// Actor is the authenticated caller of an operation
type Actor struct {
	UserID string
	ShopID string
	Role   Role
}

// Role represents a user's access level
type Role string

const (
	// RoleOwner has full access, including closing loans and deleting records
	RoleOwner Role = "owner"

	// RoleStaff can record entries and payments
	RoleStaff Role = "staff"

	// RoleViewer can only view resources, no mutations
	RoleViewer Role = "viewer"
)

// Valid roles
var validRoles = map[Role]bool{
	RoleOwner:  true,
	RoleStaff:  true,
	RoleViewer: true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanCreate checks if the role can create resources
func (r Role) CanCreate() bool {
	return r == RoleOwner || r == RoleStaff
}

// CanDelete checks if the role can delete resources or close loans
func (r Role) CanDelete() bool {
	return r == RoleOwner
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
	ErrMissingShop      = errors.New("shop scope is required")
)

type actorKey struct{}

// WithActor stores the actor in ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the actor stored in ctx.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
