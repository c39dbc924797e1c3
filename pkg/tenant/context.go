package tenant

import (
	"context"
	"errors"
)

// Context keys for client scoping
type contextKey string

const (
	clientIDKey contextKey = "clientId"
	userIDKey   contextKey = "userId"
	roleKey     contextKey = "role"
)

// Roles
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// Errors for client context operations
var (
	ErrMissingClientContext = errors.New("client context is required")
	ErrUnauthorizedAccess   = errors.New("unauthorized access to client resource")
	ErrMissingClientID      = errors.New("clientId is required")
	ErrAdminOnly            = errors.New("operation requires admin role")
)

// Context holds the identifiers that scope a request to a portal client.
// Every repository query is filtered by ClientID; admins may act across clients.
type Context struct {
	// ClientID is the merchant using the 3PL's services
	ClientID string `json:"clientId"`

	// UserID is the authenticated portal user
	UserID string `json:"userId"`

	// Role is either "admin" (3PL staff) or "client" (merchant user)
	Role string `json:"role"`
}

// FromContext extracts the client Context from context.Context.
// Returns an error if no client scoping is present.
func FromContext(ctx context.Context) (*Context, error) {
	tc := &Context{}

	if v := ctx.Value(clientIDKey); v != nil {
		if id, ok := v.(string); ok {
			tc.ClientID = id
		}
	}
	if v := ctx.Value(userIDKey); v != nil {
		if id, ok := v.(string); ok {
			tc.UserID = id
		}
	}
	if v := ctx.Value(roleKey); v != nil {
		if r, ok := v.(string); ok {
			tc.Role = r
		}
	}

	// Admins may operate without a client scope
	if tc.ClientID == "" && tc.Role != RoleAdmin {
		return nil, ErrMissingClientContext
	}

	return tc, nil
}

// FromContextOptional extracts the client Context, returning an empty context
// if none exists.
func FromContextOptional(ctx context.Context) *Context {
	tc, _ := FromContext(ctx)
	if tc == nil {
		return &Context{}
	}
	return tc
}

// ToContext adds client Context values to context.Context.
func ToContext(ctx context.Context, tc *Context) context.Context {
	if tc == nil {
		return ctx
	}

	if tc.ClientID != "" {
		ctx = context.WithValue(ctx, clientIDKey, tc.ClientID)
	}
	if tc.UserID != "" {
		ctx = context.WithValue(ctx, userIDKey, tc.UserID)
	}
	if tc.Role != "" {
		ctx = context.WithValue(ctx, roleKey, tc.Role)
	}

	return ctx
}

// WithClientID returns a new context with the client ID set
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey, clientID)
}

// WithUserID returns a new context with the user ID set
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// WithRole returns a new context with the role set
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

// GetClientID extracts the client ID from context
func GetClientID(ctx context.Context) string {
	if v := ctx.Value(clientIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// GetUserID extracts the user ID from context
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(userIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// GetRole extracts the role from context
func GetRole(ctx context.Context) string {
	if v := ctx.Value(roleKey); v != nil {
		if r, ok := v.(string); ok {
			return r
		}
	}
	return ""
}

// IsEmpty returns true if the context has no identifiers set
func (tc *Context) IsEmpty() bool {
	return tc.ClientID == "" && tc.UserID == ""
}

// IsAdmin returns true if the context carries the admin role
func (tc *Context) IsAdmin() bool {
	return tc.Role == RoleAdmin
}

// Validate checks that the required client scope is present
func (tc *Context) Validate() error {
	if tc.ClientID == "" && !tc.IsAdmin() {
		return ErrMissingClientID
	}
	return nil
}

// RequireAdmin returns an error unless the context carries the admin role
func (tc *Context) RequireAdmin() error {
	if !tc.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}

// ValidateOwnership verifies that a resource belongs to this client context.
// Admins may access any client's resources.
func (tc *Context) ValidateOwnership(resourceClientID string) error {
	if tc.IsAdmin() {
		return nil
	}
	if tc.ClientID != "" && resourceClientID != "" && tc.ClientID != resourceClientID {
		return ErrUnauthorizedAccess
	}
	return nil
}
