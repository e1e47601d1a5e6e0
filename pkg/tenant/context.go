package tenant

import (
	"context"
	"errors"
)

// Context keys for tenant information
type contextKey string

const (
	companyIDKey  contextKey = "companyId"
	locationIDKey contextKey = "locationId"
	userIDKey     contextKey = "userId"
)

// Errors for tenant scope operations
var (
	ErrMissingScope      = errors.New("tenant scope is required")
	ErrMissingCompanyID  = errors.New("companyId is required")
	ErrMissingLocationID = errors.New("locationId is required")
	ErrScopeMismatch     = errors.New("resource belongs to a different tenant scope")
)

// Scope holds the identifiers every operation is scoped to.
// CompanyID is the owning company, LocationID the warehouse within it.
// UserID is the acting user and is carried for auditing and default
// assignment, not for data scoping.
type Scope struct {
	CompanyID  string `json:"companyId"`
	LocationID string `json:"locationId"`
	UserID     string `json:"userId,omitempty"`
}

// FromContext extracts the tenant Scope from context.Context.
// Returns an error when the scoping pair is incomplete.
func FromContext(ctx context.Context) (*Scope, error) {
	s := &Scope{}

	if v, ok := ctx.Value(companyIDKey).(string); ok {
		s.CompanyID = v
	}
	if v, ok := ctx.Value(locationIDKey).(string); ok {
		s.LocationID = v
	}
	if v, ok := ctx.Value(userIDKey).(string); ok {
		s.UserID = v
	}

	if s.CompanyID == "" && s.LocationID == "" {
		return nil, ErrMissingScope
	}

	return s, nil
}

// ToContext adds Scope values to context.Context.
func ToContext(ctx context.Context, s *Scope) context.Context {
	if s == nil {
		return ctx
	}

	if s.CompanyID != "" {
		ctx = context.WithValue(ctx, companyIDKey, s.CompanyID)
	}
	if s.LocationID != "" {
		ctx = context.WithValue(ctx, locationIDKey, s.LocationID)
	}
	if s.UserID != "" {
		ctx = context.WithValue(ctx, userIDKey, s.UserID)
	}

	return ctx
}

// GetCompanyID extracts the company ID from context
func GetCompanyID(ctx context.Context) string {
	if v, ok := ctx.Value(companyIDKey).(string); ok {
		return v
	}
	return ""
}

// GetLocationID extracts the location ID from context
func GetLocationID(ctx context.Context) string {
	if v, ok := ctx.Value(locationIDKey).(string); ok {
		return v
	}
	return ""
}

// GetUserID extracts the acting user ID from context
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// IsEmpty returns true if the scope has no identifiers set
func (s *Scope) IsEmpty() bool {
	return s.CompanyID == "" && s.LocationID == ""
}

// Validate checks that both scoping identifiers are present
func (s *Scope) Validate() error {
	if s.CompanyID == "" {
		return ErrMissingCompanyID
	}
	if s.LocationID == "" {
		return ErrMissingLocationID
	}
	return nil
}

// ValidateOwnership verifies that a resource belongs to this scope.
// Used to prevent cross-tenant data access.
func (s *Scope) ValidateOwnership(resourceCompanyID, resourceLocationID string) error {
	if s.CompanyID != "" && resourceCompanyID != "" && s.CompanyID != resourceCompanyID {
		return ErrScopeMismatch
	}
	if s.LocationID != "" && resourceLocationID != "" && s.LocationID != resourceLocationID {
		return ErrScopeMismatch
	}
	return nil
}
