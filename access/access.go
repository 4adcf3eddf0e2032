// Package access resolves and checks the capability bundle a caller acts with.
package access

import (
	"context"

	"github.com/linesmerrill/cfs-intake-api/apperror"
)

// Capability is a named boolean permission resolved once per request
type Capability string

// Capabilities checked by the CFS operations
const (
	CanCreateCfs      Capability = "canCreateCfs"
	CanTriageCfs      Capability = "canTriageCfs"
	CanUpdateCfs      Capability = "canUpdateCfs"
	CanDeleteCfs      Capability = "canDeleteCfs"
	CanDispatchCfs    Capability = "canDispatchCfs"
	CanShareCfs       Capability = "canShareCfs"
	CanPublicTrackCfs Capability = "canPublicTrackCfs"
)

// Set is an immutable-by-convention collection of capabilities
type Set map[Capability]bool

// NewSet builds a Set holding caps
func NewSet(caps ...Capability) Set {
	s := make(Set, len(caps))
	for _, c := range caps {
		s[c] = true
	}
	return s
}

// Context is the resolved identity a caller acts with. It is passed explicitly into
// every operation.
type Context struct {
	ProfileID      int64
	OrganizationID *int64
	Capabilities   Set
}

// Has reports whether the context holds c
func (c Context) Has(cap Capability) bool {
	return c.Capabilities[cap]
}

// Require fails with an AuthorizationError when cap is absent
func Require(c Context, cap Capability) error {
	if !c.Has(cap) {
		return &apperror.AuthorizationError{Capability: string(cap)}
	}
	return nil
}

// RequireOrganization returns the acting organization or an OrganizationRequiredError
func RequireOrganization(c Context) (int64, error) {
	if c.OrganizationID == nil {
		return 0, &apperror.OrganizationRequiredError{}
	}
	return *c.OrganizationID, nil
}

// RequireScoped checks cap and then the acting organization, in that order
func RequireScoped(c Context, cap Capability) (int64, error) {
	if err := Require(c, cap); err != nil {
		return 0, err
	}
	return RequireOrganization(c)
}

type ctxKey struct{}

// WithContext stores ac on ctx
func WithContext(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

// FromContext returns the access context stored on ctx
func FromContext(ctx context.Context) (Context, bool) {
	ac, ok := ctx.Value(ctxKey{}).(Context)
	return ac, ok
}
