package grantkit

import "context"

// AccessChecker is an access-checking view bound to one acting identity.
// It is typically created by the Service and stored in context for use in
// handlers. Every check queries the store live, so a grant made elsewhere is
// visible on the next call.
type AccessChecker struct {
	ident   *Identity
	service *Service
}

// NewAccessChecker creates a new AccessChecker for an identity. A nil
// identity produces a checker for the anonymous caller, which only sees
// public grants.
func NewAccessChecker(ident *Identity, service *Service) *AccessChecker {
	return &AccessChecker{
		ident:   ident,
		service: service,
	}
}

// IdentityID returns the id of the identity this checker is for, or the
// empty string for the anonymous caller.
func (c *AccessChecker) IdentityID() string {
	return actorID(c.ident)
}

// IsAdmin reports whether the bound identity bypasses access checks.
func (c *AccessChecker) IsAdmin() bool {
	return c.ident.IsAdmin()
}

// Can reports whether the identity holds at least the given action on the
// resource, directly, via inheritance, or via a public grant.
//
// Example:
//
//	if ok, _ := checker.Can(ctx, docID, grantkit.ActionWrite); ok {
//	    // caller may modify the document
//	}
func (c *AccessChecker) Can(ctx context.Context, resourceID string, action Action) (bool, error) {
	return c.service.Allows(ctx, c.ident, resourceID, action)
}

// CanRead reports whether the identity can read the resource.
func (c *AccessChecker) CanRead(ctx context.Context, resourceID string) (bool, error) {
	return c.Can(ctx, resourceID, ActionRead)
}

// CanWrite reports whether the identity can modify the resource.
func (c *AccessChecker) CanWrite(ctx context.Context, resourceID string) (bool, error) {
	return c.Can(ctx, resourceID, ActionWrite)
}

// CanOwn reports whether the identity owns the resource.
func (c *AccessChecker) CanOwn(ctx context.Context, resourceID string) (bool, error) {
	return c.Can(ctx, resourceID, ActionOwn)
}

// Highest returns the strongest action the identity holds on the resource.
// The boolean is false when it holds none.
func (c *AccessChecker) Highest(ctx context.Context, resourceID string) (Action, bool, error) {
	return c.service.HighestAction(ctx, c.ident, resourceID)
}

// Accessible returns the resource ids of the given kind the identity can
// reach at the given action level. The boolean is true for admins, whose
// visibility is unrestricted and not enumerable.
func (c *AccessChecker) Accessible(ctx context.Context, action Action, kind string) ([]string, bool, error) {
	return c.service.AccessibleIDs(ctx, c.ident, action, kind)
}
