package grantkit

import (
	"context"
)

// Context keys for grantkit values.
type contextKey string

const (
	contextKeyIdentity  contextKey = "grantkit:identity"
	contextKeyIPAddress contextKey = "grantkit:ip_address"
	contextKeyUserAgent contextKey = "grantkit:user_agent"
	contextKeyRequestID contextKey = "grantkit:request_id"
	contextKeyChecker   contextKey = "grantkit:checker"
)

// WithIdentity adds the acting identity to the context.
// A context without an identity represents an anonymous caller.
func WithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, ident)
}

// GetIdentity retrieves the acting identity from context.
// Returns nil if not set (anonymous caller).
func GetIdentity(ctx context.Context) *Identity {
	if v := ctx.Value(contextKeyIdentity); v != nil {
		if i, ok := v.(*Identity); ok {
			return i
		}
	}
	return nil
}

// MustGetIdentity retrieves the acting identity from context.
// Panics if not set.
func MustGetIdentity(ctx context.Context) *Identity {
	ident := GetIdentity(ctx)
	if ident == nil {
		panic("grantkit: identity not in context")
	}
	return ident
}

// WithIPAddress adds the client IP address to the context (for audit).
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

// GetIPAddress retrieves the IP address from context.
func GetIPAddress(ctx context.Context) string {
	if v := ctx.Value(contextKeyIPAddress); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithUserAgent adds the user agent to the context (for audit).
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// GetUserAgent retrieves the user agent from context.
func GetUserAgent(ctx context.Context) string {
	if v := ctx.Value(contextKeyUserAgent); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context (for audit and correlation).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(contextKeyRequestID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithChecker adds an AccessChecker to the context.
// This is set by middleware and can be retrieved in handlers.
func WithChecker(ctx context.Context, checker *AccessChecker) context.Context {
	return context.WithValue(ctx, contextKeyChecker, checker)
}

// GetChecker retrieves the AccessChecker from context.
// Returns nil if not set.
func GetChecker(ctx context.Context) *AccessChecker {
	if v := ctx.Value(contextKeyChecker); v != nil {
		if c, ok := v.(*AccessChecker); ok {
			return c
		}
	}
	return nil
}

// FromContext retrieves the AccessChecker from context.
// Alias for GetChecker for convenience.
func FromContext(ctx context.Context) *AccessChecker {
	return GetChecker(ctx)
}

// AuditContext holds the request metadata recorded alongside audit entries.
type AuditContext struct {
	IPAddress string
	UserAgent string
	RequestID string
}

// GetAuditContext extracts all audit metadata from context.
func GetAuditContext(ctx context.Context) AuditContext {
	return AuditContext{
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
		RequestID: GetRequestID(ctx),
	}
}

// WithAuditContext adds all audit metadata to context at once.
func WithAuditContext(ctx context.Context, ac AuditContext) context.Context {
	if ac.IPAddress != "" {
		ctx = WithIPAddress(ctx, ac.IPAddress)
	}
	if ac.UserAgent != "" {
		ctx = WithUserAgent(ctx, ac.UserAgent)
	}
	if ac.RequestID != "" {
		ctx = WithRequestID(ctx, ac.RequestID)
	}
	return ctx
}
