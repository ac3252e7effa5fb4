package grantkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestContextIdentity validates identity storage and the anonymous default.
func TestContextIdentity(t *testing.T) {
	ctx := context.Background()

	// Absent identity means anonymous
	assert.Nil(t, GetIdentity(ctx))

	ident := &Identity{ID: "user-1", Roles: []string{"member"}}
	ctx = WithIdentity(ctx, ident)

	got := GetIdentity(ctx)
	assert.NotNil(t, got)
	assert.Equal(t, "user-1", got.ID)
	assert.Equal(t, []string{"member"}, got.Roles)
}

// TestContextMustGetIdentity validates the panic on missing identity.
func TestContextMustGetIdentity(t *testing.T) {
	ctx := WithIdentity(context.Background(), &Identity{ID: "user-1"})
	assert.Equal(t, "user-1", MustGetIdentity(ctx).ID)

	assert.Panics(t, func() {
		MustGetIdentity(context.Background())
	})
}

// TestContextAuditMetadata validates the per-field audit accessors.
func TestContextAuditMetadata(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetIPAddress(ctx))
	assert.Empty(t, GetUserAgent(ctx))
	assert.Empty(t, GetRequestID(ctx))

	ctx = WithIPAddress(ctx, "203.0.113.7")
	ctx = WithUserAgent(ctx, "test-agent/1.0")
	ctx = WithRequestID(ctx, "req-42")

	assert.Equal(t, "203.0.113.7", GetIPAddress(ctx))
	assert.Equal(t, "test-agent/1.0", GetUserAgent(ctx))
	assert.Equal(t, "req-42", GetRequestID(ctx))
}

// TestContextAuditBundle validates the AuditContext roundtrip.
func TestContextAuditBundle(t *testing.T) {
	ac := AuditContext{
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent/1.0",
		RequestID: "req-42",
	}

	ctx := WithAuditContext(context.Background(), ac)
	assert.Equal(t, ac, GetAuditContext(ctx))

	// Empty fields are not written
	ctx = WithAuditContext(context.Background(), AuditContext{RequestID: "req-1"})
	assert.Empty(t, GetIPAddress(ctx))
	assert.Equal(t, "req-1", GetRequestID(ctx))
}

// TestContextChecker validates checker storage and the FromContext alias.
func TestContextChecker(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetChecker(ctx))
	assert.Nil(t, FromContext(ctx))

	service := NewService(NewRegistry(), nil)
	checker := service.Checker(&Identity{ID: "user-1"})
	ctx = WithChecker(ctx, checker)

	assert.Same(t, checker, GetChecker(ctx))
	assert.Same(t, checker, FromContext(ctx))
	assert.Equal(t, "user-1", FromContext(ctx).IdentityID())
}
