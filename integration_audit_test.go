package grantkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestAuditTimestamps tests the derived timestamp queries over the access
// log written by the entity lifecycle.
func TestAuditTimestamps(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	owner := NewTestIdentity()

	folder := &TestFolder{Name: "ledger"}
	assert.NoError(t, Create(ctx, service, owner, folder, CreateOptions{}))

	created, err := service.CreatedAt(ctx, owner, folder.ID)
	assert.NoError(t, err)
	assert.False(t, created.IsZero())
	assert.WithinDuration(t, time.Now(), created, time.Minute)

	// Never modified: last-modified falls back to creation time
	modified, err := service.LastModifiedAt(ctx, owner, folder.ID)
	assert.NoError(t, err)
	assert.True(t, modified.Equal(created))

	_, err = Update[TestFolder](ctx, service, owner, folder.ID, map[string]any{
		"name": "ledger-v2",
	})
	assert.NoError(t, err)

	modified, err = service.LastModifiedAt(ctx, owner, folder.ID)
	assert.NoError(t, err)
	assert.True(t, modified.After(created) || modified.Equal(created))
}

// TestLastAccessedAt tests the per-action last-access query and its
// action-level gate.
func TestLastAccessedAt(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	admin := NewTestIdentity(RoleAdmin)
	owner := NewTestIdentity()
	reader := NewTestIdentity()

	folder := &TestFolder{Name: "tracked"}
	assert.NoError(t, Create(ctx, service, owner, folder, CreateOptions{}))

	_, err = service.Grant(ctx, admin, &Policy{
		ResourceID: folder.ID,
		IdentityID: reader.ID,
		Action:     ActionRead,
	}, false)
	assert.NoError(t, err)

	_, err = ReadByID[TestFolder](ctx, service, reader, folder.ID)
	assert.NoError(t, err)

	entry, err := service.LastAccessedAt(ctx, owner, folder.ID, ActionRead)
	assert.NoError(t, err)
	assert.Equal(t, folder.ID, entry.ResourceID)
	assert.Equal(t, ActionRead, entry.Action)
	assert.Equal(t, reader.ID, entry.IdentityID)

	// The gate is the queried action: a read-only identity can see the
	// read history but not the own history.
	_, err = service.LastAccessedAt(ctx, reader, folder.ID, ActionRead)
	assert.NoError(t, err)

	_, err = service.LastAccessedAt(ctx, reader, folder.ID, ActionOwn)
	assert.True(t, IsNotFound(err))

	_, err = service.LastAccessedAt(ctx, owner, folder.ID, Action("peek"))
	assert.True(t, IsValidation(err))
}

// TestAccessCount tests the visible entry count and its masking of both
// invisibility and empty history.
func TestAccessCount(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	owner := NewTestIdentity()
	stranger := NewTestIdentity()

	folder := &TestFolder{Name: "counted"}
	assert.NoError(t, Create(ctx, service, owner, folder, CreateOptions{}))

	count, err := service.AccessCount(ctx, owner, folder.ID)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1, "creation itself is logged")

	_, err = ReadByID[TestFolder](ctx, service, owner, folder.ID)
	assert.NoError(t, err)

	after, err := service.AccessCount(ctx, owner, folder.ID)
	assert.NoError(t, err)
	assert.Greater(t, after, count)

	_, err = service.AccessCount(ctx, stranger, folder.ID)
	assert.True(t, IsNotFound(err), "no visibility reads as absence")

	_, err = service.CreatedAt(ctx, stranger, folder.ID)
	assert.True(t, IsNotFound(err))

	_, err = service.LastModifiedAt(ctx, stranger, folder.ID)
	assert.True(t, IsNotFound(err))
}

// TestGetAccessLog tests the scoped log listing.
func TestGetAccessLog(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	admin := NewTestIdentity(RoleAdmin)
	owner := NewTestIdentity()
	stranger := NewTestIdentity()

	folder := &TestFolder{Name: "audited"}
	assert.NoError(t, Create(ctx, service, owner, folder, CreateOptions{}))

	// Admin sees entries for any resource
	logs, err := service.GetAccessLog(ctx, admin, NewAccessLogFilter().
		WithResource(folder.ID))
	assert.NoError(t, err)
	assert.NotEmpty(t, logs)

	// The owner sees their own resource's entries
	logs, err = service.GetAccessLog(ctx, owner, NewAccessLogFilter().
		WithResource(folder.ID).
		WithAction(ActionOwn))
	assert.NoError(t, err)
	assert.NotEmpty(t, logs)
	for _, entry := range logs {
		assert.Equal(t, folder.ID, entry.ResourceID)
		assert.Equal(t, ActionOwn, entry.Action)
	}

	// A stranger sees nothing, without error
	logs, err = service.GetAccessLog(ctx, stranger, NewAccessLogFilter().
		WithResource(folder.ID))
	assert.NoError(t, err)
	assert.Empty(t, logs)

	// Ordering is newest first
	logs, err = service.GetAccessLog(ctx, admin, NewAccessLogFilter().
		WithResource(folder.ID).
		WithLimit(50))
	assert.NoError(t, err)
	for i := 1; i < len(logs); i++ {
		assert.False(t, logs[i].Time.After(logs[i-1].Time))
	}
}
