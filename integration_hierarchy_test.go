package grantkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// buildSiblingTree creates a parent folder with n child folders attached in
// creation order, returning the parent and the children.
func buildSiblingTree(ctx context.Context, t *testing.T, service *Service, owner *Identity, n int) (*TestFolder, []*TestFolder) {
	t.Helper()

	parent := &TestFolder{Name: "parent"}
	assert.NoError(t, Create(ctx, service, owner, parent, CreateOptions{}))

	children := make([]*TestFolder, n)
	for i := range children {
		child := &TestFolder{Name: string(rune('a' + i))}
		assert.NoError(t, Create(ctx, service, owner, child, CreateOptions{
			ParentID: parent.ID,
		}))
		children[i] = child
	}
	return parent, children
}

// childSequence reads the parent's edges and returns child ids in sort
// order.
func childSequence(ctx context.Context, t *testing.T, service *Service, owner *Identity, parentID string) []string {
	t.Helper()

	edges, err := service.ReadEdges(ctx, owner, parentID, "")
	assert.NoError(t, err)

	ids := make([]string, len(edges))
	for i, e := range edges {
		ids[i] = e.ChildID
	}
	return ids
}

// TestEdgeOrdering tests that siblings receive dense consecutive orders and
// come back sorted.
func TestEdgeOrdering(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	owner := NewTestIdentity()
	parent, children := buildSiblingTree(ctx, t, service, owner, 4)

	edges, err := service.ReadEdges(ctx, owner, parent.ID, "")
	assert.NoError(t, err)
	assert.Len(t, edges, 4)
	for i, e := range edges {
		assert.Equal(t, parent.ID, e.ParentID)
		assert.Equal(t, children[i].ID, e.ChildID)
		assert.Equal(t, i+1, e.SortOrder)
	}
}

// TestReorderChildren tests an end-to-end relative move.
func TestReorderChildren(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	owner := NewTestIdentity()
	parent, c := buildSiblingTree(ctx, t, service, owner, 4)

	err = service.ReorderChildren(ctx, owner, parent.ID, c[0].ID, PositionAfter, c[2].ID)
	assert.NoError(t, err)

	assert.Equal(t, []string{c[1].ID, c[2].ID, c[0].ID, c[3].ID},
		childSequence(ctx, t, service, owner, parent.ID))

	err = service.ReorderChildren(ctx, owner, parent.ID, c[3].ID, PositionStart, "")
	assert.NoError(t, err)

	assert.Equal(t, []string{c[3].ID, c[1].ID, c[2].ID, c[0].ID},
		childSequence(ctx, t, service, owner, parent.ID))
}

// TestReorderValidation tests position and sibling argument checks.
func TestReorderValidation(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	owner := NewTestIdentity()
	parent, c := buildSiblingTree(ctx, t, service, owner, 2)

	err = service.ReorderChildren(ctx, owner, parent.ID, c[0].ID, PositionAfter, "")
	assert.True(t, IsValidation(err), "before/after need a sibling")

	err = service.ReorderChildren(ctx, owner, parent.ID, c[0].ID, PositionEnd, c[1].ID)
	assert.True(t, IsValidation(err), "start/end take no sibling")

	err = service.ReorderChildren(ctx, owner, parent.ID, c[0].ID, Position("middle"), "")
	assert.True(t, IsValidation(err))

	// A stranger cannot even see the tree
	err = service.ReorderChildren(ctx, NewTestIdentity(), parent.ID, c[0].ID, PositionEnd, "")
	assert.True(t, IsNotFound(err))
}

// TestCreateEdgeAdjacency tests the kind adjacency rules.
func TestCreateEdgeAdjacency(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	owner := NewTestIdentity()

	folder := &TestFolder{Name: "top"}
	assert.NoError(t, Create(ctx, service, owner, folder, CreateOptions{}))

	user := &TestUser{Name: "misplaced"}
	assert.NoError(t, Create(ctx, service, owner, user, CreateOptions{}))

	err = service.CreateEdge(ctx, owner, folder.ID, "user", user.ID, false)
	assert.True(t, IsValidation(err), "folders do not accept users")

	err = service.CreateEdge(ctx, owner, folder.ID, "unknown", user.ID, false)
	assert.True(t, IsValidation(err))

	// Nesting folders is declared and allowed
	sub := &TestFolder{Name: "sub"}
	assert.NoError(t, Create(ctx, service, owner, sub, CreateOptions{}))
	assert.NoError(t, service.CreateEdge(ctx, owner, folder.ID, "folder", sub.ID, true))
}

// TestCreateEdgeOwnership tests that attaching requires owning the child
// and writing the parent.
func TestCreateEdgeOwnership(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	owner := NewTestIdentity()
	other := NewTestIdentity()

	parent := &TestFolder{Name: "mine"}
	assert.NoError(t, Create(ctx, service, owner, parent, CreateOptions{}))

	theirs := &TestFolder{Name: "theirs"}
	assert.NoError(t, Create(ctx, service, other, theirs, CreateOptions{}))

	err = service.CreateEdge(ctx, owner, parent.ID, "folder", theirs.ID, false)
	assert.True(t, IsNotFound(err), "a child the actor does not own reads as absent")

	err = service.CreateEdge(ctx, other, parent.ID, "folder", theirs.ID, false)
	assert.True(t, IsNotFound(err), "a parent the actor cannot write reads as absent")
}

// TestDeleteEdge tests edge removal and its masking.
func TestDeleteEdge(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	service, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	owner := NewTestIdentity()
	parent, c := buildSiblingTree(ctx, t, service, owner, 2)

	rows, err := service.DeleteEdge(ctx, owner, parent.ID, c[0].ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	assert.Equal(t, []string{c[1].ID},
		childSequence(ctx, t, service, owner, parent.ID))

	// Deleting it again finds nothing
	_, err = service.DeleteEdge(ctx, owner, parent.ID, c[0].ID)
	assert.True(t, IsNotFound(err))

	// No ids at all is malformed, not merely absent
	_, err = service.DeleteEdge(ctx, owner, "", "")
	assert.True(t, IsValidation(err))

	_, err = service.ReadEdges(ctx, owner, "", "")
	assert.True(t, IsValidation(err))
}
