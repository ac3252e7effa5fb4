package grantkit

import (
	"time"

	"github.com/uptrace/bun"
)

// Policy is a stored grant: an identity (or the public pseudo-identity)
// holds an action on a resource. At most one row exists per exact
// (resource, identity, action, public) tuple; IdentityID is empty iff the
// grant is public. Policies are never updated in place: Change deletes the
// old row and inserts a replacement reusing its id.
type Policy struct {
	bun.BaseModel `bun:"table:policies,alias:p"`

	ID         string    `bun:"id,pk,type:uuid"`
	ResourceID string    `bun:"resource_id,notnull,type:uuid"`
	IdentityID string    `bun:"identity_id,type:uuid,nullzero"`
	Action     Action    `bun:"action,notnull"`
	Public     bool      `bun:"public,notnull,default:false"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// AccessLogEntry is one append-only audit record. Entries are written on
// every lifecycle attempt, success or failure, and are never updated or
// deleted, even after the resource itself is gone.
type AccessLogEntry struct {
	bun.BaseModel `bun:"table:access_log,alias:al"`

	ID         string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ResourceID string    `bun:"resource_id,notnull,type:uuid"`
	IdentityID string    `bun:"identity_id,type:uuid,nullzero"`
	Action     Action    `bun:"action,notnull"`
	StatusCode int       `bun:"status_code,notnull"`
	Time       time.Time `bun:"time,notnull,default:current_timestamp"`
}

// ResourceEdge is a typed parent/child link in the resource hierarchy.
// Inherit controls whether the resolver propagates grants across the edge.
// SortOrder is a dense per-parent sequence assigned on insert.
type ResourceEdge struct {
	bun.BaseModel `bun:"table:resource_hierarchy,alias:rh"`

	ID        string `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ParentID  string `bun:"parent_id,notnull,type:uuid"`
	ChildID   string `bun:"child_id,notnull,type:uuid"`
	Inherit   bool   `bun:"inherit,notnull,default:true"`
	SortOrder int    `bun:"sort_order,notnull"`
}

// IdentityEdge is a typed parent/child link in the identity hierarchy
// (user in group, group in parent group). Identity edges carry no ordering.
type IdentityEdge struct {
	bun.BaseModel `bun:"table:identity_hierarchy,alias:ih"`

	ID       string `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ParentID string `bun:"parent_id,notnull,type:uuid"`
	ChildID  string `bun:"child_id,notnull,type:uuid"`
	Inherit  bool   `bun:"inherit,notnull,default:true"`
}

// IdentifierType maps any id (resource or identity) to its registered kind.
// Rows are inserted once and never deleted: they remain the permanent join
// key for historical audit entries after the owning entity is gone.
type IdentifierType struct {
	bun.BaseModel `bun:"table:identifier_types,alias:it"`

	ID   string `bun:"id,pk,type:uuid"`
	Kind string `bun:"kind,notnull"`
}

// Edge is the relation-agnostic view returned by ReadEdges. SortOrder is
// zero for identity edges.
type Edge struct {
	ParentID  string
	ChildID   string
	Inherit   bool
	SortOrder int
}

// Identity is the acting principal presented by a caller. It is produced by
// an external credential validator; grantkit only consumes the claims.
// A nil *Identity means the caller is anonymous.
type Identity struct {
	ID                string
	Roles             []string
	DirectoryGroupIDs []string
}

// RoleAdmin marks an identity that bypasses every access check.
const RoleAdmin = "admin"

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	if i == nil {
		return false
	}
	for _, r := range i.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// InDirectoryGroup reports whether the identity's token lists the given
// directory group. Used by the grant bypass that lets self-sign-up attach a
// user to a group it has not yet been explicitly granted access to.
func (i *Identity) InDirectoryGroup(groupID string) bool {
	if i == nil {
		return false
	}
	for _, g := range i.DirectoryGroupIDs {
		if g == groupID {
			return true
		}
	}
	return false
}

// Audit status codes mirror HTTP semantics.
const (
	StatusOK       = 200
	StatusCreated  = 201
	StatusNotFound = 404
)

// Entity is implemented by every model managed through the lifecycle
// operations. Kind returns the tag the model was registered under.
type Entity interface {
	GetID() string
	SetID(id string)
	Kind() string
}

// ModelOf constrains a lifecycle type parameter to a pointer to a
// registered entity model, so callers can write Create(ctx, s, ident, &doc, opts)
// and ReadByID[Document](ctx, s, ident, id) without spelling both parameters.
type ModelOf[T any] interface {
	Entity
	*T
}
