package grantkit

import (
	"context"
	"fmt"
	"sync"
)

// Registry holds all entity kind definitions for the application.
// It is created at startup and should be treated as immutable after
// initialization. The registry is passed into NewService explicitly; there
// is no process-wide singleton.
type Registry struct {
	mu            sync.RWMutex
	kinds         map[string]*KindDefinition
	anonymousKind string
}

// KindDefinition describes one entity kind: which child kinds may attach to
// it, whether it can exist without a parent, whether it permits anonymous
// public creation, and whether ids of this kind are principals (identity
// hierarchy) rather than resources.
type KindDefinition struct {
	name            string
	children        map[string]bool
	standalone      bool
	anonymousCreate bool
	identity        bool
	relations       []RelationDefinition
	registry        *Registry

	// vtable attached by Bind
	newModel func() Entity
	cascade  func(ctx context.Context, s *Service, ident *Identity, id string) error
}

// RelationDefinition maps a bun relation field on the model to the kind of
// the related rows, so reads can filter eager-loads to visible ids.
type RelationDefinition struct {
	Field string
	Kind  string
}

// NewRegistry creates a new kind registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[string]*KindDefinition),
	}
}

// DefineKind starts defining a new entity kind.
// Returns a KindDefinition builder for fluent configuration.
//
// Example:
//
//	registry.DefineKind("folder").Standalone().Children("folder", "document").
//	    DefineKind("document").Children("comment")
func (r *Registry) DefineKind(name string) *KindDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	def := &KindDefinition{
		name:     name,
		children: make(map[string]bool),
		registry: r,
	}
	r.kinds[name] = def
	return def
}

// GetKind returns the definition for a kind, or nil if not defined.
func (r *Registry) GetKind(name string) *KindDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.kinds[name]
}

// Kinds returns all defined kind names.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	return names
}

// ValidateKind checks if a kind is defined.
func (r *Registry) ValidateKind(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.kinds[name]; !exists {
		return NewError(ErrValidation, fmt.Sprintf("kind %q not defined", name)).WithKind(name)
	}
	return nil
}

// ValidateChild checks the static adjacency table: childKind must be a
// member of the allowed-children set for parentKind. A kind is never its
// own allowed child unless declared, which is what rejects self-loops.
func (r *Registry) ValidateChild(parentKind, childKind string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parent, exists := r.kinds[parentKind]
	if !exists {
		return NewError(ErrValidation, fmt.Sprintf("kind %q not defined", parentKind)).WithKind(parentKind)
	}
	if !parent.children[childKind] {
		return NewError(ErrValidation,
			fmt.Sprintf("kind %q does not accept %q children", parentKind, childKind)).WithKind(childKind)
	}
	return nil
}

// AnonymousKind returns the kind used to register synthesized creator
// identities for anonymous public creation. It is the kind marked with
// AnonymousPrincipal, falling back to the first identity kind defined.
func (r *Registry) AnonymousKind() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.anonymousKind
}

// Children declares the kinds allowed to attach as children of this kind.
func (k *KindDefinition) Children(names ...string) *KindDefinition {
	for _, n := range names {
		k.children[n] = true
	}
	return k
}

// Standalone marks the kind as able to exist without a parent edge.
// Standalone children survive the deletion of a parent; only the edge is
// removed.
func (k *KindDefinition) Standalone() *KindDefinition {
	k.standalone = true
	return k
}

// AllowAnonymousCreate permits unauthenticated public creation of this kind.
func (k *KindDefinition) AllowAnonymousCreate() *KindDefinition {
	k.anonymousCreate = true
	return k
}

// Identity marks ids of this kind as principals. Accessibility checks for
// identity kinds walk the identity hierarchy instead of the resource one.
// The first kind marked Identity also becomes the registration kind for
// synthesized anonymous creators unless AnonymousPrincipal overrides it.
func (k *KindDefinition) Identity() *KindDefinition {
	k.identity = true
	if k.registry.anonymousKind == "" {
		k.registry.anonymousKind = k.name
	}
	return k
}

// AnonymousPrincipal selects this kind for synthesized anonymous creators.
func (k *KindDefinition) AnonymousPrincipal() *KindDefinition {
	k.registry.anonymousKind = k.name
	return k
}

// Relation declares a bun relation field on the model and the kind of the
// related rows. Reads eager-load declared relations filtered to ids the
// caller can independently read.
func (k *KindDefinition) Relation(field, kind string) *KindDefinition {
	k.relations = append(k.relations, RelationDefinition{Field: field, Kind: kind})
	return k
}

// DefineKind continues defining kinds on the registry (fluent API).
func (k *KindDefinition) DefineKind(name string) *KindDefinition {
	return k.registry.DefineKind(name)
}

// Name returns the kind name.
func (k *KindDefinition) Name() string {
	return k.name
}

// IsStandalone reports whether the kind may exist without a parent.
func (k *KindDefinition) IsStandalone() bool {
	return k.standalone
}

// AllowsAnonymousCreate reports whether the kind permits unauthenticated
// public creation.
func (k *KindDefinition) AllowsAnonymousCreate() bool {
	return k.anonymousCreate
}

// IsIdentity reports whether ids of this kind are principals.
func (k *KindDefinition) IsIdentity() bool {
	return k.identity
}

// AllowsChild reports whether childKind is in the allowed-children set.
func (k *KindDefinition) AllowsChild(childKind string) bool {
	return k.children[childKind]
}

// ChildKinds returns the allowed-children set.
func (k *KindDefinition) ChildKinds() []string {
	names := make([]string, 0, len(k.children))
	for n := range k.children {
		names = append(names, n)
	}
	return names
}

// Relations returns the declared relations.
func (k *KindDefinition) Relations() []RelationDefinition {
	return k.relations
}

// Bound reports whether a model has been attached with Bind.
func (k *KindDefinition) Bound() bool {
	return k.newModel != nil
}

// Bind attaches the model vtable to a kind definition: a factory for the
// model and the type-dispatched delete used during cascading deletion. This
// is the explicit registration table that replaces any reflection-based
// lookup; every kind managed through the lifecycle operations must be bound.
//
// Example:
//
//	grantkit.Bind[Document](registry.DefineKind("document").Children("comment"))
func Bind[T any, PT ModelOf[T]](def *KindDefinition) *KindDefinition {
	def.newModel = func() Entity {
		return PT(new(T))
	}
	def.cascade = func(ctx context.Context, s *Service, ident *Identity, id string) error {
		return Delete[T, PT](ctx, s, ident, id)
	}
	return def
}
