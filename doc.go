// Package grantkit provides an entity-agnostic authorization and audit
// engine.
//
// GrantKit stores grants as explicit policies, resolves access through
// resource and identity hierarchies, records every lifecycle event in an
// append-only access log, and orchestrates create/read/update/delete for any
// entity type you register.
//
// # Core Concepts
//
// Action: one of own, write, read. Actions form a strict lattice where own
// covers write and write covers read, so a single grant at a high level
// implies the levels below it.
//
// Policy: a stored grant giving an identity (or everyone, for public
// policies) an action on a resource. Policies are explicit rows, never
// computed, and at most one exists per exact combination.
//
// Hierarchy: resources nest under resources and identities nest under
// identities (user in group, group in group). Grants propagate downward
// through resource edges and upward through identity membership, edge by
// edge, unless an edge opts out with inherit=false. Sibling resources under
// one parent carry a stable sort order that can be rearranged.
//
// Access log: every create, read, update, delete and failed attempt appends
// an entry with HTTP-style status codes. Creation time, last modification
// and access counts are derived from the log rather than stored on rows.
//
// Kinds: every id is registered with a kind, and the kind registry defines
// which kinds may nest under which, which may exist standalone, and which
// represent identities.
//
// # Key Features
//
//   - Entity-agnostic: lifecycle operations are generic over registered types
//   - Explicit grants: no wildcard rules, every access is a stored policy
//   - Inheritance with opt-out: per-edge inherit flag stops propagation
//   - Existence masking: denied access is indistinguishable from absence
//   - Append-only audit: history survives entity deletion
//   - Cascade deletes: orphaned children go, shared children survive
//   - Token-agnostic: only needs an Identity built from your claims
//   - DBKit integration: uses your existing database connection
//
// # Basic Usage
//
//	// 1. Register your kinds (at application startup)
//	registry := grantkit.NewRegistry()
//
//	grantkit.Bind[User](registry.DefineKind("user").Identity().Standalone())
//	grantkit.Bind[Group](registry.DefineKind("group").Identity().Standalone())
//	grantkit.Bind[Folder](registry.DefineKind("folder").Standalone().
//	    Children("folder", "document"))
//	grantkit.Bind[Document](registry.DefineKind("document"))
//
//	// 2. Create the service
//	db, err := dbkit.New(dbkit.Config{URL: databaseURL})
//	service := grantkit.NewService(registry, db)
//
//	// 3. Run migrations
//	db.Migrate(ctx, grantkit.NewMigrationService(service).Migrations())
//
//	// 4. Create entities; ownership and audit entries come along
//	folder := &Folder{Name: "reports"}
//	err = grantkit.Create(ctx, service, ident, folder, grantkit.CreateOptions{})
//
//	doc := &Document{Title: "Q3"}
//	err = grantkit.Create(ctx, service, ident, doc, grantkit.CreateOptions{
//	    ParentID: folder.ID,
//	    Inherit:  true,
//	})
//
//	// 5. Share and check
//	service.Grant(ctx, ident, &grantkit.Policy{
//	    ResourceID: folder.ID,
//	    IdentityID: teammate.ID,
//	    Action:     grantkit.ActionRead,
//	}, false)
//
//	if ok, _ := service.Allows(ctx, teammate, doc.ID, grantkit.ActionRead); ok {
//	    // teammate reads the document through the folder grant
//	}
//
// # Middleware Usage
//
//	mw := grantkit.NewMiddleware(service)
//
//	router.Handle("PUT /documents/{documentID}",
//	    mw.RequireAction(grantkit.ActionWrite,
//	        grantkit.ResourceFromParam("documentID"))(updateHandler))
//
// # Audit Queries
//
// The access log answers the questions row timestamps usually would:
//
//	created, _ := service.CreatedAt(ctx, ident, doc.ID)
//	last, _ := service.LastAccessedAt(ctx, ident, doc.ID, grantkit.ActionRead)
//	n, _ := service.AccessCount(ctx, ident, doc.ID)
//
// All derived queries are themselves access-checked: a caller who cannot
// read a resource learns nothing about its history, not even that it exists.
package grantkit
