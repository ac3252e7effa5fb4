package grantkit

import "time"

// PolicyFilter selects policies for bulk deletion. All supplied fields are
// AND-ed as exact-match filters. At least one of ResourceID/IdentityID is
// required: a filter naming only an action, or only public grants across
// more than one resource, is rejected before the store is reached.
type PolicyFilter struct {
	ResourceID string
	IdentityID string
	Action     Action
	Public     *bool
}

// Validate rejects under-specified delete filters.
func (f PolicyFilter) Validate() error {
	if f.ResourceID == "" && f.IdentityID == "" {
		return NewError(ErrValidation, "policy filter requires a resource or identity id")
	}
	// Public rows carry no identity id, so an identity-scoped public filter
	// can never match; public grants are deleted by naming their resource.
	if f.Public != nil && *f.Public && f.ResourceID == "" {
		return NewError(ErrValidation, "deleting public grants requires a resource id").
			WithIdentity(f.IdentityID)
	}
	if f.Action != "" && !f.Action.Valid() {
		return NewError(ErrValidation, "invalid action in policy filter").WithAction(f.Action)
	}
	return nil
}

// AccessLogFilter provides options for filtering access log queries.
type AccessLogFilter struct {
	// Filter by the resource the entry concerns
	ResourceID string

	// Filter by the identity attributed with the access
	IdentityID string

	// Filter by action level
	Action Action

	// Filter by status code (0 means any)
	Status int

	// Filter by time range
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// NewAccessLogFilter creates a new AccessLogFilter with default values.
func NewAccessLogFilter() AccessLogFilter {
	return AccessLogFilter{
		Limit: 100,
	}
}

// WithResource sets the resource id filter.
func (f AccessLogFilter) WithResource(resourceID string) AccessLogFilter {
	f.ResourceID = resourceID
	return f
}

// WithIdentity sets the identity id filter.
func (f AccessLogFilter) WithIdentity(identityID string) AccessLogFilter {
	f.IdentityID = identityID
	return f
}

// WithAction sets the action filter.
func (f AccessLogFilter) WithAction(action Action) AccessLogFilter {
	f.Action = action
	return f
}

// WithStatus sets the status code filter.
func (f AccessLogFilter) WithStatus(status int) AccessLogFilter {
	f.Status = status
	return f
}

// WithTimeRange sets the time range filter.
func (f AccessLogFilter) WithTimeRange(since, until time.Time) AccessLogFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithSince sets the start time filter.
func (f AccessLogFilter) WithSince(since time.Time) AccessLogFilter {
	f.Since = since
	return f
}

// WithUntil sets the end time filter.
func (f AccessLogFilter) WithUntil(until time.Time) AccessLogFilter {
	f.Until = until
	return f
}

// WithLimit sets the limit for results.
func (f AccessLogFilter) WithLimit(limit int) AccessLogFilter {
	f.Limit = limit
	return f
}

// WithOffset sets the offset for pagination.
func (f AccessLogFilter) WithOffset(offset int) AccessLogFilter {
	f.Offset = offset
	return f
}

// WithPagination sets both limit and offset.
func (f AccessLogFilter) WithPagination(limit, offset int) AccessLogFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// ReadOptions carries caller-supplied filters for lifecycle reads. Filters
// are exact-match on columns and are applied on top of the accessibility
// scope, never instead of it.
type ReadOptions struct {
	ID      string
	Filters map[string]any
	Order   string
	Limit   int
	Offset  int
}

// NewReadOptions creates empty ReadOptions.
func NewReadOptions() ReadOptions {
	return ReadOptions{}
}

// WithID restricts the read to a single id.
func (o ReadOptions) WithID(id string) ReadOptions {
	o.ID = id
	return o
}

// WithFilter adds an exact-match column filter.
func (o ReadOptions) WithFilter(column string, value any) ReadOptions {
	if o.Filters == nil {
		o.Filters = make(map[string]any)
	}
	o.Filters[column] = value
	return o
}

// WithOrder sets the result ordering, e.g. "created_at DESC".
func (o ReadOptions) WithOrder(order string) ReadOptions {
	o.Order = order
	return o
}

// WithPagination sets both limit and offset.
func (o ReadOptions) WithPagination(limit, offset int) ReadOptions {
	o.Limit = limit
	o.Offset = offset
	return o
}
