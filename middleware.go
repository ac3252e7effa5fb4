package grantkit

import (
	"net/http"
)

// Middleware provides HTTP middleware for access checking.
type Middleware struct {
	service      *Service
	getIdentity  func(*http.Request) *Identity
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := grantkit.NewMiddleware(service,
//	    grantkit.WithIdentityExtractor(func(r *http.Request) *grantkit.Identity {
//	        return identityFromToken(r)
//	    }),
//	)
func NewMiddleware(service *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:      service,
		getIdentity:  defaultGetIdentity,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithIdentityExtractor sets a custom function to extract the acting identity
// from a request. Returning nil means the caller is anonymous.
func WithIdentityExtractor(fn func(*http.Request) *Identity) MiddlewareOption {
	return func(m *Middleware) {
		m.getIdentity = fn
	}
}

// WithMiddlewareErrorHandler sets a custom error handler for middleware.
func WithMiddlewareErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetIdentity(r *http.Request) *Identity {
	return GetIdentity(r.Context())
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case IsUnauthenticated(err):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case IsForbidden(err):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case IsNotFound(err):
		http.Error(w, "Not Found", http.StatusNotFound)
	case IsValidation(err):
		http.Error(w, "Bad Request", http.StatusBadRequest)
	case IsConflict(err):
		http.Error(w, "Conflict", http.StatusConflict)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// ResourceExtractor extracts the target resource id from an HTTP request.
type ResourceExtractor func(*http.Request) (string, error)

// ResourceFromParam creates a ResourceExtractor that reads the resource id
// from URL parameters. Compatible with net/http path values and routers that
// stash parameters in the request context.
//
// Example:
//
//	// For route /documents/{documentID}
//	mw.RequireAction(grantkit.ActionWrite, grantkit.ResourceFromParam("documentID"))
func ResourceFromParam(paramName string) ResourceExtractor {
	return func(r *http.Request) (string, error) {
		id := r.PathValue(paramName)
		if id == "" {
			if v := r.Context().Value(paramName); v != nil {
				if s, ok := v.(string); ok {
					id = s
				}
			}
		}
		if id == "" {
			return "", NewError(ErrValidation, "resource id not found in request")
		}
		return id, nil
	}
}

// ResourceFromQuery creates a ResourceExtractor that reads the resource id
// from query parameters.
func ResourceFromQuery(queryParam string) ResourceExtractor {
	return func(r *http.Request) (string, error) {
		id := r.URL.Query().Get(queryParam)
		if id == "" {
			return "", NewError(ErrValidation, "resource id not found in query")
		}
		return id, nil
	}
}

// ResourceFromHeader creates a ResourceExtractor that reads the resource id
// from a header.
//
// Example:
//
//	mw.RequireAction(grantkit.ActionRead, grantkit.ResourceFromHeader("X-Project-ID"))
func ResourceFromHeader(headerName string) ResourceExtractor {
	return func(r *http.Request) (string, error) {
		id := r.Header.Get(headerName)
		if id == "" {
			return "", NewError(ErrValidation, "resource id not found in header")
		}
		return id, nil
	}
}

// StaticResource creates a ResourceExtractor that always returns the same id.
// Useful for singleton resources.
func StaticResource(resourceID string) ResourceExtractor {
	return func(r *http.Request) (string, error) {
		return resourceID, nil
	}
}

// RequireAction creates middleware that requires the acting identity to hold
// at least the given action on the extracted resource. Denial surfaces as
// 404, matching the service's existence-masking semantics.
//
// Example:
//
//	router.Handle("PUT /documents/{documentID}",
//	    mw.RequireAction(grantkit.ActionWrite, grantkit.ResourceFromParam("documentID"))(updateHandler))
func (m *Middleware) RequireAction(action Action, extractor ResourceExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ident := m.getIdentity(r)

			resourceID, err := extractor(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			ok, err := m.service.Allows(ctx, ident, resourceID, action)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}
			if !ok {
				m.errorHandler(w, r, NewError(ErrNotFound, "resource not found").
					WithResource(resourceID).
					WithAction(action))
				return
			}

			// Stash the checker for use in the handler
			ctx = WithChecker(ctx, m.service.Checker(ident))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentity creates middleware that rejects anonymous callers.
func (m *Middleware) RequireIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := m.getIdentity(r)
			if ident == nil {
				m.errorHandler(w, r, NewError(ErrUnauthenticated, "authentication required"))
				return
			}
			ctx := WithIdentity(r.Context(), ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoadChecker creates middleware that loads an AccessChecker into context.
// Use this when you want to do access checks in the handler rather than in
// middleware.
//
// Example:
//
//	func dashboardHandler(w http.ResponseWriter, r *http.Request) {
//	    checker := grantkit.FromContext(r.Context())
//	    if ok, _ := checker.CanWrite(r.Context(), projectID); ok {
//	        // show edit controls
//	    }
//	}
func (m *Middleware) LoadChecker() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := m.getIdentity(r)
			ctx := WithChecker(r.Context(), m.service.Checker(ident))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectAuditContext creates middleware that extracts audit information from
// the request and adds it to the context, where the audit log picks it up.
//
// Example:
//
//	router.Use(mw.InjectAuditContext())
func (m *Middleware) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}
			ctx = WithIPAddress(ctx, ip)
			ctx = WithUserAgent(ctx, r.UserAgent())

			if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			if ident := m.getIdentity(r); ident != nil {
				ctx = WithIdentity(ctx, ident)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
