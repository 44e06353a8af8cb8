// Package context holds the typed keys for values the middleware chain
// attaches to a request.
package context

type Key string

const (
	// Claims carries the validated token claims set by the auth middleware.
	Claims Key = "auth.claims"
	// Tenant carries the resolved tenancy scope.
	Tenant Key = "tenant.scope"
	// Params carries the matched route parameters.
	Params Key = "route.params"
)
