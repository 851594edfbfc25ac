// Package api defines the wire types for the warden identity service:
// user profiles, authentication and authorization responses, and the
// structured error envelope returned on failures.
package api
