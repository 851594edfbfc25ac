// Package transport provides HTTP-level plumbing shared by the warden
// service surface: middleware composition, request ID propagation,
// structured request logging, panic recovery, and the mapping from the
// api error taxonomy to HTTP status codes.
//
// # Middleware
//
// Middleware wraps http.Handler with cross-cutting concerns. Built-in
// middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog. Chain composes
// middleware so that the first argument is the outermost wrapper.
//
// The HTTP adapter in pkg/transport/http assembles these pieces around
// the identity decision handlers.
package transport
