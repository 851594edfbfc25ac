// Package storage defines the IdentityStore interface consumed by the
// authentication, key, and authorization components, along with sentinel
// errors shared across adapter implementations.
//
// Adapters (memory, postgres) live in subpackages. The store exclusively
// owns durable state: profiles, API key mappings, and throttle counters.
// All other components hold only request-scoped values.
package storage
