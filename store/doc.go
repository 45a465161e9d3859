// Package store holds cached regions and their payloads.
//
// The Store is the single source of truth for entry metadata. Payloads are
// kept encoded and every read decodes a fresh copy, so no caller ever holds
// a reference into cached state and eviction can run while hits are in
// flight.
//
// Structural operations (Put, Remove) are not synchronized; the cache
// controller serializes them with its write lock. Touch and SetConfidence
// only update atomic fields and are safe under a shared read lock.
package store
