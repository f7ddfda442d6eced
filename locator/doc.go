// Package locator maps logical service and UI location identifiers to
// concrete base URIs.
//
// A Matrix owns a set of location Descriptors indexed by
// (id, environment, residency, location) with graceful fallback: a lookup
// degrades from the most specific key to the most generic one available.
// The Matrix is pure in-memory state and performs no I/O.
package locator
