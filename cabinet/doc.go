// Package cabinet provides an expiring key-value store with optional
// backing persistence.
//
// Entries expire lazily on read; an explicit Synchronize pass sweeps the
// whole set eagerly and flushes survivors to the backing Store. Flushes
// triggered by mutations are debounced: repeated writes reschedule a
// single pending flush rather than stacking timers.
package cabinet
