// Package observe provides observability primitives for request
// execution.
//
// It is a pure instrumentation library: no transport, no I/O beyond
// exporter setup. The client wires an Observer in and reports every
// outgoing request through it; instrumentation never alters request
// outcomes.
package observe
