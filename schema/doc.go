// Package schema validates response payloads against JSON Schemas.
//
// Schemas are registered once by name and compiled lazily; compiled
// validators are cached so repeated validations pay no compilation cost.
package schema
