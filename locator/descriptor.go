package locator

import "strings"

// Descriptor describes one logical location: a service API stack, a UI
// surface, or any other addressable endpoint known by an abstract name.
type Descriptor struct {
	// ID is the logical identifier (e.g. "global:api", "cd17:accounts").
	ID string

	// ParentID names the descriptor whose full URI prefixes this one.
	// Empty for root descriptors.
	ParentID string

	// URI is this descriptor's own URI fragment. Roots carry an origin
	// (scheme optional); children typically carry a path suffix.
	URI string

	// Residency is the data-domicile selector (e.g. "US", "EMEA").
	Residency string

	// Environment selects the deployment tier (e.g. "production",
	// "integration").
	Environment string

	// LocationID pins the descriptor to a concrete site
	// (e.g. "defender-us-denver").
	LocationID string

	// fullURI memoizes the computed ancestor-concatenated URI.
	// Managed by Matrix; invalidated on any graph mutation.
	fullURI string
}

// HasScheme reports whether the descriptor's own URI carries an explicit
// scheme.
func (d *Descriptor) HasScheme() bool {
	return strings.Contains(d.URI, "://")
}

// Context carries the ambient selection criteria a Matrix resolves
// against. The zero value matches only wildcard descriptors.
type Context struct {
	// Environment is the active deployment tier.
	Environment string

	// Residency is the active data-domicile selector.
	Residency string

	// Location pins lookups to a concrete site when set.
	Location string

	// Accessible lists additional sites the current account may be
	// served from; tried in order after the pinned location.
	Accessible []string
}
