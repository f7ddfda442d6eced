// Package session holds the authenticated identity a client acts as: the
// AIMS user, account and bearer token.
//
// The engine consumes it through a narrow get/set surface; nothing in
// this package performs I/O.
package session
