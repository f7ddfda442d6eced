// Package secret resolves credential material referenced from
// configuration, so access keys and session tokens need not appear in
// code.
//
// It supports:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Pluggable providers (see Provider)
//   - Resolving "secretref:<provider>:<ref>" values (see Resolver)
package secret
