// Package driving defines the interfaces that callers such as the root
// catalog use to reach core services. These are the "driving" ports in
// hexagonal architecture terminology.
//
// Implementations of these interfaces live in internal/core/services.
package driving
