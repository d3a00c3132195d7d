// Package services implements the driving port interfaces.
// Services hold the registries, resolvers and search logic and
// orchestrate calls to driven ports (stores, similarity providers,
// observers).
package services
