// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - RecordStore: Loads and saves one registry's records (JSON document, YAML directory, SQLite)
//   - SimilarityProvider: 0-100 text similarity. The basic backend always works.
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Backupper: Timestamped snapshots of a registry document before mutation.
//   - Archiver: Per-record backups, archive-on-delete and restore (person files).
//   - RegistryObserver: Metrics for mutations, rebuilds and resolved matches.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
