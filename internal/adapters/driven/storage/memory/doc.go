// Package memory provides in-memory implementations of the driven ports.
// They back tests and purely in-memory catalogs.
package memory
