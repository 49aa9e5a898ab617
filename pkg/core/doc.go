// Package core defines the shared domain types for the StableCore
// module system: module records, pipeline results, backups, health
// aggregates, and the structured error kinds every component reports
// through. It has no dependencies on the components themselves so that
// any package may import it.
package core
