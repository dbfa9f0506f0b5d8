// Package types defines the shared contract types for the kernalinit
// lifecycle system: component identifiers, persistence records, backup
// snapshot metadata, operation reports, configuration, and the sentinel
// errors used across packages.
package types
