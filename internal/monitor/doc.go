// Package monitor defines the core types and contracts shared across the
// ingestion and alerting subsystems.
package monitor
