// Package core defines the shared language of salesdash.
//
// This package contains:
//   - Store access contracts (Adapter, AdapterConfig, Rows)
//   - Result shapes (ResultTable, TableMetadata)
//   - The error taxonomy (ConnectionError, QueryError, MaterializationError)
//
// pkg/core imports only the standard library. Every other package depends on
// core, not the reverse.
package core
