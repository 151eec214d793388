// Package query executes literal SQL statements against a store adapter and
// materializes the full result set into a core.ResultTable.
//
// Statements are opaque text: there are no bind parameters, no statement
// type detection and no implicit row limits.
package query
