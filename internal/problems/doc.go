// Package problems implements the problem pipeline: it turns the raw
// company/window CSV tables into records and derives the displayed view
// from them.
//
// # Pipeline
//
// A view is produced in three steps, each a pure function over an
// in-memory slice:
//
//	Parse  -> []Record   (lenient, quote-aware CSV ingest)
//	Filter -> []Record   (difficulty AND free-text search)
//	Sort   -> []Record   (stable, single column)
//
// ViewState bundles the three user controls and Apply runs the whole chain.
//
// # Leniency
//
// Ingest tolerates dirty data on purpose. Rows with fewer than six fields
// are dropped and numeric fields that fail to parse become 0. Both events
// are counted in ParseStats so callers can observe them.
//
// Everything in this package is safe for concurrent use; nothing holds
// state between calls.
package problems
