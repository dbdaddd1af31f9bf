// Package records defines the generic record type passed between pipeline
// stages.
package records

// Record is one keyed record: a decoded JSON object from the issue source,
// or a flattened row destined for a database table.
type Record map[string]any
