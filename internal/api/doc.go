// Package api defines wire-format types and converters for the admin HTTP
// API. It translates internal queue models into transport-friendly DTOs so
// the CLI and other consumers can render daemon state without coupling to
// internal types.
//
// DTOs use camelCase JSON tags. Internal enums (queue.Status, queue.Operation)
// are exposed as lowercase strings. Timestamps use RFC3339 with milliseconds.
package api
