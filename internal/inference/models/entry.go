package models

// SchemaVersionSupported is the only inference-graph schema this code reads.
// Rows with any other version make a lookup indeterminate: the graph is
// reference data maintained out-of-band, and guessing at an unknown layout
// could mint badges from misread categories.
const SchemaVersionSupported = 1

// Entry maps an email domain to one inferred badge name. A domain may carry
// zero, one or many entries (e.g. apple.com -> "Tech Industry").
type Entry struct {
	Domain            string `json:"domain"`
	InferredBadgeName string `json:"inferred_badge_name"`
	SchemaVersion     int    `json:"schema_version"`
}
