package botlog

import "errors"

// Sentinel errors for the failure taxonomy. Stage-local failures (a single
// line, a single file) are recovered by the caller and surfaced as counters;
// catalog and storage failures abort the invocation.
var (
	// ErrMalformedLine reports a log line that does not match the grammar.
	ErrMalformedLine = errors.New("malformed log line")

	// ErrCatalogInvalid reports an unreadable or partially invalid signature
	// catalog. Partial catalogs are not tolerated.
	ErrCatalogInvalid = errors.New("invalid signature catalog")

	// ErrObjectNotFound reports a missing blob store key.
	ErrObjectNotFound = errors.New("object not found")
)
