// Package core defines the contract between the extraction engine and the
// per-vendor source adapters, plus the shared data model: raw records,
// ordering keys and canonical events.
package core

import (
	"context"
	"net/http"
)

// PageCursor identifies the next page of a paginated listing. Both supported
// vendors paginate by record offset; the adapter maps the offset onto its own
// query parameter name.
type PageCursor struct {
	Offset int
}

// Page is one parsed API response page.
type Page struct {
	Records []RawRecord
	// HasMore reports whether the vendor indicates further pages. Vendors
	// without an explicit flag derive it from the page being full.
	HasMore bool
}

// SourceAdapter is the per-vendor capability set the engine is parameterized
// by. Implementations must be safe to drive from a single goroutine; no
// method other than BuildRequest and ParsePage performs I/O.
type SourceAdapter interface {
	// Name is the registry name of the adapter ("jira", "confluence")
	Name() string

	// Namespace is the vendor key used in canonical events and status lines
	Namespace() string

	// BuildRequest builds the authenticated page request for the cursor.
	// The requested page size is already capped by the remaining budget.
	BuildRequest(ctx context.Context, cursor PageCursor, pageSize int) (*http.Request, error)

	// ParsePage decodes one API response. requested is the page size that was
	// asked for; adapters without an explicit continuation flag compare it
	// against the record count to decide HasMore.
	ParsePage(resp *http.Response, requested int) (Page, error)

	// NormalizeTimestamp converts a record's vendor-native timestamp to
	// integer milliseconds since epoch. It returns an error for unparseable
	// input; the caller decides the fallback.
	NormalizeTimestamp(rec RawRecord) (int64, error)

	// OrderingID returns the record's native ID, or a synthetic deterministic
	// one for vendors that do not supply a stable ID. Always non-negative.
	OrderingID(rec RawRecord) int64

	// MapToCanonical maps a raw record to the vendor-independent output shape
	MapToCanonical(rec RawRecord) (*CanonicalEvent, error)

	// RelevantUser extracts the most relevant user for the event. Best-effort,
	// never fails: malformed input falls back to the acting principal.
	RelevantUser(rec RawRecord) string

	// DescendingOrder reports whether the vendor guarantees descending
	// chronological page order. Only then may the fetcher stop early once a
	// record at or below the watermark is seen.
	DescendingOrder() bool
}
