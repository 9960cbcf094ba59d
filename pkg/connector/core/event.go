package core

import (
	gojson "github.com/goccy/go-json"
)

// CanonicalEvent is the sink's output unit: the vendor-independent envelope
// with vendor-specific fields kept under the vendor's namespace key.
// Immutable once written.
type CanonicalEvent struct {
	// ID is the native record ID for vendors that have one (integer), or the
	// stringified synthetic ID otherwise.
	ID interface{}
	// Timestamp is the vendor-native timestamp value, passed through verbatim
	Timestamp interface{}
	// User is the most relevant user per the adapter's extraction heuristic
	User string
	// Actor is the acting principal
	Actor string
	// SrcIP is the remote address recorded by the vendor, if any
	SrcIP string
	// Namespace is the vendor key ("jira", "confluence")
	Namespace string
	// Vendor holds the vendor-specific payload fields
	Vendor map[string]interface{}

	// Key is the ordering key derived from the raw record. Not serialized;
	// used to order output and advance the watermark.
	Key OrderingKey `json:"-"`
}

// MarshalJSON renders the event envelope with the vendor payload nested
// under the namespace key.
func (e *CanonicalEvent) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"id":        e.ID,
		"timestamp": e.Timestamp,
		"user":      e.User,
		"actor":     e.Actor,
		"srcip":     e.SrcIP,
	}
	if e.Namespace != "" {
		out[e.Namespace] = e.Vendor
	}
	return gojson.Marshal(out)
}
