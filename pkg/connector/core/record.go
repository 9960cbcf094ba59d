package core

import (
	"strconv"
)

// RawRecord is a vendor-native audit entry: an opaque attribute bag decoded
// straight from the API response. It exists only within one fetch cycle.
type RawRecord map[string]interface{}

// String walks the given key path and returns a string value, or "" when any
// step is missing or of the wrong type.
func (r RawRecord) String(path ...string) string {
	v := r.value(path...)
	if v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// JSON numbers decode as float64; audit IDs and epoch timestamps are
		// integral in practice.
		return strconv.FormatInt(int64(s), 10)
	default:
		return ""
	}
}

// Map returns a nested object at the given key path, or nil.
func (r RawRecord) Map(path ...string) map[string]interface{} {
	if m, ok := r.value(path...).(map[string]interface{}); ok {
		return m
	}
	return nil
}

// Slice returns a nested array at the given key path, or nil.
func (r RawRecord) Slice(path ...string) []interface{} {
	if s, ok := r.value(path...).([]interface{}); ok {
		return s
	}
	return nil
}

// Int64 returns an integer value at the given key path, or 0. Numeric strings
// are tolerated.
func (r RawRecord) Int64(path ...string) int64 {
	switch v := r.value(path...).(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func (r RawRecord) value(path ...string) interface{} {
	var cur interface{} = map[string]interface{}(r)
	for _, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur, ok = m[key]
		if !ok {
			return nil
		}
	}
	return cur
}

// OrderingKey is the (timestamp, recordId) pair used to totally order records
// and compare against the watermark. Timestamps are milliseconds since epoch.
type OrderingKey struct {
	Timestamp int64 `json:"timestamp"`
	RecordID  int64 `json:"recordId"`
}

// Compare returns -1 if k orders before o, 0 if equal, 1 if after. The
// record ID only breaks ties between equal timestamps.
func (k OrderingKey) Compare(o OrderingKey) int {
	switch {
	case k.Timestamp < o.Timestamp:
		return -1
	case k.Timestamp > o.Timestamp:
		return 1
	case k.RecordID < o.RecordID:
		return -1
	case k.RecordID > o.RecordID:
		return 1
	default:
		return 0
	}
}

// Less reports whether k orders strictly before o
func (k OrderingKey) Less(o OrderingKey) bool {
	return k.Compare(o) < 0
}

// After reports whether k orders strictly after o
func (k OrderingKey) After(o OrderingKey) bool {
	return k.Compare(o) > 0
}
