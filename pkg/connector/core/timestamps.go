package core

import (
	"strconv"
	"time"

	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/errors"
)

// isoLayouts covers the timestamp shapes observed across the Atlassian
// audit APIs: fractional seconds optional, timezone as four-digit
// ("+0000"), colon-separated ("+01:00"), two-digit ("+01"), "Z", or absent.
var isoLayouts = []string{
	"2006-01-02T15:04:05.999-0700",
	"2006-01-02T15:04:05.999-07:00",
	"2006-01-02T15:04:05.999Z07:00",
	"2006-01-02T15:04:05.999-07",
	"2006-01-02T15:04:05.999",
}

// ParseTimestamp normalizes a vendor-native timestamp value to integer
// milliseconds since epoch. Raw millisecond integers (JSON numbers or
// numeric strings) and ISO-8601 strings are accepted.
func ParseTimestamp(value interface{}) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, errors.New(errors.ErrorTypeData, "missing timestamp")
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		if v == "" {
			return 0, errors.New(errors.ErrorTypeData, "empty timestamp")
		}
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			return ms, nil
		}
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UnixMilli(), nil
			}
		}
		return 0, errors.Newf(errors.ErrorTypeData, "unparseable timestamp %q", v)
	default:
		return 0, errors.Newf(errors.ErrorTypeData, "unsupported timestamp type %T", value)
	}
}
