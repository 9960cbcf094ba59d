package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	base := time.Date(2025, 11, 11, 15, 18, 38, 471_000_000, time.UTC).UnixMilli()

	tests := []struct {
		name  string
		value interface{}
		want  int64
	}{
		{"four-digit offset", "2025-11-11T15:18:38.471+0000", base},
		{"colon offset", "2025-11-11T16:18:38.471+01:00", base},
		{"negative four-digit offset", "2025-11-11T10:18:38.471-0500", base},
		{"zulu", "2025-11-11T15:18:38.471Z", base},
		{"no fraction", "2025-11-11T15:18:38+0000", base - 471},
		{"millis number", float64(1736942318471), 1736942318471},
		{"millis string", "1736942318471", 1736942318471},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimestamp_Errors(t *testing.T) {
	for _, value := range []interface{}{nil, "", "yesterday", true} {
		_, err := ParseTimestamp(value)
		assert.Error(t, err, "value %v", value)
	}
}
