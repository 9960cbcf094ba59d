package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/core"
)

func TestClassify(t *testing.T) {
	wm := core.OrderingKey{Timestamp: 1000, RecordID: 5}
	flt := NewFilter(&stubAdapter{}, wm, nil, nil)

	tests := []struct {
		name     string
		ts, id   int64
		decision Decision
	}{
		{"newer timestamp", 1001, 2, DecisionKeep},
		{"equal timestamp higher id", 1000, 7, DecisionKeep},
		{"equal timestamp lower id", 1000, 3, DecisionSkip},
		{"equal timestamp equal id", 1000, 5, DecisionSkip},
		{"older timestamp", 999, 1, DecisionOlder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, decision := flt.Classify(stubRecord(tt.ts, tt.id))
			assert.Equal(t, tt.decision, decision)
			assert.Equal(t, core.OrderingKey{Timestamp: tt.ts, RecordID: tt.id}, key)
		})
	}
}

func TestClassify_UnparseableTimestamp(t *testing.T) {
	wm := core.OrderingKey{Timestamp: 1000, RecordID: 5}
	now := func() time.Time { return time.UnixMilli(5000) }

	var warnings []string
	warn := func(msg string) { warnings = append(warnings, msg) }
	flt := NewFilter(&stubAdapter{}, wm, now, warn)

	t.Run("id above watermark is kept", func(t *testing.T) {
		key, decision := flt.Classify(core.RawRecord{"ts": "not-a-time", "id": float64(9)})
		assert.Equal(t, DecisionKeep, decision)
		assert.Equal(t, core.OrderingKey{Timestamp: 5000, RecordID: 9}, key)
	})

	t.Run("id at or below watermark is skipped", func(t *testing.T) {
		_, decision := flt.Classify(core.RawRecord{"ts": "not-a-time", "id": float64(5)})
		assert.Equal(t, DecisionSkip, decision)
	})

	assert.Len(t, warnings, 2)
}

func TestSortKept(t *testing.T) {
	records := []keptRecord{
		{key: core.OrderingKey{Timestamp: 1001, RecordID: 2}},
		{key: core.OrderingKey{Timestamp: 1000, RecordID: 7}},
		{key: core.OrderingKey{Timestamp: 1000, RecordID: 3}},
		{key: core.OrderingKey{Timestamp: 999, RecordID: 9}},
	}
	sortKept(records)

	want := []core.OrderingKey{
		{Timestamp: 999, RecordID: 9},
		{Timestamp: 1000, RecordID: 3},
		{Timestamp: 1000, RecordID: 7},
		{Timestamp: 1001, RecordID: 2},
	}
	for i, k := range want {
		assert.Equal(t, k, records[i].key)
	}
}
