// Package state persists extraction progress between runs: the composite
// (lastTimestamp, lastRecordId) watermark, one JSON file per vendor.
package state

import (
	"os"
	"strconv"

	gojson "github.com/goccy/go-json"

	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/core"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/errors"
)

// State file keys.
const (
	keyLastTimestamp = "lastTimestamp"
	keyLastRecordID  = "lastRecordId"
)

// Watermark is the durable cursor marking the last successfully exported
// event. Timestamp is milliseconds since epoch, normalized from the vendor's
// native format; RecordID breaks ties between equal timestamps.
type Watermark struct {
	Timestamp int64 `json:"lastTimestamp"`
	RecordID  int64 `json:"lastRecordId"`
}

// Key returns the watermark as an ordering key
func (w Watermark) Key() core.OrderingKey {
	return core.OrderingKey{Timestamp: w.Timestamp, RecordID: w.RecordID}
}

// FileStore reads and writes the watermark file with atomic replace
// semantics: a crash mid-write leaves either the old or the new value on
// disk, never a partial one. Keys other than the watermark pair are
// preserved across save cycles.
type FileStore struct {
	path  string
	extra map[string]gojson.RawMessage
}

// NewFileStore creates a watermark store backed by the given path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the durable file path
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the persisted watermark. The second return is false when no
// watermark exists. A present but malformed file is reported as a data error;
// callers treat it identically to absent and surface a warning.
func (s *FileStore) Load() (Watermark, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Watermark{}, false, nil
		}
		return Watermark{}, false, errors.Wrapf(err, errors.ErrorTypeFile,
			"failed to read state file %s", s.path)
	}

	raw := map[string]gojson.RawMessage{}
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return Watermark{}, false, errors.Wrapf(err, errors.ErrorTypeData,
			"malformed state file %s", s.path)
	}

	tsRaw, ok := raw[keyLastTimestamp]
	if !ok {
		// File exists but holds no watermark yet; keep its other keys.
		s.extra = raw
		return Watermark{}, false, nil
	}

	ts, err := parseNumber(tsRaw)
	if err != nil {
		return Watermark{}, false, errors.Wrapf(err, errors.ErrorTypeData,
			"unparseable %s in state file %s", keyLastTimestamp, s.path)
	}

	var id int64
	if idRaw, ok := raw[keyLastRecordID]; ok {
		id, err = parseNumber(idRaw)
		if err != nil {
			return Watermark{}, false, errors.Wrapf(err, errors.ErrorTypeData,
				"unparseable %s in state file %s", keyLastRecordID, s.path)
		}
	}

	delete(raw, keyLastTimestamp)
	delete(raw, keyLastRecordID)
	s.extra = raw

	return Watermark{Timestamp: ts, RecordID: id}, true, nil
}

// Save persists the watermark via temp-file-then-atomic-rename. Any extra
// keys seen by the last Load are written back unchanged.
func (s *FileStore) Save(w Watermark) error {
	out := map[string]gojson.RawMessage{}
	for k, v := range s.extra {
		out[k] = v
	}
	out[keyLastTimestamp] = gojson.RawMessage(strconv.FormatInt(w.Timestamp, 10))
	out[keyLastRecordID] = gojson.RawMessage(strconv.FormatInt(w.RecordID, 10))

	data, err := gojson.MarshalIndent(out, "", "   ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeState, "failed to encode state")
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeState, "failed to write state file %s", tmp)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeState, "failed to replace state file %s", s.path)
	}

	return nil
}

// parseNumber accepts both JSON numbers and numeric strings: older state
// files written by previous exporter versions stored the timestamp as a
// string.
func parseNumber(raw gojson.RawMessage) (int64, error) {
	var n int64
	if err := gojson.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var str string
	if err := gojson.Unmarshal(raw, &str); err == nil {
		return strconv.ParseInt(str, 10, 64)
	}
	return 0, errors.Newf(errors.ErrorTypeData, "value %q is not numeric", string(raw))
}
