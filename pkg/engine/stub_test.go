package engine

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	gojson "github.com/goccy/go-json"

	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/core"
)

// stubAdapter is a minimal source adapter for engine tests. Records carry a
// millisecond "ts" and a numeric "id"; pages use a records/hasMore envelope.
type stubAdapter struct {
	baseURL    string
	descending bool
}

func (a *stubAdapter) Name() string          { return "stub" }
func (a *stubAdapter) Namespace() string     { return "stub" }
func (a *stubAdapter) DescendingOrder() bool { return a.descending }

func (a *stubAdapter) BuildRequest(ctx context.Context, cursor core.PageCursor, pageSize int) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("offset", strconv.Itoa(cursor.Offset))
	q.Set("limit", strconv.Itoa(pageSize))
	req.URL.RawQuery = q.Encode()
	return req, nil
}

func (a *stubAdapter) ParsePage(resp *http.Response, requested int) (core.Page, error) {
	var env struct {
		Records []core.RawRecord `json:"records"`
		HasMore bool             `json:"hasMore"`
	}
	if err := gojson.NewDecoder(resp.Body).Decode(&env); err != nil {
		return core.Page{}, err
	}
	return core.Page{Records: env.Records, HasMore: env.HasMore}, nil
}

func (a *stubAdapter) NormalizeTimestamp(rec core.RawRecord) (int64, error) {
	return core.ParseTimestamp(rec["ts"])
}

func (a *stubAdapter) OrderingID(rec core.RawRecord) int64 {
	return rec.Int64("id")
}

func (a *stubAdapter) MapToCanonical(rec core.RawRecord) (*core.CanonicalEvent, error) {
	if _, ok := rec["malformed"]; ok {
		return nil, fmt.Errorf("record %d has no usable payload", a.OrderingID(rec))
	}
	return &core.CanonicalEvent{
		ID:        rec["id"],
		Timestamp: rec["ts"],
		User:      rec.String("user"),
		Namespace: "stub",
		Vendor: map[string]interface{}{
			"summary": rec.String("summary"),
		},
	}, nil
}

func (a *stubAdapter) RelevantUser(rec core.RawRecord) string {
	return rec.String("user")
}

func stubRecord(ts, id int64) core.RawRecord {
	return core.RawRecord{"ts": float64(ts), "id": float64(id)}
}
