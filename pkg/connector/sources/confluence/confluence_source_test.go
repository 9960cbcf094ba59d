package confluence

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/config"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/core"
)

func testSource(t *testing.T) *Source {
	t.Helper()
	adapter, err := NewSource(&config.Credentials{
		CloudID: "cloud-456",
		Email:   "svc@example.com",
		APIKey:  "secret",
	})
	require.NoError(t, err)
	return adapter.(*Source)
}

func TestBuildRequest(t *testing.T) {
	s := testSource(t)

	req, err := s.BuildRequest(context.Background(), core.PageCursor{Offset: 300}, 25)
	require.NoError(t, err)

	assert.Equal(t, "/ex/confluence/cloud-456/rest/api/audit", req.URL.Path)
	assert.Equal(t, "300", req.URL.Query().Get("start"))
	assert.Equal(t, "25", req.URL.Query().Get("limit"))

	user, pass, ok := req.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "svc@example.com", user)
	assert.Equal(t, "secret", pass)
}

func TestParsePage_ShortPageEndsListing(t *testing.T) {
	s := testSource(t)

	t.Run("full page has more", func(t *testing.T) {
		body := `{"results": [{"summary": "a"}, {"summary": "b"}]}`
		page, err := s.ParsePage(&http.Response{Body: io.NopCloser(strings.NewReader(body))}, 2)
		require.NoError(t, err)
		assert.Len(t, page.Records, 2)
		assert.True(t, page.HasMore)
	})

	t.Run("short page is the last", func(t *testing.T) {
		body := `{"results": [{"summary": "a"}]}`
		page, err := s.ParsePage(&http.Response{Body: io.NopCloser(strings.NewReader(body))}, 2)
		require.NoError(t, err)
		assert.Len(t, page.Records, 1)
		assert.False(t, page.HasMore)
	})
}

func TestNormalizeTimestamp(t *testing.T) {
	s := testSource(t)

	t.Run("millisecond number", func(t *testing.T) {
		ms, err := s.NormalizeTimestamp(core.RawRecord{"creationDate": float64(1736942318471)})
		require.NoError(t, err)
		assert.Equal(t, int64(1736942318471), ms)
	})

	t.Run("millisecond string", func(t *testing.T) {
		ms, err := s.NormalizeTimestamp(core.RawRecord{"creationDate": "1736942318471"})
		require.NoError(t, err)
		assert.Equal(t, int64(1736942318471), ms)
	})

	t.Run("ISO string", func(t *testing.T) {
		ms, err := s.NormalizeTimestamp(core.RawRecord{"creationDate": "2025-11-11T15:18:38.471Z"})
		require.NoError(t, err)
		assert.Equal(t, int64(1762874318471), ms)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := s.NormalizeTimestamp(core.RawRecord{})
		assert.Error(t, err)
	})
}

func TestOrderingID_Deterministic(t *testing.T) {
	s := testSource(t)

	rec := core.RawRecord{
		"creationDate": float64(1736942318471),
		"author":       map[string]interface{}{"publicName": "jsmith"},
		"summary":      "Page created",
	}

	first := s.OrderingID(rec)
	assert.GreaterOrEqual(t, first, int64(0))
	assert.Less(t, first, int64(1_000_000_000_000))

	// Same record yields the same id across repeated computations
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.OrderingID(rec))
	}

	// A different record yields a different fingerprint
	other := core.RawRecord{
		"creationDate": float64(1736942318471),
		"author":       map[string]interface{}{"publicName": "jsmith"},
		"summary":      "Page deleted",
	}
	assert.NotEqual(t, first, s.OrderingID(other))
}

func TestRelevantUser(t *testing.T) {
	s := testSource(t)

	t.Run("user lifecycle prefers associated user", func(t *testing.T) {
		rec := core.RawRecord{
			"summary": "User added to space",
			"author":  map[string]interface{}{"publicName": "admin"},
			"associatedObjects": []interface{}{
				map[string]interface{}{"objectType": "user", "name": "new.user"},
			},
		}
		assert.Equal(t, "new.user", s.RelevantUser(rec))
	})

	t.Run("content event attributed to author", func(t *testing.T) {
		rec := core.RawRecord{
			"summary": "Page created",
			"author":  map[string]interface{}{"publicName": "jsmith"},
		}
		assert.Equal(t, "jsmith", s.RelevantUser(rec))
	})

	t.Run("default falls back to author", func(t *testing.T) {
		rec := core.RawRecord{
			"summary": "Space settings changed",
			"author":  map[string]interface{}{"publicName": "jsmith"},
		}
		assert.Equal(t, "jsmith", s.RelevantUser(rec))
	})
}

func TestMapToCanonical(t *testing.T) {
	s := testSource(t)

	rec := core.RawRecord{
		"creationDate":  float64(1736942318471),
		"summary":       "Page created",
		"category":      "Pages",
		"author":        map[string]interface{}{"publicName": "jsmith"},
		"remoteAddress": "198.51.100.4",
	}

	ev, err := s.MapToCanonical(rec)
	require.NoError(t, err)

	assert.Equal(t, "jsmith", ev.User)
	assert.Equal(t, "jsmith", ev.Actor)
	assert.Equal(t, "198.51.100.4", ev.SrcIP)
	assert.Equal(t, "confluence", ev.Namespace)
	assert.Equal(t, "cloud-456", ev.Vendor["cloudId"])
	assert.Equal(t, float64(1736942318471), ev.Timestamp)

	// The serialized id matches the synthetic ordering id
	got, err := strconv.ParseInt(ev.ID.(string), 10, 64)
	require.NoError(t, err)
	assert.Equal(t, s.OrderingID(rec), got)
}
