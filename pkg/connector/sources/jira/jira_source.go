// Package jira implements the source adapter for the Jira Cloud audit API.
//
// Endpoint: https://api.atlassian.com/ex/jira/{cloudId}/rest/api/3/auditing/record
// Pagination: offset/limit query parameters; the response envelope carries an
// explicit hasMore flag. Records have a stable native integer id and an ISO
// "created" timestamp, and are returned newest first.
package jira

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/config"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/core"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/errors"
)

const (
	sourceName    = "jira"
	baseURLFormat = "https://api.atlassian.com/ex/jira/%s/rest/api/3/auditing/record"
)

// Source is the Jira audit-log source adapter.
type Source struct {
	creds   *config.Credentials
	baseURL string
}

// NewSource creates a Jira source adapter bound to a credential record.
func NewSource(creds *config.Credentials) (core.SourceAdapter, error) {
	if creds == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "credentials are required")
	}
	return &Source{
		creds:   creds,
		baseURL: fmt.Sprintf(baseURLFormat, creds.CloudID),
	}, nil
}

// Name implements core.SourceAdapter
func (s *Source) Name() string { return sourceName }

// Namespace implements core.SourceAdapter
func (s *Source) Namespace() string { return sourceName }

// DescendingOrder reports true: the auditing/record endpoint returns records
// newest first, so fetching may stop once the watermark boundary is crossed.
func (s *Source) DescendingOrder() bool { return true }

// BuildRequest implements core.SourceAdapter
func (s *Source) BuildRequest(ctx context.Context, cursor core.PageCursor, pageSize int) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL, nil)
	if err != nil {
		return nil, err
	}

	q := req.URL.Query()
	q.Set("offset", strconv.Itoa(cursor.Offset))
	q.Set("limit", strconv.Itoa(pageSize))
	req.URL.RawQuery = q.Encode()

	req.SetBasicAuth(s.creds.Email, s.creds.APIKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

type pageEnvelope struct {
	Records []core.RawRecord `json:"records"`
	HasMore bool             `json:"hasMore"`
}

// ParsePage implements core.SourceAdapter
func (s *Source) ParsePage(resp *http.Response, _ int) (core.Page, error) {
	var env pageEnvelope
	if err := gojson.NewDecoder(resp.Body).Decode(&env); err != nil {
		return core.Page{}, errors.Wrap(err, errors.ErrorTypeData, "failed to decode Jira audit response")
	}
	return core.Page{Records: env.Records, HasMore: env.HasMore}, nil
}

// NormalizeTimestamp implements core.SourceAdapter
func (s *Source) NormalizeTimestamp(rec core.RawRecord) (int64, error) {
	return core.ParseTimestamp(rec["created"])
}

// OrderingID returns the record's native integer ID
func (s *Source) OrderingID(rec core.RawRecord) int64 {
	return rec.Int64("id")
}

// MapToCanonical implements core.SourceAdapter
func (s *Source) MapToCanonical(rec core.RawRecord) (*core.CanonicalEvent, error) {
	return &core.CanonicalEvent{
		ID:        rec.Int64("id"),
		Timestamp: rec["created"],
		User:      s.RelevantUser(rec),
		Actor:     rec.String("authorKey"),
		SrcIP:     rec.String("remoteAddress"),
		Namespace: sourceName,
		Vendor: map[string]interface{}{
			"cloudId":         s.creds.CloudID,
			"summary":         rec.String("summary"),
			"category":        rec.String("category"),
			"eventSource":     rec.String("eventSource"),
			"objectItem":      rec["objectItem"],
			"associatedItems": rec["associatedItems"],
			"changedValues":   rec["changedValues"],
		},
	}, nil
}

// userRules is the relevant-user extraction table, evaluated in priority
// order against the lowercased event summary.
var userRules = []core.UserRule{
	{
		// Events about a user object name the affected user, not the actor.
		Keywords: []string{"user"},
		Extract: func(rec core.RawRecord) (string, bool) {
			if strings.EqualFold(rec.String("objectItem", "typeName"), "user") {
				return rec.String("objectItem", "name"), true
			}
			return "", false
		},
	},
	{
		Keywords: []string{"user added", "user removed", "user created", "user deleted"},
		Extract: func(rec core.RawRecord) (string, bool) {
			for _, item := range rec.Slice("associatedItems") {
				m, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				ri := core.RawRecord(m)
				if strings.EqualFold(ri.String("typeName"), "user") {
					return ri.String("name"), true
				}
			}
			return "", false
		},
	},
}

// RelevantUser extracts the most relevant user for the event, defaulting to
// the acting principal.
func (s *Source) RelevantUser(rec core.RawRecord) string {
	return core.ResolveUser(rec, rec.String("summary"), userRules, rec.String("authorKey"))
}
