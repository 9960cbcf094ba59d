package engine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/base"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/core"
	xerrors "github.com/bzhkem/Wazuh-confluence-atlasian/pkg/errors"
)

// Fetcher drives one vendor's API through successive pages under the retry
// policy and rate limiter, feeding each record through the filter.
type Fetcher struct {
	adapter        core.SourceAdapter
	client         *http.Client
	retry          *base.RetryPolicy
	limiter        *rate.Limiter
	pageSize       int
	requestTimeout time.Duration
	logger         *zap.Logger
}

// NewFetcher creates a fetcher for one adapter. client may be nil for the
// default HTTP client; limiter may be nil to disable rate limiting.
func NewFetcher(adapter core.SourceAdapter, client *http.Client, retry *base.RetryPolicy,
	limiter *rate.Limiter, pageSize int, requestTimeout time.Duration, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	if retry == nil {
		retry = base.DefaultRetryPolicy()
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		adapter:        adapter,
		client:         client,
		retry:          retry,
		limiter:        limiter,
		pageSize:       pageSize,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}

// FetchNew pulls pages until the record budget is reached, the vendor
// reports no further pages, a page comes back empty, or (for vendors with
// guaranteed descending order) the watermark boundary is crossed. Returns
// the kept records in fetch order; callers sort them.
func (f *Fetcher) FetchNew(ctx context.Context, flt *Filter, budget int) ([]keptRecord, error) {
	var kept []keptRecord
	cursor := core.PageCursor{}

	for len(kept) < budget {
		size := f.pageSize
		if remaining := budget - len(kept); remaining < size {
			size = remaining
		}

		page, err := f.fetchPage(ctx, cursor, size)
		if err != nil {
			return nil, err
		}
		if len(page.Records) == 0 {
			break
		}

		crossed := false
		for _, rec := range page.Records {
			key, decision := flt.Classify(rec)
			switch decision {
			case DecisionKeep:
				kept = append(kept, keptRecord{rec: rec, key: key})
			case DecisionOlder:
				if f.adapter.DescendingOrder() {
					crossed = true
				}
				// Vendors without an ordering guarantee rely entirely on
				// post-fetch filtering; an older record is just skipped.
			case DecisionSkip:
			}
			if crossed || len(kept) >= budget {
				break
			}
		}

		f.logger.Debug("page processed",
			zap.Int("offset", cursor.Offset),
			zap.Int("records", len(page.Records)),
			zap.Int("kept", len(kept)),
			zap.Bool("has_more", page.HasMore),
			zap.Bool("watermark_crossed", crossed))

		if crossed {
			break
		}

		cursor.Offset += len(page.Records)
		if !page.HasMore {
			break
		}
	}

	return kept, nil
}

// fetchPage requests one page under the retry policy. Authentication and
// authorization failures abort immediately; transient errors are retried
// with exponential backoff up to the attempt budget.
func (f *Fetcher) fetchPage(ctx context.Context, cursor core.PageCursor, size int) (core.Page, error) {
	var page core.Page
	attempt := 0

	err := f.retry.ExecuteWithCondition(ctx, func() error {
		attempt++
		p, err := f.requestPage(ctx, cursor, size)
		if err != nil {
			f.logger.Warn("page request failed",
				zap.Int("offset", cursor.Offset),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		page = p
		return nil
	}, xerrors.IsRetryable)

	return page, err
}

func (f *Fetcher) requestPage(ctx context.Context, cursor core.PageCursor, size int) (core.Page, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return core.Page{}, xerrors.Wrap(err, xerrors.ErrorTypeTimeout, "rate limiter wait aborted")
		}
	}

	reqCtx := ctx
	if f.requestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, f.requestTimeout)
		defer cancel()
	}

	req, err := f.adapter.BuildRequest(reqCtx, cursor, size)
	if err != nil {
		return core.Page{}, xerrors.Wrap(err, xerrors.ErrorTypeInternal, "failed to build page request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return core.Page{}, xerrors.Wrap(err, xerrors.ErrorTypeTimeout, "HTTP request timed out")
		}
		return core.Page{}, xerrors.Wrap(err, xerrors.ErrorTypeConnection, "HTTP request failed")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return f.adapter.ParsePage(resp, size)
	case http.StatusUnauthorized:
		return core.Page{}, xerrors.New(xerrors.ErrorTypeAuthentication,
			"HTTP 401 Unauthorized: invalid credentials or API token")
	case http.StatusForbidden:
		return core.Page{}, xerrors.New(xerrors.ErrorTypePermission,
			"HTTP 403 Forbidden: user does not have permission to access audit logs")
	case http.StatusTooManyRequests:
		return core.Page{}, xerrors.New(xerrors.ErrorTypeRateLimit,
			"HTTP 429 Too Many Requests: vendor rate limit exceeded").
			WithDetail("offset", cursor.Offset)
	default:
		return core.Page{}, xerrors.Newf(xerrors.ErrorTypeConnection,
			"API returned status %d", resp.StatusCode).
			WithDetail("offset", cursor.Offset)
	}
}
