package engine

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/base"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/core"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/sink"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/state"
)

// DefaultLimit is the record budget applied when the caller passes none.
const DefaultLimit = 1000

// DefaultInitialWindow bounds the first run of an unconfigured deployment:
// with no watermark on disk, only this much recent history is exported
// instead of the vendor's entire audit trail.
const DefaultInitialWindow = 24 * time.Hour

// Options are the per-invocation parameters.
type Options struct {
	// KeepUnread exports events without advancing the watermark (peek run)
	KeepUnread bool
	// Limit is the maximum number of records exported in this run
	Limit int
	// RunID correlates log lines and the scratch file; generated when empty
	RunID string
}

// Config tunes a new engine.
type Config struct {
	PageSize        int
	MaxRetries      int
	RetryDelay      time.Duration
	RequestTimeout  time.Duration
	RateLimitPerSec int
	InitialWindow   time.Duration
	HTTPClient      *http.Client
	// Clock overrides time.Now, for tests
	Clock func() time.Time
}

// Result summarizes one extraction run.
type Result struct {
	RunID     string
	Events    []*core.CanonicalEvent
	Watermark state.Watermark
	Advanced  bool
	Warnings  int
}

// Engine composes the fetcher, filter, sink and watermark store into one
// extraction run per invocation. It performs no locking: the caller is
// responsible for not overlapping runs against the same watermark store.
type Engine struct {
	adapter core.SourceAdapter
	store   *state.FileStore
	writer  *sink.Writer
	fetcher *Fetcher
	logger  *zap.Logger
	window  time.Duration
	now     func() time.Time
}

// New creates an engine for one adapter, store and sink writer.
func New(adapter core.SourceAdapter, store *state.FileStore, writer *sink.Writer,
	cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	retry := base.DefaultRetryPolicy().WithDelay(retryDelay, 5*time.Minute)
	if cfg.MaxRetries > 0 {
		retry = retry.WithMaxAttempts(cfg.MaxRetries)
	}

	var limiter *rate.Limiter
	if cfg.RateLimitPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitPerSec)
	}

	window := cfg.InitialWindow
	if window <= 0 {
		window = DefaultInitialWindow
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	fetcher := NewFetcher(adapter, cfg.HTTPClient, retry, limiter,
		cfg.PageSize, cfg.RequestTimeout, logger)

	return &Engine{
		adapter: adapter,
		store:   store,
		writer:  writer,
		fetcher: fetcher,
		logger:  logger,
		window:  window,
		now:     now,
	}
}

// Execute runs one extraction: load watermark, fetch and filter, write
// ordered events, advance the watermark unless the run is a peek run.
//
// A returned error is already reported on the output stream as a fatal
// status line; callers must still exit with a success code so the host
// scheduler does not discard partial output.
func (e *Engine) Execute(ctx context.Context, opts Options) (*Result, error) {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := e.logger.With(
		zap.String("run_id", runID),
		zap.String("source", e.adapter.Name()))

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	w := e.writer
	w.Status(sink.ActionStarted, fmt.Sprintf("fetching %s audit logs", e.adapter.Name()))

	result := &Result{RunID: runID}
	warn := func(msg string) {
		result.Warnings++
		w.Warning(msg)
	}

	wm, found, err := e.store.Load()
	if err != nil {
		warn(fmt.Sprintf("failed to load stored state, fetching recent events: %v", err))
		found = false
	}

	var wmKey core.OrderingKey
	if found {
		wmKey = wm.Key()
		w.Status(sink.ActionFiltering, fmt.Sprintf("fetching events after %s (ID > %d)",
			time.UnixMilli(wm.Timestamp).UTC().Format(time.RFC3339), wm.RecordID))
	} else {
		wmKey = core.OrderingKey{Timestamp: e.now().Add(-e.window).UnixMilli()}
		w.Status(sink.ActionFiltering, fmt.Sprintf("no previous state, fetching last %s of events", e.window))
	}
	result.Watermark = state.Watermark{Timestamp: wmKey.Timestamp, RecordID: wmKey.RecordID}

	flt := NewFilter(e.adapter, wmKey, e.now, warn)
	kept, err := e.fetcher.FetchNew(ctx, flt, limit)
	if err != nil {
		w.Fatal(fmt.Sprintf("log retrieval failed: %v", err))
		return result, err
	}
	sortKept(kept)

	maxKey := wmKey
	for _, k := range kept {
		ev, err := e.adapter.MapToCanonical(k.rec)
		if err != nil {
			warn(fmt.Sprintf("failed to parse event: %v", err))
			continue
		}
		ev.Key = k.key
		if err := w.WriteEvent(ev); err != nil {
			// Partial export beats aborting: keep the events already buffered.
			warn(fmt.Sprintf("failed to write event: %v", err))
			continue
		}
		result.Events = append(result.Events, ev)
		if k.key.After(maxKey) {
			maxKey = k.key
		}
	}

	w.Status(sink.ActionFetched, fmt.Sprintf("%d new events retrieved from %s API",
		len(result.Events), e.adapter.Name()))

	// Emit the data before touching state: a failed watermark write must not
	// eat events that were already produced, and an interrupted run stays
	// equivalent to no run.
	if _, err := w.Flush(); err != nil {
		w.Fatal(fmt.Sprintf("failed to flush results: %v", err))
		return result, err
	}

	if !opts.KeepUnread && len(result.Events) > 0 {
		next := state.Watermark{Timestamp: maxKey.Timestamp, RecordID: maxKey.RecordID}
		if err := e.store.Save(next); err != nil {
			w.Fatal(fmt.Sprintf("state update failed: %v", err))
			return result, err
		}
		result.Watermark = next
		result.Advanced = true
		w.Status(sink.ActionState, fmt.Sprintf("lastTimestamp=%d, lastRecordId=%d",
			next.Timestamp, next.RecordID))
	}

	log.Info("extraction run complete",
		zap.Int("events", len(result.Events)),
		zap.Int("warnings", result.Warnings),
		zap.Bool("advanced", result.Advanced))
	w.Status(sink.ActionFinished, "extraction finished")

	return result, nil
}
