// Package sink writes ordered canonical events and structured status signals
// to the output stream. Events go to two destinations: a transient buffer
// flushed to stdout at end of run, and a durable per-run scratch file for
// external correlation. Status lines are written immediately.
package sink

import (
	"bytes"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/core"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/errors"
)

// Status actions shared with the agent-side decoder.
const (
	ActionStarted   = "extraction started"
	ActionFinished  = "extraction finished"
	ActionError     = "extraction error"
	ActionWarning   = "extraction warning"
	ActionFiltering = "filtering"
	ActionFetched   = "logs fetched"
	ActionState     = "state updated"
	ActionCleanup   = "cleanup"
)

// Writer appends events and status signals to the output stream.
type Writer struct {
	out         io.Writer
	buf         bytes.Buffer
	scratchPath string
	scratch     *os.File
	namespace   string
	cloudID     string
	logger      *zap.Logger
	written     int
}

// NewWriter creates a sink writer. The scratch file is created lazily on the
// first event write; scratchPath may be empty to disable it.
func NewWriter(out io.Writer, scratchPath, namespace, cloudID string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		out:         out,
		scratchPath: scratchPath,
		namespace:   namespace,
		cloudID:     cloudID,
		logger:      logger,
	}
}

// WriteEvent appends one canonical event as a single JSON line to the result
// buffer and the scratch file. Callers treat a returned error as a per-event
// warning and continue with the next event.
func (w *Writer) WriteEvent(ev *core.CanonicalEvent) error {
	line, err := gojson.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode event")
	}
	line = append(line, '\n')

	// The scratch append happens before buffering so a failed event is
	// neither emitted nor counted.
	if w.scratchPath != "" {
		if err := w.appendScratch(line); err != nil {
			return err
		}
	}

	w.buf.Write(line)
	w.written++
	return nil
}

func (w *Writer) appendScratch(line []byte) error {
	if w.scratch == nil {
		f, err := os.OpenFile(w.scratchPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.Wrapf(err, errors.ErrorTypeFile,
				"failed to open scratch file %s", w.scratchPath)
		}
		w.scratch = f
	}
	if _, err := w.scratch.Write(line); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeFile,
			"failed to append to scratch file %s", w.scratchPath)
	}
	return nil
}

// Flush writes the buffered event lines to the output stream and returns the
// number of events flushed.
func (w *Writer) Flush() (int, error) {
	if w.buf.Len() > 0 {
		if _, err := w.out.Write(w.buf.Bytes()); err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeFile, "failed to flush results")
		}
		w.buf.Reset()
	}
	return w.written, nil
}

// EventsWritten returns the number of events accepted so far
func (w *Writer) EventsWritten() int {
	return w.written
}

// Close closes and removes the scratch file. The scratch log is debugging
// material for the current run only.
func (w *Writer) Close() error {
	if w.scratch == nil {
		return nil
	}
	if err := w.scratch.Close(); err != nil {
		w.logger.Warn("failed to close scratch file", zap.Error(err))
	}
	w.scratch = nil
	if err := os.Remove(w.scratchPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrorTypeFile,
			"failed to remove scratch file %s", w.scratchPath)
	}
	return nil
}

// Status emits a structured status line immediately on the output stream.
// Status lines share the event envelope shape; consumers distinguish them by
// the presence of an action field instead of a timestamp.
func (w *Writer) Status(action, description string) {
	msg := map[string]interface{}{
		"id": rand.Int63n(100000000000000),
		w.namespace: map[string]interface{}{
			"cloudId":     w.cloudID,
			"action":      action,
			"description": description,
		},
	}
	line, err := gojson.Marshal(msg)
	if err != nil {
		w.logger.Error("failed to encode status line", zap.Error(err))
		return
	}
	line = append(line, '\n')
	if _, err := w.out.Write(line); err != nil {
		w.logger.Error("failed to write status line", zap.Error(err))
	}
}

// Warning emits a non-fatal warning status line
func (w *Writer) Warning(description string) {
	w.logger.Warn(description)
	w.Status(ActionWarning, description)
}

// Fatal emits a fatal error status line. The process still exits with a
// success code; the failure travels on the output stream.
func (w *Writer) Fatal(description string) {
	w.logger.Error(description)
	w.Status(ActionError, description)
}

// ScratchPath builds the per-run scratch file path for a vendor
func ScratchPath(dir, vendor, runID string) string {
	return filepath.Join(dir, vendor+"_audit_"+runID+".log")
}

// CleanupScratch deletes scratch files for the vendor older than maxAge.
// Leftovers accumulate only when a prior run was killed before Close.
func CleanupScratch(dir, vendor string, maxAge time.Duration, w *Writer) {
	pattern := filepath.Join(dir, vendor+"_audit_*.log")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		w.Warning("cleanup failed: " + err.Error())
		return
	}

	now := time.Now()
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		if err := os.Remove(path); err != nil {
			w.Warning("cleanup failed: " + err.Error())
			continue
		}
		w.Status(ActionCleanup, "deleted old scratch file: "+path)
	}
}
