package diagnostics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Object names written for a failed request.
const (
	PromptFile = "prompt.txt"
	RawFile    = "raw.json"
	ErrorFile  = "error.txt"
)

// Recorder captures each request's prompt and raw output via the generation
// hook and persists them only when the request is flushed as failed.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	store Store
	log   *zap.Logger

	mu      sync.Mutex
	pending map[string]*entry
}

type entry struct {
	at     time.Time
	prompt string
	raw    json.RawMessage
	genErr error
}

func NewRecorder(store Store, log *zap.Logger) *Recorder {
	if store == nil {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{store: store, log: log, pending: make(map[string]*entry)}
}

func (r *Recorder) Before(_ context.Context, runID, prompt string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.pending[runID] = &entry{at: time.Now(), prompt: prompt}
	r.mu.Unlock()
}

func (r *Recorder) After(_ context.Context, runID string, raw json.RawMessage, err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.pending[runID]
	if !ok {
		e = &entry{at: time.Now()}
		r.pending[runID] = e
	}
	e.raw = append(json.RawMessage(nil), raw...)
	e.genErr = err
}

// Flush ends tracking of runID. When failure is non-nil the captured
// prompt, raw output and error are written to the store.
func (r *Recorder) Flush(ctx context.Context, runID string, failure error) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	e, ok := r.pending[runID]
	delete(r.pending, runID)
	r.mu.Unlock()
	if failure == nil || !ok {
		return nil
	}

	var errs []error
	if e.prompt != "" {
		errs = append(errs, r.store.Put(ctx, runID, PromptFile, []byte(e.prompt)))
	}
	if len(e.raw) > 0 {
		errs = append(errs, r.store.Put(ctx, runID, RawFile, e.raw))
	}
	var msg bytes.Buffer
	msg.WriteString(e.at.UTC().Format(time.RFC3339))
	msg.WriteString("\n")
	msg.WriteString(failure.Error())
	if e.genErr != nil && !errors.Is(failure, e.genErr) {
		msg.WriteString("\ngeneration: ")
		msg.WriteString(e.genErr.Error())
	}
	msg.WriteString("\n")
	errs = append(errs, r.store.Put(ctx, runID, ErrorFile, msg.Bytes()))

	if err := errors.Join(errs...); err != nil {
		r.log.Warn("diagnostics write failed", zap.String("run_id", runID), zap.Error(err))
		return err
	}
	r.log.Info("diagnostics saved", zap.String("run_id", runID))
	return nil
}

// Pending reports how many requests are currently tracked.
func (r *Recorder) Pending() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
