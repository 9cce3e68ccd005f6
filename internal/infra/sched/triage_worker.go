package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"inbox-triage-agent/internal/domain/model"
	"inbox-triage-agent/internal/domain/ports/adapter"
	"inbox-triage-agent/internal/infra/logging"
	"inbox-triage-agent/internal/infra/metrics"
	"inbox-triage-agent/internal/usecase"
)

// RunMetrics aggregates counters over one process lifetime. The worker loop
// is the only writer; the admin status endpoint reads snapshots.
type RunMetrics struct {
	mu                 sync.Mutex
	processed          int
	classifiedViaLLM   int
	classifiedViaRules int
	failed             int
	lastError          string
}

// MetricsSnapshot is the read-only view served by the admin API.
type MetricsSnapshot struct {
	Processed          int    `json:"processed"`
	ClassifiedViaLLM   int    `json:"classified_via_llm"`
	ClassifiedViaRules int    `json:"classified_via_rules"`
	Failed             int    `json:"failed"`
	LastError          string `json:"last_error,omitempty"`
}

func (m *RunMetrics) markProcessed(by model.ClassifiedBy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed++
	if by == model.ClassifiedByLLM {
		m.classifiedViaLLM++
	} else {
		m.classifiedViaRules++
	}
}

func (m *RunMetrics) markFailed(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
	m.lastError = err.Error()
}

func (m *RunMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Processed:          m.processed,
		ClassifiedViaLLM:   m.classifiedViaLLM,
		ClassifiedViaRules: m.classifiedViaRules,
		Failed:             m.failed,
		LastError:          m.lastError,
	}
}

// TriageWorker drives the poll -> claim -> classify -> update cycle,
// serially, until its context is cancelled. Every per-message failure is
// recorded and survived; only cancellation ends the loop.
type TriageWorker struct {
	api      adapter.InboxAPIAdapter
	engine   usecase.ClassificationEngine
	interval time.Duration
	batch    int
	claim    bool
	metrics  *RunMetrics
	log      *zerolog.Logger
}

func NewTriageWorker(
	api adapter.InboxAPIAdapter,
	engine usecase.ClassificationEngine,
	interval time.Duration,
	batchSize int,
	claimMessages bool,
	logger *zerolog.Logger,
) *TriageWorker {
	compLog := logger.With().Str("component", "TriageWorker").Logger()
	return &TriageWorker{
		api:      api,
		engine:   engine,
		interval: interval,
		batch:    batchSize,
		claim:    claimMessages,
		metrics:  &RunMetrics{},
		log:      &compLog,
	}
}

// Metrics exposes the run counters for the admin surface.
func (w *TriageWorker) Metrics() *RunMetrics { return w.metrics }

// Run polls until ctx is cancelled. A final metrics summary is logged on
// the way out.
func (w *TriageWorker) Run(ctx context.Context) error {
	w.log.Info().
		Int("batch_size", w.batch).
		Dur("poll_interval", w.interval).
		Bool("claim_messages", w.claim).
		Msg("Starting triage worker")

	for {
		if ctx.Err() != nil {
			break
		}

		messages, err := w.api.FetchMessages(ctx, model.LabelOther, w.batch)
		if err != nil {
			w.metrics.markFailed(err)
			metrics.IncPoll("error")
			w.log.Error().Err(err).Msg("Failed fetching messages")
			if !w.sleep(ctx) {
				break
			}
			continue
		}

		if len(messages) == 0 {
			metrics.IncPoll("empty")
			if !w.sleep(ctx) {
				break
			}
			continue
		}
		metrics.IncPoll("batch")

		for _, msg := range messages {
			if ctx.Err() != nil {
				break
			}
			w.processOne(ctx, msg)
		}
	}

	snap := w.metrics.Snapshot()
	w.log.Info().
		Int("processed", snap.Processed).
		Int("success_llm", snap.ClassifiedViaLLM).
		Int("success_rules", snap.ClassifiedViaRules).
		Int("failed", snap.Failed).
		Msg("Stopping triage worker")
	return ctx.Err()
}

func (w *TriageWorker) processOne(ctx context.Context, msg model.Message) {
	ctx = logging.WithTraceID(ctx, uuid.NewString())
	ctx = logging.WithMessageID(ctx, msg.ID)
	log := logging.With(ctx, w.log)

	// A panic while handling one message must not take the loop down.
	defer func() {
		if r := recover(); r != nil {
			w.metrics.markFailed(fmt.Errorf("panic: %v", r))
			metrics.IncFailed()
			log.Error().Interface("panic", r).Msg("Unexpected error processing message")
		}
	}()

	if w.claim {
		claimed, err := w.api.ClaimMessage(ctx, msg.ID)
		if err != nil {
			w.metrics.markFailed(err)
			metrics.IncFailed()
			metrics.IncClaim("error")
			log.Warn().Err(err).Msg("Unable to claim message")
			return
		}
		if !claimed {
			metrics.IncClaim("skipped")
			log.Debug().Msg("Message skipped (not claimed)")
			return
		}
		metrics.IncClaim("claimed")
	}

	payload := w.engine.ClassifyMessage(ctx, msg)
	if err := w.api.UpdateMessage(ctx, msg.ID, payload); err != nil {
		w.metrics.markFailed(err)
		metrics.IncFailed()
		log.Error().Err(err).Msg("Failed to update message")
		return
	}

	w.metrics.markProcessed(payload.ClassifiedBy)
	metrics.IncProcessed(string(payload.ClassifiedBy))
	log.Info().
		Str("classification", string(payload.Classification)).
		Str("classified_by", string(payload.ClassifiedBy)).
		Msg("Message classified")
}

// sleep waits one poll interval; false means the context was cancelled.
func (w *TriageWorker) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(w.interval):
		return true
	}
}
