package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/jobboard/internal/event"
	"github.com/yourorg/jobboard/internal/observability/metrics"
	"github.com/yourorg/jobboard/internal/reliability/retry"
)

// Dispatcher runs the reconciliation workflow for one event
type Dispatcher interface {
	Dispatch(ctx context.Context, evt *event.Event) error
}

// EventWorker drains the event queue and runs each event through the
// sync workflow. Events are retried with backoff; permanent rejections
// and exhausted retries land in the dead-letter list. The workflow's
// idempotency makes redelivery after a crashed attempt safe.
type EventWorker struct {
	queue      *Queue
	dispatcher Dispatcher
	feed       *Feed
	logger     *slog.Logger
	retryCfg   *retry.Config
}

// NewEventWorker creates a new event worker
func NewEventWorker(
	queue *Queue,
	dispatcher Dispatcher,
	feed *Feed,
	logger *slog.Logger,
	maxAttempts int,
	initialBackoff time.Duration,
) *EventWorker {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := retry.DefaultConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if initialBackoff > 0 {
		cfg.InitialBackoff = initialBackoff
	}
	return &EventWorker{
		queue:      queue,
		dispatcher: dispatcher,
		feed:       feed,
		logger:     logger,
		retryCfg:   cfg,
	}
}

// Start begins the consume loop and blocks until ctx is cancelled
func (w *EventWorker) Start(ctx context.Context) {
	w.logger.Info("event worker started",
		slog.Int("max_attempts", w.retryCfg.MaxAttempts),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("event worker stopped")
			return
		default:
		}

		env, err := w.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("event worker stopped")
				return
			}
			w.logger.Error("failed to dequeue event", slog.String("error", err.Error()))
			time.Sleep(time.Second)
			continue
		}
		if env == nil {
			continue
		}

		w.process(ctx, env)
	}
}

func (w *EventWorker) process(ctx context.Context, env *Envelope) {
	evt := env.Event
	if evt == nil {
		w.logger.Error("queue envelope without event, dead-lettering")
		w.toDeadLetter(ctx, env, "empty envelope")
		return
	}

	err := retry.Do(ctx, w.retryCfg, w.logger, "sync "+string(evt.Type), func(ctx context.Context) error {
		dispatchErr := w.dispatcher.Dispatch(ctx, evt)
		if dispatchErr != nil && event.IsValidation(dispatchErr) {
			return retry.Permanent(dispatchErr)
		}
		return dispatchErr
	})

	outcome := Outcome{
		DeliveryID: evt.DeliveryID,
		Type:       string(evt.Type),
		Result:     "reconciled",
		At:         time.Now().UTC(),
	}

	switch {
	case err == nil:
		metrics.ObserveWebhookEvent(string(evt.Type), "processed")
	case retry.IsPermanent(err):
		w.logger.Error("event permanently rejected",
			slog.String("delivery_id", evt.DeliveryID),
			slog.String("type", string(evt.Type)),
			slog.String("error", err.Error()),
		)
		metrics.ObserveWebhookEvent(string(evt.Type), "rejected")
		w.toDeadLetter(ctx, env, err.Error())
		outcome.Result = "rejected"
		outcome.Detail = err.Error()
	default:
		w.logger.Error("event failed after retries",
			slog.String("delivery_id", evt.DeliveryID),
			slog.String("type", string(evt.Type)),
			slog.String("error", err.Error()),
		)
		metrics.ObserveWebhookEvent(string(evt.Type), "failed")
		w.toDeadLetter(ctx, env, err.Error())
		outcome.Result = "failed"
		outcome.Detail = err.Error()
	}

	if w.feed != nil {
		w.feed.Publish(outcome)
	}
}

func (w *EventWorker) toDeadLetter(ctx context.Context, env *Envelope, reason string) {
	if err := w.queue.DeadLetter(ctx, env, reason); err != nil {
		w.logger.Error("failed to dead-letter event", slog.String("error", err.Error()))
		return
	}
	metrics.ObserveDeadLetter()
}
