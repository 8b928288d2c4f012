package webhook

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/shelfworks/bookshelf/pkg/billing"
	"github.com/shelfworks/bookshelf/pkg/queue"
)

// maxBodySize caps webhook bodies; provider events are small JSON documents.
const maxBodySize = 1 << 20

// Dispatcher is the inbound webhook boundary. It classifies deliveries and
// enqueues recognized events for asynchronous processing.
type Dispatcher struct {
	enqueuer *queue.Enqueuer
	dedup    Deduper
	log      *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDeduper enables delivery deduplication on the provider event id.
func WithDeduper(d Deduper) DispatcherOption {
	return func(dp *Dispatcher) {
		if d != nil {
			dp.dedup = d
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(log *slog.Logger) DispatcherOption {
	return func(dp *Dispatcher) {
		if log != nil {
			dp.log = log
		}
	}
}

// NewDispatcher creates a webhook dispatcher enqueuing into the given queue.
func NewDispatcher(enqueuer *queue.Enqueuer, opts ...DispatcherOption) *Dispatcher {
	if enqueuer == nil {
		panic("webhook: enqueuer is required")
	}

	d := &Dispatcher{
		enqueuer: enqueuer,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ServeHTTP handles one delivery. The response is 200 regardless of what the
// body contains or whether enqueueing worked: a non-2xx answer would make
// the provider retry, and retries only help when processing is the problem,
// not when the event itself is unusable.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer d.acknowledge(w)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		d.log.ErrorContext(r.Context(), "failed to read webhook body", slog.String("error", err.Error()))
		return
	}

	env, err := billing.ParseEnvelope(body)
	if err != nil {
		d.log.ErrorContext(r.Context(), "failed to parse webhook envelope", slog.String("error", err.Error()))
		return
	}

	eventType, ok := env.EventType()
	if !ok {
		d.log.InfoContext(r.Context(), "ignoring unrecognized webhook type", slog.String("type", env.Type))
		return
	}

	if d.isDuplicate(r, env.ID) {
		d.log.InfoContext(r.Context(), "skipping duplicate webhook delivery",
			slog.String("type", env.Type),
			slog.String("event_id", env.ID))
		return
	}

	var task any
	switch eventType {
	case billing.EventPaymentSucceeded:
		task = PaymentSucceededTask{EventID: env.ID, Data: env.Data}
	case billing.EventMembershipActivated:
		task = MembershipActivatedTask{EventID: env.ID, Data: env.Data}
	case billing.EventMembershipDeactivated:
		task = MembershipDeactivatedTask{EventID: env.ID, Data: env.Data}
	}

	if err := d.enqueuer.Enqueue(r.Context(), task); err != nil {
		// Still acknowledged: the provider's redelivery is the retry path.
		d.log.ErrorContext(r.Context(), "failed to enqueue webhook event",
			slog.String("type", env.Type),
			slog.String("error", err.Error()))
		return
	}

	d.log.InfoContext(r.Context(), "webhook event enqueued",
		slog.String("type", env.Type),
		slog.String("event_id", env.ID))
}

// isDuplicate consults the deduper when one is configured and the delivery
// carries an id. The check is read-only: ids are marked by the task handlers
// once processing completes, so a redelivery of an event whose first attempt
// was lost still gets enqueued. Dedup errors fail open: processing is
// idempotent, so an occasional duplicate is cheaper than dropping a real
// event.
func (d *Dispatcher) isDuplicate(r *http.Request, eventID string) bool {
	if d.dedup == nil || eventID == "" {
		return false
	}
	seen, err := d.dedup.Seen(r.Context(), eventID)
	if err != nil {
		d.log.WarnContext(r.Context(), "webhook dedup check failed",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()))
		return false
	}
	return seen
}

func (d *Dispatcher) acknowledge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
