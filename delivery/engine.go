package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/squideyes/esignatures/observability"
	"github.com/squideyes/esignatures/ratelimit"
	"github.com/squideyes/esignatures/webhook"
)

// EngineStore is the interface the engine needs for queue and archive
// operations.
type EngineStore interface {
	Queue
	BlobStore
}

// PoisonPusher moves messages that cannot be relayed out of the queue.
type PoisonPusher interface {
	PushPoison(ctx context.Context, m *Message, reason FailureReason, cause error) error
	Count(ctx context.Context) (int64, error)
}

// EngineConfig holds engine configuration.
type EngineConfig struct {
	Concurrency       int
	PollInterval      time.Duration
	BatchSize         int
	VisibilityTimeout time.Duration
	MaxAttempts       int
	RetrySchedule     []time.Duration
	MessageTTL        time.Duration
	// PublishRate caps publishes per second for each event kind; zero
	// means unlimited. PublishBurst is the bucket size.
	PublishRate  float64
	PublishBurst int
	// SigningKey, when set, signs every published envelope.
	SigningKey string
	Metrics    *observability.Metrics
	Tracer     *observability.Tracer
}

// Engine is the relay worker pool that claims and processes messages.
type Engine struct {
	store   EngineStore
	bus     Bus
	parser  *webhook.Parser
	retrier *Retrier
	poison  PoisonPusher
	limiter *ratelimit.Limiter
	config  EngineConfig
	logger  *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates a relay engine. A nil parser uses webhook.NewParser().
func NewEngine(store EngineStore, bus Bus, parser *webhook.Parser, poison PoisonPusher, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if parser == nil {
		parser = webhook.NewParser()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = cfg.Concurrency
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = 30 * time.Second
	}
	return &Engine{
		store:   store,
		bus:     bus,
		parser:  parser,
		retrier: NewRetrier(cfg.RetrySchedule, cfg.MaxAttempts),
		poison:  poison,
		limiter: ratelimit.New(cfg.PublishRate, cfg.PublishBurst),
		config:  cfg,
		logger:  logger,
	}
}

// Start begins the relay workers and poll loop.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.pollLoop(ctx)
	}()
}

// Stop cancels the poll loop and waits for in-flight messages to finish,
// or for ctx to expire.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pollLoop periodically claims visible messages and dispatches them to
// workers.
func (e *Engine) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, e.config.Concurrency)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch, err := e.store.Dequeue(ctx, e.config.BatchSize, e.config.VisibilityTimeout)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					e.logger.ErrorContext(ctx, "dequeue failed", "error", err)
				}
				continue
			}

			for _, m := range batch {
				select {
				case <-ctx.Done():
					return
				case sem <- struct{}{}:
				}

				e.wg.Add(1)
				go func(msg *Message) {
					defer e.wg.Done()
					defer func() { <-sem }()
					// Finish the message even if shutdown starts mid-relay.
					e.process(context.WithoutCancel(ctx), msg)
				}(m)
			}

			e.refreshGauges(ctx)
		}
	}
}

// process relays one claimed message and settles it.
func (e *Engine) process(ctx context.Context, m *Message) {
	var span trace.Span
	if e.config.Tracer != nil {
		ctx, span = e.config.Tracer.StartRelaySpan(ctx, m.ID.String(), m.Attempts)
	}
	start := time.Now()

	ev, err := e.parser.Parse(m.Payload)
	if err != nil {
		e.logger.WarnContext(ctx, "unparsable webhook payload",
			"message_id", m.ID, "error", err)
		e.poisonMessage(ctx, m, ReasonParse, err)
		if span != nil {
			e.config.Tracer.EndRelaySpan(span, "", "", err)
		}
		return
	}

	kind := ev.Kind().String()
	contractID := ev.ContractID().String()

	if err := e.relay(ctx, m, ev); err != nil {
		e.fail(ctx, m, err)
		if span != nil {
			e.config.Tracer.EndRelaySpan(span, kind, contractID, err)
		}
		return
	}

	if err := e.store.Ack(ctx, m.ID); err != nil {
		// The message becomes visible again and will be published twice.
		e.logger.ErrorContext(ctx, "ack failed",
			"message_id", m.ID, "error", err)
	}

	e.config.Metrics.RecordRelay(kind, time.Since(start).Seconds())
	e.logger.DebugContext(ctx, "relayed",
		"message_id", m.ID, "kind", kind, "contract_id", contractID, "attempt", m.Attempts)

	if span != nil {
		e.config.Tracer.EndRelaySpan(span, kind, contractID, nil)
	}
}

// relay archives signed contracts, then publishes the normalized event.
func (e *Engine) relay(ctx context.Context, m *Message, ev webhook.Event) error {
	if cs, ok := ev.(*webhook.ContractSigned); ok {
		if err := e.store.PutBlob(ctx, cs.BlobKey(), m.Payload); err != nil {
			return fmt.Errorf("archive %s: %w", cs.BlobKey(), err)
		}
	}

	body, err := webhook.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	env := NewEnvelope(m.ID, ev, body, e.config.MessageTTL)
	if e.config.SigningKey != "" {
		env.Sign(e.config.SigningKey, time.Now())
	}

	if err := e.limiter.Wait(ctx, ev.Kind().String()); err != nil {
		return fmt.Errorf("publish rate limit: %w", err)
	}
	if err := e.bus.Publish(ctx, env); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// fail releases the message for another attempt or poisons it.
func (e *Engine) fail(ctx context.Context, m *Message, cause error) {
	switch e.retrier.Decide(m) {
	case Redeliver:
		next := e.retrier.ComputeNextAttempt(m.Attempts)
		if err := e.store.Release(ctx, m.ID, next, cause.Error()); err != nil {
			e.logger.ErrorContext(ctx, "release failed",
				"message_id", m.ID, "error", err)
		}
		e.logger.WarnContext(ctx, "relay failed, retry scheduled",
			"message_id", m.ID, "attempt", m.Attempts, "next_at", next, "error", cause)

	case Poison:
		e.logger.ErrorContext(ctx, "relay failed permanently",
			"message_id", m.ID, "attempts", m.Attempts, "error", cause)
		e.poisonMessage(ctx, m, ReasonDelivery, cause)
	}
}

// poisonMessage records m in the poison store and removes it from the
// queue. Without a poison store the message is released instead so it is
// not lost.
func (e *Engine) poisonMessage(ctx context.Context, m *Message, reason FailureReason, cause error) {
	if e.poison == nil {
		if err := e.store.Release(ctx, m.ID, e.retrier.ComputeNextAttempt(m.Attempts), cause.Error()); err != nil {
			e.logger.ErrorContext(ctx, "release failed",
				"message_id", m.ID, "error", err)
		}
		return
	}

	if err := e.poison.PushPoison(ctx, m, reason, cause); err != nil {
		e.logger.ErrorContext(ctx, "push to poison store failed",
			"message_id", m.ID, "error", err)
		return
	}
	e.config.Metrics.RecordPoison(string(reason))

	if err := e.store.Ack(ctx, m.ID); err != nil {
		e.logger.ErrorContext(ctx, "ack poisoned message failed",
			"message_id", m.ID, "error", err)
	}
}

func (e *Engine) refreshGauges(ctx context.Context) {
	if e.config.Metrics == nil {
		return
	}
	pending, err := e.store.CountPending(ctx)
	if err != nil {
		return
	}
	var poisoned int64
	if e.poison != nil {
		if poisoned, err = e.poison.Count(ctx); err != nil {
			return
		}
	}
	e.config.Metrics.SetQueueSizes(pending, poisoned)
}
