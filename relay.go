package esignatures

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/squideyes/esignatures/api"
	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/dlq"
	"github.com/squideyes/esignatures/metadata"
	"github.com/squideyes/esignatures/observability"
	"github.com/squideyes/esignatures/store"
	"github.com/squideyes/esignatures/webhook"
)

// Relay receives provider callbacks and relays them, normalized, to a
// message bus.
type Relay struct {
	config      Config
	store       store.Store
	bus         delivery.Bus
	secret      string
	adminSecret string
	signingKey  string
	codec       metadata.Codec
	parser      *webhook.Parser
	dlqSvc      *dlq.Service
	engine      *delivery.Engine
	handler     *api.Handler
	metrics     *observability.Metrics
	tracer      *observability.Tracer
	logger      *slog.Logger
}

// New creates a new Relay with the given options. A store, a bus and a
// webhook secret are required.
func New(opts ...Option) (*Relay, error) {
	r := &Relay{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.store == nil {
		return nil, ErrNoStore
	}
	if r.bus == nil {
		return nil, ErrNoBus
	}
	if r.secret == "" {
		return nil, ErrNoSecret
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.wireServices()
	return r, nil
}

// wireServices initializes the internal services after options have been applied.
func (r *Relay) wireServices() {
	var parserOpts []webhook.ParserOption
	if r.codec != nil {
		parserOpts = append(parserOpts, webhook.WithCodec(r.codec))
	}
	r.parser = webhook.NewParser(parserOpts...)

	r.dlqSvc = dlq.NewService(r.store, r.logger)

	r.engine = delivery.NewEngine(r.store, r.bus, r.parser, r.dlqSvc, delivery.EngineConfig{
		Concurrency:       r.config.Concurrency,
		PollInterval:      r.config.PollInterval,
		BatchSize:         r.config.BatchSize,
		VisibilityTimeout: r.config.VisibilityTimeout,
		MaxAttempts:       r.config.MaxAttempts,
		RetrySchedule:     r.config.RetrySchedule,
		MessageTTL:        r.config.MessageTTL,
		PublishRate:       r.config.PublishRate,
		PublishBurst:      r.config.PublishBurst,
		SigningKey:        r.signingKey,
		Metrics:           r.metrics,
		Tracer:            r.tracer,
	}, r.logger)

	r.handler = api.NewHandler(r.store, r.dlqSvc, api.Config{
		Secret:       r.secret,
		AdminSecret:  r.adminSecret,
		MaxBodyBytes: r.config.MaxBodyBytes,
		Metrics:      r.metrics,
		Tracer:       r.tracer,
	}, r.logger)
}

// Handler returns the HTTP handler serving POST /WebHook and the poison
// queue admin routes. Admin routes require the admin secret, or the
// webhook secret when none is set.
func (r *Relay) Handler() http.Handler {
	return r.handler
}

// Start begins the relay engine.
func (r *Relay) Start(ctx context.Context) {
	r.engine.Start(ctx)
}

// Stop gracefully shuts down the relay engine, waiting at most
// ShutdownTimeout for in-flight messages.
func (r *Relay) Stop(ctx context.Context) error {
	if r.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.ShutdownTimeout)
		defer cancel()
	}
	return r.engine.Stop(ctx)
}

// Poison returns the poison queue service.
func (r *Relay) Poison() *dlq.Service {
	return r.dlqSvc
}

// Parser returns the callback parser used by the relay engine.
func (r *Relay) Parser() *webhook.Parser {
	return r.parser
}

// Store returns the configured store.
func (r *Relay) Store() store.Store {
	return r.store
}

// Config returns the effective configuration.
func (r *Relay) Config() Config {
	return r.config
}
