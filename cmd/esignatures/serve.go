package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/squideyes/esignatures"
	"github.com/squideyes/esignatures/bus/kafka"
	"github.com/squideyes/esignatures/bus/memory"
	busredis "github.com/squideyes/esignatures/bus/redis"
	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/observability"
	"github.com/squideyes/esignatures/store"
	memstore "github.com/squideyes/esignatures/store/memory"
	storeredis "github.com/squideyes/esignatures/store/redis"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Receive provider callbacks and relay them to the message bus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.configFile)
			if err != nil {
				return err
			}
			logger, err := newLogger(os.Stdout, cfg.Log.Level)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

// backends holds the store and bus opened for one serve run. rdb is set
// only while no redis store owns the client.
type backends struct {
	store store.Store
	bus   delivery.Bus
	rdb   goredis.UniversalClient
}

func (b *backends) Close() error {
	var errs []error
	// The bus goes first; it may share the store's redis client.
	if b.bus != nil {
		errs = append(errs, b.bus.Close())
	}
	if b.store != nil {
		errs = append(errs, b.store.Close())
	}
	if b.rdb != nil {
		errs = append(errs, b.rdb.Close())
	}
	return errors.Join(errs...)
}

// openBackends connects the configured store and bus. A single redis
// client is shared when both use redis.
func openBackends(cfg *Config) (*backends, error) {
	b := &backends{}

	if cfg.Store.Driver == "redis" || cfg.Bus.Driver == "redis" {
		b.rdb = goredis.NewUniversalClient(&goredis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	rdb := b.rdb
	switch cfg.Store.Driver {
	case "redis":
		b.store = storeredis.New(rdb)
		b.rdb = nil
	default:
		b.store = memstore.New()
	}

	switch cfg.Bus.Driver {
	case "redis":
		b.bus = busredis.New(rdb, busredis.WithStream(cfg.Bus.Stream))
	case "kafka":
		kb, err := kafka.New(kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.bus = kb
	default:
		b.bus = memory.New()
	}

	return b, nil
}

func serve(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	if cfg.Webhook.Secret == "" {
		return errNoSecret
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	b, err := openBackends(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error("close backends", "error", err)
		}
	}()

	if err := b.store.Ping(ctx); err != nil {
		return fmt.Errorf("store ping: %w", err)
	}
	if err := b.store.Migrate(ctx); err != nil {
		return err
	}

	relay, err := esignatures.New(
		esignatures.WithStore(b.store),
		esignatures.WithBus(b.bus),
		esignatures.WithSecret(cfg.Webhook.Secret),
		esignatures.WithAdminSecret(cfg.Webhook.AdminSecret),
		esignatures.WithSigningKey(cfg.Webhook.SigningKey),
		esignatures.WithLogger(logger),
		esignatures.WithMetrics(metrics),
		esignatures.WithTracer(observability.NewTracer()),
		esignatures.WithConcurrency(cfg.Relay.Concurrency),
		esignatures.WithPollInterval(cfg.Relay.PollInterval),
		esignatures.WithMaxAttempts(cfg.Relay.MaxAttempts),
		esignatures.WithPublishRate(cfg.Relay.PublishRate, cfg.Relay.PublishBurst),
		esignatures.WithMessageTTL(time.Duration(cfg.Bus.TTLHours)*time.Hour),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newMux(relay.Handler(), reg, b.store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr,
			"store", cfg.Store.Driver, "bus", cfg.Bus.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		relay.Start(gctx)
		<-gctx.Done()

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		httpErr := srv.Shutdown(shutdownCtx)

		// Stop applies the relay's own shutdown timeout.
		relayErr := relay.Stop(context.WithoutCancel(gctx))
		return errors.Join(httpErr, relayErr)
	})

	return g.Wait()
}

// newMux mounts the relay handler next to the metrics and health routes.
func newMux(relay http.Handler, gatherer prometheus.Gatherer, st store.Store) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/", relay)
	return mux
}
