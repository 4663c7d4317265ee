package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/slot-sniper/internal/config"
	"github.com/jwalitptl/slot-sniper/internal/history"
	"github.com/jwalitptl/slot-sniper/internal/luxmed"
	"github.com/jwalitptl/slot-sniper/internal/notify"
	"github.com/jwalitptl/slot-sniper/internal/scheduler"
	"github.com/jwalitptl/slot-sniper/internal/sniper"
	"github.com/jwalitptl/slot-sniper/pkg/logger"
	"github.com/jwalitptl/slot-sniper/pkg/metrics"
)

// sessionRunner establishes the portal session before every cycle. An
// authentication failure means the poll cycle is never entered; the
// scheduler simply tries again on the next tick.
type sessionRunner struct {
	client *luxmed.Client
	engine *sniper.Engine
	logger *logger.Logger
}

func (r *sessionRunner) RunOnce(ctx context.Context) sniper.CycleSummary {
	if err := r.client.EnsureSession(ctx); err != nil {
		r.logger.Error(err, "portal login failed, skipping this cycle")
		return sniper.CycleSummary{Errors: 1}
	}
	return r.engine.RunOnce(ctx)
}

func buildStore(cfg *config.Config, log *logger.Logger) (history.Store, error) {
	switch cfg.History.Backend {
	case "redis":
		opts, err := redis.ParseURL(cfg.History.RedisURL)
		if err != nil {
			return nil, err
		}
		return history.NewRedisStore(redis.NewClient(opts), cfg.Luxmed.Email), nil

	case "postgres":
		db, err := sqlx.Connect("postgres", cfg.History.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return history.NewPostgresStore(db, cfg.Luxmed.Email), nil

	default:
		return history.NewFileStore(cfg.History.Path, cfg.Luxmed.Email), nil
	}
}

func serveMetrics(addr string, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error(err, "metrics server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	configFiles := flag.String("config", "config.yaml", "comma-separated configuration file paths")
	flag.Parse()

	log := logger.NewLogger(nil)
	log.Info("slot sniper starting")

	cfg, err := config.Load(strings.Split(*configFiles, ",")...)
	if err != nil {
		log.Fatal(err, "failed to load config")
	}

	m := metrics.New("sniper")
	if cfg.Metrics.Enabled {
		serveMetrics(cfg.Metrics.Addr, log)
	}

	store, err := buildStore(cfg, log)
	if err != nil {
		log.Fatal(err, "failed to set up identity store", "backend", cfg.History.Backend)
	}

	sinks, err := notify.BuildSinks(cfg.Notify)
	if err != nil {
		log.Fatal(err, "failed to set up notification sinks")
	}
	for _, sink := range sinks {
		log.Info("notification sink configured", "sink", sink.Name(), "mode", string(sink.Mode()))
	}
	fanout := notify.NewFanout(sinks, cfg.Notify.SuspendTimeout, log, m)

	client, err := luxmed.NewClient(cfg.Luxmed, log)
	if err != nil {
		log.Fatal(err, "failed to set up portal client")
	}

	engine := sniper.NewEngine(client, store, fanout,
		cfg.Sniper.Locators, cfg.Sniper.Engine(), log, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down...")
		cancel()
	}()

	runner := &sessionRunner{client: client, engine: engine, logger: log}
	scheduler.New(runner, cfg.Sniper.Interval, log).Start(ctx)

	log.Info("slot sniper stopped")
}
