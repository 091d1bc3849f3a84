// Command concierge runs the advice service: the conversation API, the
// records API, and the scheduled deadline sweep.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/adviceline/concierge/internal/alert"
	"github.com/adviceline/concierge/internal/api"
	"github.com/adviceline/concierge/internal/benefits"
	"github.com/adviceline/concierge/internal/config"
	"github.com/adviceline/concierge/internal/deadlines"
	"github.com/adviceline/concierge/internal/factory"
	"github.com/adviceline/concierge/internal/health"
	"github.com/adviceline/concierge/internal/kb"
	"github.com/adviceline/concierge/internal/llm"
	"github.com/adviceline/concierge/internal/platform/logger"
	"github.com/adviceline/concierge/internal/router"
	"github.com/adviceline/concierge/internal/services"
	"github.com/adviceline/concierge/internal/session"
	"github.com/adviceline/concierge/internal/store"
	"github.com/adviceline/concierge/internal/workflow"
)

const llmRequestTimeout = 60 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	log := logger.New("concierge")

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, stop := newServerContext()
	defer stop()

	deps, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	monitor := startHealthCheckers(ctx, cfg, log, deps)

	sweep := deadlines.NewService(deps.sweeper, cfg.DeadlineSweepSpec, log)
	if err := sweep.Start(ctx); err != nil {
		return err
	}
	defer sweep.Stop()

	handler := api.NewRouter(api.Deps{
		Engine:    deps.engine,
		Sessions:  deps.sessions,
		Store:     deps.store,
		Deadlines: deps.tracker,
		Benefits:  deps.benefits,
		Locator:   deps.locator,
		Monitor:   monitor,
	})

	server := newHTTPServer(ctx, cfg, handler)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

// dependencies holds everything the router and scheduler need, built
// once at startup. Conversation collaborators (LLM, KB, memory) degrade
// at call time; only the store and Redis are fail-fast.
type dependencies struct {
	store    store.Store
	rdb      *redis.Client
	sessions *session.Manager
	engine   *workflow.Engine
	tracker  *deadlines.Tracker
	sweeper  *deadlines.Sweeper
	benefits *benefits.Calculator
	locator  *services.Locator
	guide    *llm.Ollama
	kb       kb.Retriever
}

func (d *dependencies) close() {
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
}

func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*dependencies, error) {
	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	sessions := session.NewManager(rdb)
	alerts := alert.NewRedisPublisher(rdb, cfg.CrisisAlertChannel)

	embedder := factory.NewEmbeddingProvider(ctx, cfg, log)
	retriever, err := factory.NewKBRetriever(ctx, cfg, embedder, log)
	if err != nil {
		return nil, fmt.Errorf("init knowledge base: %w", err)
	}
	memories, err := factory.NewMemoryStore(ctx, cfg, embedder, log)
	if err != nil {
		return nil, fmt.Errorf("init memory store: %w", err)
	}

	collaboratorTimeout := time.Duration(cfg.CollaboratorTimeoutSeconds) * time.Second
	guide := llm.NewOllama(cfg.OllamaURL, cfg.LLMModel, llmRequestTimeout)
	classifier := llm.NewOllama(cfg.OllamaURL, cfg.LLMModel, collaboratorTimeout)

	engine := workflow.New(workflow.Deps{
		Router: router.New(classifier, collaboratorTimeout),
		Guide:  guide,
		KB:     retriever,
		Memory: memories,
		Store:  st,
		Alerts: alerts,
	}, workflow.Options{
		SlotWindowDays:      cfg.SlotWindowDays,
		UrgentWindowDays:    cfg.UrgentWindowDays,
		CollaboratorTimeout: collaboratorTimeout,
	})

	tracker := deadlines.NewTracker(st.Deadlines(), cfg.DeadlineHorizonDays)
	notifier := alert.NewRedisDeadlineNotifier(rdb, cfg.DeadlineAlertChannel)
	sweeper := deadlines.NewSweeper(st.Deadlines(), notifier, cfg.DeadlineHorizonDays, log)

	return &dependencies{
		store:    st,
		rdb:      rdb,
		sessions: sessions,
		engine:   engine,
		tracker:  tracker,
		sweeper:  sweeper,
		benefits: benefits.NewCalculator(st.Benefits()),
		locator:  services.NewLocator(cfg.ServicesURL, collaboratorTimeout),
		guide:    guide,
		kb:       retriever,
	}, nil
}

// startHealthCheckers probes each backend on its own cadence and feeds
// the aggregate monitor behind /api/health/ready. The store is only
// probed when the driver exposes a ping.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, deps *dependencies) *health.Monitor {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	var checkers []health.Checker
	if pinger, ok := deps.store.(health.HealthPinger); ok {
		checkers = append(checkers, health.NewPingChecker("store", pinger, probeTimeout))
	}
	checkers = append(checkers, health.NewPingChecker("redis", deps.sessions, probeTimeout))
	checkers = append(checkers, health.NewPingChecker("ollama", deps.guide, probeTimeout))
	if pinger, ok := deps.kb.(health.HealthPinger); ok {
		checkers = append(checkers, health.NewPingChecker("weaviate", pinger, probeTimeout))
	}

	monitor := health.NewMonitor(log, checkers...)
	go monitor.Start(ctx, interval)
	return monitor
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// newServerContext returns a context cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
