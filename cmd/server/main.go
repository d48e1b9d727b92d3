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

	"github.com/joho/godotenv"

	assessmentstore "consentd/internal/assessment/store"
	breachnotifier "consentd/internal/breach/notifier"
	breachservice "consentd/internal/breach/service"
	breachstore "consentd/internal/breach/store"
	consentstore "consentd/internal/consent/store"
	"consentd/internal/engine"
	jwttoken "consentd/internal/jwt_token"
	ledgerstore "consentd/internal/ledger/store"
	"consentd/internal/platform/config"
	"consentd/internal/platform/database"
	"consentd/internal/platform/health"
	"consentd/internal/platform/kafka"
	"consentd/internal/platform/kafka/producer"
	"consentd/internal/platform/logger"
	"consentd/internal/platform/metrics"
	"consentd/internal/platform/redis"
	"consentd/internal/platform/tracer"
	"consentd/internal/rights/gateway"
	httptransport "consentd/internal/transport/http"
	"consentd/pkg/platform/circuit"
)

// main wires the engine to whichever backends are configured and serves the
// HTTP API until SIGINT or SIGTERM.
func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("consentd stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	if cfg.IsProduction() && cfg.UsesDevSigningKey() {
		return errors.New("CONSENTD_JWT_SIGNING_KEY must be set in production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing consentd",
		"addr", cfg.Server.Addr,
		"environment", cfg.Environment,
	)

	checks := health.New(cfg.Environment)
	engineCfg := engine.Config{
		Tracer:      tracer.NewOTel(),
		Metrics:     engine.NewMetrics(),
		Logger:      log,
		AuditBuffer: cfg.AuditBuffer,
	}

	pool, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close() //nolint:errcheck // shutdown path
		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, pool.DB()); err != nil {
				return err
			}
		}
		engineCfg.Stores.Consents = consentstore.NewPostgres(pool.DB())
		engineCfg.Stores.Ledger = ledgerstore.NewPostgres(pool.DB())
		engineCfg.Stores.Assessments = assessmentstore.NewPostgres(pool.DB())
		engineCfg.Stores.Breaches = breachstore.NewPostgres(pool.DB())
		checks.RegisterCheck("postgres", pool.Health)
		log.Info("using postgres for consents, ledger, assessments and breaches")
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck // shutdown path
		engineCfg.Locker = redis.NewLocker(redisClient.Client,
			redis.WithTTL(cfg.Redis.LockTTL),
			redis.WithLogger(log),
		)
		checks.RegisterCheck("redis", redisClient.Health)
		go recordPoolStats(ctx, redisClient)
		log.Info("using redis subject locks")
	}

	notifier, closeNotifier, err := newNotifier(cfg.Kafka, checks, log)
	if err != nil {
		return err
	}
	defer closeNotifier()
	engineCfg.Notifier = notifier
	engineCfg.DataGateway = newGateway(cfg.Gateway, engineCfg.Tracer, log)

	eng := engine.New(engineCfg)
	defer eng.Close()

	if cfg.Catalog.SeedDefault {
		if err := eng.SeedCatalog(ctx); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}
	if cfg.Catalog.File != "" {
		if err := eng.LoadCatalogFile(ctx, cfg.Catalog.File); err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
	}
	checks.RegisterCheck("ledger", func(ctx context.Context) error {
		report, err := eng.VerifyLedger(ctx)
		if err != nil {
			return err
		}
		if !report.Valid {
			return fmt.Errorf("chain broken at %d: %s", report.BrokenAt, report.Reason)
		}
		return nil
	})

	routerCfg := httptransport.RouterConfig{
		Tokens:  jwttoken.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, 0),
		Metrics: metrics.New(),
		Health:  checks,
		Logger:  log,
	}
	if len(cfg.Auth.APIKeys) > 0 {
		keys := jwttoken.NewAPIKeyStore(cfg.Auth.APIKeys)
		routerCfg.APIKeys = keys
		log.Info("service api keys enabled", "count", keys.Len())
	}
	router := httptransport.NewRouter(httptransport.NewHandler(eng, log), routerCfg)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// newNotifier prefers Kafka and falls back to logging notifications.
func newNotifier(cfg config.KafkaConfig, checks *health.Handler, log *slog.Logger) (breachservice.NotificationGateway, func(), error) {
	if cfg.Brokers == "" {
		log.Warn("kafka not configured, breach notifications are only logged")
		return breachnotifier.NewLogNotifier(log), func() {}, nil
	}
	p, err := producer.New(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	hc := kafka.NewHealthChecker(cfg.Brokers)
	checks.RegisterCheck(hc.Name(), hc.Check)
	log.Info("publishing breach notifications to kafka", "topic", cfg.BreachTopic)
	return breachnotifier.NewKafkaNotifier(p, cfg.BreachTopic, log), func() { p.Close(10 * time.Second) }, nil
}

// newGateway builds one breaker-guarded HTTP subsystem per configured entry.
// Without any, a single in-memory subsystem keeps local runs usable.
func newGateway(cfg config.GatewayConfig, t tracer.Tracer, log *slog.Logger) *gateway.Composite {
	var subsystems []gateway.Subsystem
	for _, sc := range cfg.Subsystems {
		breaker := circuit.New(sc.Name, circuit.WithOnTransition(func(tr circuit.Transition) {
			log.Warn("subsystem circuit changed state",
				"subsystem", tr.Name,
				"from", tr.From.String(),
				"to", tr.To.String(),
			)
		}))
		subsystems = append(subsystems, gateway.NewHTTPSubsystem(gateway.HTTPSubsystemConfig{
			Name:    sc.Name,
			BaseURL: sc.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
			Breaker: breaker,
		}))
	}
	if len(subsystems) == 0 {
		log.Warn("no subsystems configured, using in-memory profile store")
		subsystems = append(subsystems, gateway.NewMemorySubsystem("profile"))
	}
	return gateway.NewComposite(subsystems,
		gateway.WithTimeout(cfg.Timeout),
		gateway.WithTracer(t),
		gateway.WithLogger(log),
	)
}

func recordPoolStats(ctx context.Context, c *redis.Client) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RecordPoolStats()
		}
	}
}
