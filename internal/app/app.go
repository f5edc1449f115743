package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/larek-storefront/internal/catalog"
	"github.com/xenking/larek-storefront/internal/domain/order"
	"github.com/xenking/larek-storefront/internal/handler"
	"github.com/xenking/larek-storefront/internal/journal"
	"github.com/xenking/larek-storefront/internal/larekapi"
	"github.com/xenking/larek-storefront/internal/session"
	"github.com/xenking/larek-storefront/internal/storage/postgres"
	"github.com/xenking/larek-storefront/internal/workflow"
	"github.com/xenking/larek-storefront/pkg/health"
	"github.com/xenking/larek-storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("api_url", cfg.APIURL),
	)

	client := larekapi.New(cfg.APIURL, cfg.CDNURL,
		larekapi.WithLogger(lg.Named("larekapi")),
		larekapi.WithTracerProvider(m.TracerProvider()),
		larekapi.WithMeterProvider(m.MeterProvider()),
	)

	var source catalog.Source = client
	if cfg.CatalogFile != "" {
		source = catalog.FileSource{Path: cfg.CatalogFile, ImageBaseURL: cfg.CDNURL}
	}

	sess, err := session.New(ctx, client, session.Options{
		Logger:         lg.Named("session"),
		Validator:      order.NewRuleValidator(),
		MaxEmitDepth:   cfg.Session.MaxEmitDepth,
		SubmitTimeout:  cfg.Session.SubmitTimeout,
		MeterProvider:  m.MeterProvider(),
		TracerProvider: m.TracerProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create session")
	}
	defer sess.Close()

	// Health check service.
	healthSvc := health.New()
	healthSvc.Add(health.Readiness, "catalog", time.Second, health.FlagCheck("catalog", sess.Loaded))
	healthSvc.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))

	g, gctx := errgroup.WithContext(ctx)

	// Optional order journal.
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		healthSvc.Add(health.Readiness, "postgres", 5*time.Second, func(ctx context.Context) error {
			return pool.Ping(ctx)
		})

		recorder := journal.NewRecorder(postgres.NewOrderJournal(pool), cfg.Session.JournalQueue, lg.Named("journal"))
		sess.Subscribe(workflow.EventOrderPlaced, func(v any) {
			if p, ok := v.(workflow.Placement); ok {
				recorder.OnPlaced(p)
			}
		})
		g.Go(func() error {
			return recorder.Run(gctx)
		})
		lg.Info("Order journal enabled")
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	g.Go(func() error {
		return loadCatalog(gctx, lg, sess, source, cfg.Session.CatalogRetry)
	})

	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	})
	g.Go(func() error {
		return limiter.Run(gctx)
	})

	h := handler.New(handler.Config{
		MaxBodySize: cfg.Session.MaxBodySize,
		Limiter:     limiter,
	}, sess)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.Handler(health.Liveness))
	mux.HandleFunc("GET /readyz", healthSvc.Handler(health.Readiness))
	h.Mount(mux)

	// Hijacked websocket connections are not tracked by Shutdown, so their
	// request contexts are canceled from RegisterOnShutdown.
	baseCtx, cancelBase := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelBase()

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Session.SubmitTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		Handler: otelhttp.NewHandler(
			httpmiddleware.Wrap(mux,
				httpmiddleware.Recovery(),
				httpmiddleware.CORS(httpmiddleware.CORSConfig{
					AllowOrigins:     cfg.CORS.Origins,
					AllowHeaders:     []string{"Content-Type", httpmiddleware.HeaderRequestID},
					ExposeHeaders:    []string{httpmiddleware.HeaderRequestID, handler.HeaderScreenVersion},
					AllowCredentials: cfg.CORS.AllowCredentials,
					MaxAge:           86400,
				}),
				httpmiddleware.RequestID(),
				httpmiddleware.InjectLogger(zctx.From(ctx)),
				httpmiddleware.LogRequests(),
			),
			"storefront",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}
	server.RegisterOnShutdown(cancelBase)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		if ctx.Err() != nil {
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})

	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}

// loadCatalog retries src until the catalog is loaded or ctx is done.
func loadCatalog(ctx context.Context, lg *zap.Logger, sess *session.Session, src catalog.Source, retry time.Duration) error {
	for {
		err := sess.LoadCatalog(ctx, src)
		if err == nil {
			return nil
		}
		lg.Warn("Catalog load failed", zap.Error(err), zap.Duration("retry", retry))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retry):
		}
	}
}
