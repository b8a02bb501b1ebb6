package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"grouptrip/internal/adapters/gemini"
	server "grouptrip/internal/adapters/http_server"
	"grouptrip/internal/adapters/observability"
	"grouptrip/internal/adapters/payment"
	redisad "grouptrip/internal/adapters/redis"
	"grouptrip/internal/adapters/vendor"
	"grouptrip/internal/app"
	"grouptrip/internal/domain"
	"grouptrip/internal/shared"
	"grouptrip/internal/storage/memory"
	mysqlrepo "grouptrip/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	planner, cleanup := wire(ctx, cfg)
	defer cleanup()

	// http
	srv := server.New(server.WithRequestTimeout(cfg.RequestTimeout))
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{P: planner})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}

// wire builds the planner from config. Optional backends (MySQL, Redis,
// Gemini, external ranker) are skipped when not configured.
func wire(ctx context.Context, cfg shared.Config) (*app.PlannerService, func()) {
	var closers []func()

	var bookings domain.BookingRepository = memory.NewBookingRepo()
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		bookings = mysqlrepo.New(db)
		closers = append(closers, func() { _ = db.Close() })
	} else {
		log.Warn().Msg("MYSQL_DSN not set; bookings kept in memory")
	}

	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unreachable; offer cache disabled")
			_ = rc.Close()
		} else {
			cache = rc
			closers = append(closers, func() { _ = rc.Close() })
		}
	}

	client, err := vendor.New(cfg.VendorBase, cfg.VendorKey, cfg.VendorRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize vendor client")
	}
	var packager domain.PackageProvider
	if cfg.RankerURL != "" {
		rc, err := vendor.New(cfg.RankerURL, cfg.VendorKey, cfg.VendorRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize package ranker client")
		}
		packager = vendor.NewRanker(rc)
	}

	var extractor domain.RequirementExtractor = app.TextExtractor{}
	if cfg.GeminiKey != "" {
		gx, err := gemini.New(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("gemini unavailable; using pattern extraction")
		} else {
			extractor = app.FallbackExtractor{Primary: gx, Secondary: app.TextExtractor{}}
			closers = append(closers, func() { _ = gx.Close() })
		}
	}

	planner := app.NewPlannerService(app.PlannerDeps{
		Analyzer:  app.NewAnalyzer(extractor),
		Discovery: app.NewDiscoveryService(vendor.Providers(client), packager, cache, cfg.CacheTTL, cfg.ProviderTimeout),
		Sessions:  memory.NewSessionStore(cfg.SessionTTL),
		Bookings:  bookings,
		Payments:  payment.NewMock(),
		Pricing:   domain.PricingConfig{TaxRate: cfg.TaxRate, FeeRate: cfg.FeeRate},
		Rank:      app.RankOptions{TopN: cfg.TopN},
	})
	return planner, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}
