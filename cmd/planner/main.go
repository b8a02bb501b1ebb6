// Command planner plans a batch of group trips offline: each request in the
// input file is analyzed, discovered and ranked, and the best package is
// logged.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"grouptrip/internal/adapters/observability"
	"grouptrip/internal/adapters/payment"
	redisad "grouptrip/internal/adapters/redis"
	"grouptrip/internal/adapters/vendor"
	"grouptrip/internal/app"
	"grouptrip/internal/domain"
	"grouptrip/internal/shared"
	"grouptrip/internal/storage/memory"
)

type tripRequest struct {
	app.AnalyzeInput
	Weights *domain.Weights `json:"weights,omitempty"`
}

func main() {
	in := flag.String("in", "trips.json", "JSON array of trip requests")
	flag.Parse()

	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	raw, err := os.ReadFile(*in)
	if err != nil {
		log.Fatal().Err(err).Str("file", *in).Msg("read input failed")
	}
	var trips []tripRequest
	if err := json.Unmarshal(raw, &trips); err != nil {
		log.Fatal().Err(err).Str("file", *in).Msg("decode input failed")
	}

	log.Info().
		Str("base", cfg.VendorBase).
		Int("workers", cfg.Workers).
		Int("trips", len(trips)).
		Msg("planner starting")

	client, err := vendor.New(cfg.VendorBase, cfg.VendorKey, cfg.VendorRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize vendor client")
	}
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		cache = rc
	}
	planner := app.NewPlannerService(app.PlannerDeps{
		Discovery: app.NewDiscoveryService(vendor.Providers(client), nil, cache, cfg.CacheTTL, cfg.ProviderTimeout),
		Sessions:  memory.NewSessionStore(cfg.SessionTTL),
		Bookings:  memory.NewBookingRepo(),
		Payments:  payment.NewMock(),
		Pricing:   domain.PricingConfig{TaxRate: cfg.TaxRate, FeeRate: cfg.FeeRate},
		Rank:      app.RankOptions{TopN: cfg.TopN, Limit: 1},
	})

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for i, tr := range trips {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(i int, tr tripRequest) {
			defer wg.Done()
			defer sem.Release(1)

			if err := plan(ctx, planner, tr); err != nil {
				log.Warn().Int("trip", i).Err(err).Msg("plan failed")
			}
		}(i, tr)
	}

	wg.Wait()
	log.Info().Msg("planning completed")
}

func plan(ctx context.Context, p *app.PlannerService, tr tripRequest) error {
	sess, err := p.Analyze(ctx, tr.AnalyzeInput)
	if err != nil {
		return err
	}
	defer func() { _ = p.Abandon(ctx, sess.ID) }()

	res, err := p.Discover(ctx, sess.ID)
	if err != nil {
		return err
	}
	w := domain.DefaultWeights()
	if tr.Weights != nil {
		if w, err = app.NormalizeWeights(*tr.Weights); err != nil {
			return err
		}
	}
	pkgs, err := p.Rank(ctx, sess.ID, w)
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		log.Warn().
			Str("destination", sess.Requirements.Destination).
			Int("failures", len(res.Failures)).
			Msg("no options discovered")
		return nil
	}
	cart, err := p.BuildCart(ctx, sess.ID, pkgs[0].ID)
	if err != nil {
		return err
	}
	log.Info().
		Str("destination", sess.Requirements.Destination).
		Int("headcount", sess.Requirements.Headcount).
		Str("package", pkgs[0].ID).
		Float64("score", pkgs[0].Score).
		Int64("total_cents", cart.Total).
		Str("why", pkgs[0].Explanation).
		Msg("top package")
	return nil
}
