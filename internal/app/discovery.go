package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"grouptrip/internal/adapters/observability"
	"grouptrip/internal/domain"
)

const defaultProviderTimeout = 8 * time.Second

type DiscoveryService struct {
	providers []domain.VendorProvider
	packager  domain.PackageProvider
	cache     domain.Cache
	cacheTTL  time.Duration
	timeout   time.Duration
}

// NewDiscoveryService wires the category providers. packager and cache may be
// nil.
func NewDiscoveryService(providers []domain.VendorProvider, packager domain.PackageProvider, cache domain.Cache, cacheTTL, timeout time.Duration) *DiscoveryService {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &DiscoveryService{providers: providers, packager: packager, cache: cache, cacheTTL: cacheTTL, timeout: timeout}
}

type providerOutcome struct {
	options []domain.CategoryOption
	failure *domain.ProviderError
}

// Discover fans out to every provider in parallel and returns only after all
// of them have answered or timed out. Provider failures degrade to an empty
// category and are recorded in Failures; Discover itself never fails.
func (s *DiscoveryService) Discover(ctx context.Context, req domain.TripRequirements) domain.DiscoveryResult {
	q := domain.QueryFor(req)
	outcomes := make([]providerOutcome, len(s.providers))

	var g errgroup.Group
	for i, p := range s.providers {
		i, p := i, p
		g.Go(func() error {
			opts, err := s.fetch(ctx, p, q)
			if err != nil {
				pe := providerFailure(p.Category(), p.Name(), err)
				observability.ObserveProvider(p.Name(), string(p.Category()), err)
				log.Warn().
					Str("provider", p.Name()).
					Str("category", string(p.Category())).
					Err(err).
					Msg("provider failed; category left empty")
				outcomes[i] = providerOutcome{failure: pe}
				return nil
			}
			observability.ObserveProvider(p.Name(), string(p.Category()), nil)
			outcomes[i] = providerOutcome{options: opts}
			return nil
		})
	}
	_ = g.Wait()

	res := domain.DiscoveryResult{Options: make(map[domain.Category][]domain.CategoryOption, len(domain.Categories))}
	seen := make(map[domain.Category]map[string]struct{}, len(domain.Categories))
	for i, oc := range outcomes {
		if oc.failure != nil {
			res.Failures = append(res.Failures, *oc.failure)
			continue
		}
		c := s.providers[i].Category()
		if seen[c] == nil {
			seen[c] = map[string]struct{}{}
		}
		for _, o := range oc.options {
			if _, dup := seen[c][o.ID]; dup {
				continue
			}
			seen[c][o.ID] = struct{}{}
			res.Options[c] = append(res.Options[c], o)
		}
	}

	if s.packager != nil && !res.Empty() {
		pctx, cancel := context.WithTimeout(ctx, s.timeout)
		provided, err := s.packager.Packages(pctx, q, res.Options)
		cancel()
		if err != nil {
			observability.ObserveProvider(s.packager.Name(), "package", err)
			log.Warn().Str("provider", s.packager.Name()).Err(err).Msg("package provider failed; using computed ranking")
			res.Failures = append(res.Failures, *providerFailure("", s.packager.Name(), err))
		} else {
			observability.ObserveProvider(s.packager.Name(), "package", nil)
			res.Provided = provided
		}
	}
	return res
}

// fetch serves a provider from cache when possible and normalizes fresh
// payloads before caching them.
func (s *DiscoveryService) fetch(ctx context.Context, p domain.VendorProvider, q domain.OfferQuery) ([]domain.CategoryOption, error) {
	key := offersKey(p, q)
	if s.cache != nil {
		var cached []domain.CategoryOption
		ok, err := s.cache.Get(ctx, key, &cached)
		switch {
		case err == nil && ok:
			return cached, nil
		case errors.Is(err, domain.ErrCacheCorrupt):
			if derr := s.cache.Del(ctx, key); derr != nil {
				log.Debug().Err(derr).Str("key", key).Msg("evict corrupt offer cache entry failed")
			}
		case err != nil:
			log.Debug().Err(err).Str("key", key).Msg("offer cache get failed")
		}
	}

	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	raw, err := p.Search(pctx, q)
	if err != nil {
		return nil, err
	}
	opts := mapOptions(p.Category(), p.Name(), raw)

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, key, opts, int(s.cacheTTL.Seconds())); err != nil {
			log.Debug().Err(err).Str("key", key).Msg("offer cache set failed")
		}
	}
	return opts, nil
}

func offersKey(p domain.VendorProvider, q domain.OfferQuery) string {
	return fmt.Sprintf("offers:%s:%s:%s:%s:%s:%d",
		p.Name(), p.Category(), strings.ToLower(q.Destination),
		q.StartDate.Format(time.DateOnly), q.EndDate.Format(time.DateOnly), q.Headcount)
}

func providerFailure(c domain.Category, name string, err error) *domain.ProviderError {
	reason := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	return &domain.ProviderError{Category: c, Provider: name, Reason: reason, Err: err}
}
