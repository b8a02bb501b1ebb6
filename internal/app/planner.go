package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"grouptrip/internal/adapters/observability"
	"grouptrip/internal/domain"
)

type PlannerDeps struct {
	Analyzer  *Analyzer
	Discovery *DiscoveryService
	Sessions  domain.SessionStore
	Bookings  domain.BookingRepository
	Payments  domain.PaymentProcessor
	Pricing   domain.PricingConfig
	Rank      RankOptions
	Now       func() time.Time
}

// PlannerService runs the per-session flow: analyze, discover, rank, build
// and edit the cart, check out. Operations on one session are serialized by a
// per-session mutex; discovery releases it while providers are called.
type PlannerService struct {
	analyzer  *Analyzer
	discovery *DiscoveryService
	sessions  domain.SessionStore
	bookings  domain.BookingRepository
	payments  domain.PaymentProcessor
	pricing   domain.PricingConfig
	rankOpts  RankOptions
	now       func() time.Time

	locks sessionLocks
}

func NewPlannerService(d PlannerDeps) *PlannerService {
	if d.Analyzer == nil {
		d.Analyzer = NewAnalyzer(nil)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &PlannerService{
		analyzer:  d.Analyzer,
		discovery: d.Discovery,
		sessions:  d.Sessions,
		bookings:  d.Bookings,
		payments:  d.Payments,
		pricing:   d.Pricing,
		rankOpts:  d.Rank,
		now:       d.Now,
	}
}

func (s *PlannerService) lock(id string) func() { return s.locks.acquire(id) }

// sessionLocks hands out one mutex per session id. An entry lives only while
// someone holds or waits for it, so unknown and expired ids leave nothing
// behind.
type sessionLocks struct {
	mu sync.Mutex
	m  map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (l *sessionLocks) acquire(id string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sessionLock)
	}
	sl := l.m[id]
	if sl == nil {
		sl = &sessionLock{}
		l.m[id] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		if sl.refs--; sl.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// Analyze opens a session. Re-analysis against PreviousSessionID returns that
// session when requirements are unchanged and discards it otherwise.
func (s *PlannerService) Analyze(ctx context.Context, in AnalyzeInput) (*domain.Session, error) {
	req, err := s.analyzer.Analyze(ctx, in)
	if err != nil {
		return nil, err
	}

	if prev := strings.TrimSpace(in.PreviousSessionID); prev != "" {
		unlock := s.lock(prev)
		old, err := s.sessions.Get(ctx, prev)
		switch {
		case err == nil && old.Requirements.Equal(req):
			unlock()
			log.Info().Str("session", prev).Msg("requirements unchanged; reusing session")
			return cloneSession(old), nil
		case err == nil:
			if err := s.discard(ctx, prev); err != nil {
				unlock()
				return nil, err
			}
			log.Info().Str("session", prev).Msg("requirements changed; previous session discarded")
		case !errors.Is(err, domain.ErrSessionNotFound):
			unlock()
			return nil, err
		}
		unlock()
	}

	sess := &domain.Session{
		ID:           uuid.NewString(),
		Requirements: req,
		Status:       domain.StatusAnalyzed,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	log.Info().
		Str("session", sess.ID).
		Str("destination", req.Destination).
		Int("headcount", req.Headcount).
		Msg("session opened")
	return cloneSession(sess), nil
}

// Discover populates the session's discovery result. Ranking against the
// session fails with NotReadyError until every provider call has returned.
func (s *PlannerService) Discover(ctx context.Context, sessionID string) (domain.DiscoveryResult, error) {
	unlock := s.lock(sessionID)
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		unlock()
		return domain.DiscoveryResult{}, err
	}
	if sess.Status == domain.StatusDiscovering {
		unlock()
		return domain.DiscoveryResult{}, &domain.NotReadyError{SessionID: sessionID, Status: sess.Status}
	}
	prevStatus := sess.Status
	sess.Status = domain.StatusDiscovering
	if err := s.sessions.Save(ctx, sess); err != nil {
		unlock()
		return domain.DiscoveryResult{}, err
	}
	req := sess.Requirements
	unlock()

	start := s.now()
	res := s.discovery.Discover(ctx, req)

	unlock = s.lock(sessionID)
	defer unlock()
	sess, err = s.sessions.Get(ctx, sessionID)
	if err != nil {
		// abandoned while providers were running
		return domain.DiscoveryResult{}, err
	}
	if ctx.Err() != nil {
		sess.Status = prevStatus
		_ = s.sessions.Save(context.WithoutCancel(ctx), sess)
		return domain.DiscoveryResult{}, ctx.Err()
	}
	sess.Discovery = &res
	sess.Status = domain.StatusReady
	if err := s.sessions.Save(ctx, sess); err != nil {
		return domain.DiscoveryResult{}, err
	}

	took := s.now().Sub(start)
	observability.ObserveDiscovery(took)
	ev := log.Info()
	for _, c := range domain.Categories {
		ev = ev.Int(string(c), len(res.Options[c]))
	}
	ev.Str("session", sessionID).
		Int("failures", len(res.Failures)).
		Dur("took", took).
		Msg("discovery completed")
	return res, nil
}

// Rank orders packages for the session's discovery result. The result is a
// pure function of that result and w.
func (s *PlannerService) Rank(ctx context.Context, sessionID string, w domain.Weights) ([]domain.Package, error) {
	res, err := s.readyDiscovery(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	pkgs := Rank(res, w, s.rankOpts)
	observability.ObserveRanking(len(pkgs))
	return pkgs, nil
}

func (s *PlannerService) readyDiscovery(ctx context.Context, sessionID string) (domain.DiscoveryResult, error) {
	unlock := s.lock(sessionID)
	defer unlock()
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.DiscoveryResult{}, err
	}
	if sess.Status != domain.StatusReady || sess.Discovery == nil {
		return domain.DiscoveryResult{}, &domain.NotReadyError{SessionID: sessionID, Status: sess.Status}
	}
	// Options are never mutated after discovery, so the result can be read
	// outside the lock.
	return *sess.Discovery, nil
}

// BuildCart resolves packageID against the session's discovery result and
// replaces any active cart with a freshly priced one.
func (s *PlannerService) BuildCart(ctx context.Context, sessionID, packageID string) (domain.Cart, error) {
	ids, err := domain.ParsePackageID(packageID)
	if err != nil {
		return domain.Cart{}, err
	}

	unlock := s.lock(sessionID)
	defer unlock()
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	if sess.Status != domain.StatusReady || sess.Discovery == nil {
		return domain.Cart{}, &domain.NotReadyError{SessionID: sessionID, Status: sess.Status}
	}

	pkg := domain.Package{ID: domain.PackageID(ids), Options: make(map[domain.Category]domain.CategoryOption, len(ids))}
	for c, id := range ids {
		o, ok := sess.Discovery.Find(c, id)
		if !ok {
			return domain.Cart{}, fmt.Errorf("%w: %s option %q", domain.ErrPackageNotFound, c, id)
		}
		pkg.Options[c] = o
	}

	cart, err := BuildCart(sess.Requirements, pkg, s.pricing, s.now().UTC())
	if err != nil {
		return domain.Cart{}, err
	}
	sess.Cart = &cart
	if err := s.sessions.Save(ctx, sess); err != nil {
		return domain.Cart{}, err
	}
	log.Info().Str("session", sessionID).Str("package", pkg.ID).Int64("total", cart.Total).Msg("cart built")
	return cart.Clone(), nil
}

// ModifyCart applies one edit. The edit is applied to a copy which replaces
// the session cart only on success.
func (s *PlannerService) ModifyCart(ctx context.Context, sessionID string, e CartEdit) (domain.Cart, error) {
	unlock := s.lock(sessionID)
	defer unlock()
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	if sess.Cart == nil {
		return domain.Cart{}, &domain.UnknownCategoryError{Category: e.Category}
	}
	next := sess.Cart.Clone()
	if err := ApplyEdit(&next, e, s.pricing, s.now().UTC()); err != nil {
		return domain.Cart{}, err
	}
	sess.Cart = &next
	if err := s.sessions.Save(ctx, sess); err != nil {
		return domain.Cart{}, err
	}
	return next.Clone(), nil
}

func (s *PlannerService) GetCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	unlock := s.lock(sessionID)
	defer unlock()
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	if sess.Cart == nil {
		return domain.Cart{}, fmt.Errorf("cart %w", domain.ErrNotFound)
	}
	return sess.Cart.Clone(), nil
}

// Checkout charges the mocked payment processor and persists a booking with
// a verbatim snapshot of the cart. The session is discarded afterwards.
func (s *PlannerService) Checkout(ctx context.Context, sessionID string, contact domain.ContactInfo, pay domain.PaymentInfo) (domain.Booking, error) {
	unlock := s.lock(sessionID)
	defer unlock()
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Booking{}, err
	}
	if sess.Cart == nil || sess.Cart.Empty() {
		return domain.Booking{}, &domain.EmptyCartError{SessionID: sessionID}
	}
	if err := s.analyzer.validate.Struct(contact); err != nil {
		return domain.Booking{}, contactError(err)
	}

	snapshot, err := json.Marshal(sess.Cart)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("snapshot cart: %w", err)
	}
	ref, err := s.payments.Charge(ctx, sess.Cart.Total, sess.Cart.Currency, pay)
	if err != nil {
		observability.ObserveCheckout("payment_failed")
		return domain.Booking{}, fmt.Errorf("payment: %w", err)
	}

	id := uuid.New()
	b := domain.Booking{
		ID:               id.String(),
		SessionID:        sessionID,
		ConfirmationCode: strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8]),
		Contact:          contact,
		Requirements:     sess.Requirements,
		CartSnapshot:     snapshot,
		Total:            sess.Cart.Total,
		PaymentRef:       ref,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.bookings.SaveBooking(ctx, b); err != nil {
		observability.ObserveCheckout("persist_failed")
		log.Error().Err(err).Str("session", sessionID).Str("payment_ref", ref).Msg("booking not stored after successful charge")
		return domain.Booking{}, fmt.Errorf("save booking: %w", err)
	}
	observability.ObserveCheckout("booked")
	if err := s.discard(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("discard after checkout failed")
	}
	log.Info().
		Str("session", sessionID).
		Str("booking", b.ID).
		Str("confirmation", b.ConfirmationCode).
		Int64("total", b.Total).
		Msg("checkout completed")
	return b, nil
}

func (s *PlannerService) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	return s.bookings.GetBooking(ctx, id)
}

// Abandon discards a session together with its discovery result and cart.
func (s *PlannerService) Abandon(ctx context.Context, sessionID string) error {
	unlock := s.lock(sessionID)
	defer unlock()
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return err
	}
	return s.discard(ctx, sessionID)
}

// discard must be called with the session lock held.
func (s *PlannerService) discard(ctx context.Context, sessionID string) error {
	if sess, err := s.sessions.Get(ctx, sessionID); err == nil {
		sess.Discovery = nil
		sess.Cart = nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

func contactError(err error) error {
	out := &domain.ValidationError{}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		for _, fe := range ves {
			out.Fields = append(out.Fields, domain.FieldError{Field: "contact." + fe.Field(), Reason: describe(fe)})
		}
		return out
	}
	out.Fields = []domain.FieldError{{Field: "contact", Reason: err.Error()}}
	return out
}

func cloneSession(s *domain.Session) *domain.Session {
	out := *s
	if s.Cart != nil {
		c := s.Cart.Clone()
		out.Cart = &c
	}
	return &out
}
