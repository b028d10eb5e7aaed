package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"order-lookup/internal/core/config"
	"order-lookup/internal/core/logger"
	"order-lookup/internal/features/lookup/domain"
	"order-lookup/internal/features/lookup/ports"

	"go.uber.org/zap"
)

// ErrEmptyQuery is returned when the query is empty or whitespace-only.
var ErrEmptyQuery = errors.New("query must not be empty")

// ErrOrderNotFound is returned when every tier abstains.
var ErrOrderNotFound = errors.New("order not found")

// trackingMinLength is the minimum raw length for the tracking tiers to run;
// shorter inputs stay in the order-number path.
const trackingMinLength = 5

// resolutionTier is one strategy in the ordered fallback chain. A tier whose
// attempt returns a nil order abstains and control passes to the next tier.
type resolutionTier struct {
	// tier tags the resolution result for observability.
	tier domain.Tier
	// applies decides whether this tier should run for the query.
	applies func(domain.Query) bool
	// attempt runs the tier's lookup strategy.
	attempt func(context.Context, domain.Query) (*domain.Order, error)
}

// LookupService resolves a free-text customer query into at most one order
// by running an ordered chain of lookup strategies against the store.
// Tiers execute strictly in sequence; the first match wins and tracking
// matches are only accepted after validation against the searched code.
type LookupService struct {
	store          ports.OrderStore
	tiers          []resolutionTier
	scanMaxPages   int
	scanPageSize   int
	scanPageDelay  time.Duration
	resolveTimeout time.Duration
}

// NewLookupService creates a new LookupService backed by the given store.
func NewLookupService(store ports.OrderStore, cfg config.ResolverConfig) *LookupService {
	s := &LookupService{
		store:          store,
		scanMaxPages:   cfg.ScanMaxPages,
		scanPageSize:   cfg.ScanPageSize,
		scanPageDelay:  time.Duration(cfg.ScanPageDelayMS) * time.Millisecond,
		resolveTimeout: time.Duration(cfg.ResolveTimeoutSeconds) * time.Second,
	}

	s.tiers = []resolutionTier{
		{
			tier:    domain.TierEmail,
			applies: func(q domain.Query) bool { return q.Class == domain.ClassEmail },
			attempt: s.attemptEmail,
		},
		{
			tier:    domain.TierTaxID,
			applies: func(q domain.Query) bool { return q.Class == domain.ClassTaxID },
			attempt: s.attemptTaxID,
		},
		{
			tier:    domain.TierOrderNumber,
			applies: appliesOrderNumber,
			attempt: s.attemptOrderNumber,
		},
		{
			tier:    domain.TierTrackingSearch,
			applies: appliesTracking,
			attempt: s.attemptTrackingSearch,
		},
		{
			tier:    domain.TierTrackingScan,
			applies: appliesTracking,
			attempt: s.attemptTrackingScan,
		},
	}

	return s
}

// Resolve classifies the raw query and runs the tier chain, returning the
// first match together with the tier that produced it. Every tier
// abstaining yields ErrOrderNotFound. Rate-limit exhaustion in the store
// aborts the resolution and propagates.
func (s *LookupService) Resolve(ctx context.Context, raw string) (*domain.Resolution, error) {
	query := domain.NewQuery(raw)
	if query.Class == domain.ClassUnknown {
		return nil, ErrEmptyQuery
	}

	if s.resolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.resolveTimeout)
		defer cancel()
	}

	for _, t := range s.tiers {
		if !t.applies(query) {
			continue
		}

		order, err := t.attempt(ctx, query)
		if err != nil {
			return nil, err
		}
		if order == nil {
			continue
		}

		logger.Get().Info("Query resolved",
			zap.String("class", string(query.Class)),
			zap.String("tier", string(t.tier)),
			zap.String("order_name", order.Name),
		)
		return &domain.Resolution{Order: order, Tier: t.tier}, nil
	}

	return nil, ErrOrderNotFound
}

// attemptEmail runs the exact email filter. The store's own filter performs
// the match, so the first result is authoritative.
func (s *LookupService) attemptEmail(ctx context.Context, q domain.Query) (*domain.Order, error) {
	orders, err := s.store.FilteredFetch(ctx, map[string]string{
		"email":  q.Raw,
		"status": "any",
		"limit":  "1",
	})
	if err != nil {
		return nil, err
	}
	return first(orders), nil
}

// attemptTaxID finds the owning customer via the fuzzy customer search,
// then fetches that customer's most recent order.
func (s *LookupService) attemptTaxID(ctx context.Context, q domain.Query) (*domain.Order, error) {
	customers, err := s.store.CustomerSearch(ctx, q.DigitsOnly)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, nil
	}

	orders, err := s.store.FilteredFetch(ctx, map[string]string{
		"customer_id": strconv.FormatInt(customers[0].ID, 10),
		"status":      "any",
		"limit":       "1",
	})
	if err != nil {
		return nil, err
	}
	return first(orders), nil
}

// appliesOrderNumber matches the order-number class, and doubles as a
// fallback for any short numeric query once earlier tiers abstain.
func appliesOrderNumber(q domain.Query) bool {
	if q.Class == domain.ClassOrderNumber {
		return true
	}
	return q.DigitsOnly != "" && len(q.DigitsOnly) <= 5
}

// attemptOrderNumber runs the exact order-name filter. The canonical name
// keeps a "#"-prefixed query as typed and prefixes "#" to bare digits.
func (s *LookupService) attemptOrderNumber(ctx context.Context, q domain.Query) (*domain.Order, error) {
	name := q.Raw
	if !strings.HasPrefix(name, "#") {
		name = "#" + q.DigitsOnly
	}

	orders, err := s.store.FilteredFetch(ctx, map[string]string{
		"name":   name,
		"status": "any",
		"limit":  "1",
	})
	if err != nil {
		return nil, err
	}
	return first(orders), nil
}

// appliesTracking gates both tracking tiers on a minimum query length.
func appliesTracking(q domain.Query) bool {
	return len(q.Raw) > trackingMinLength
}

// attemptTrackingSearch asks the store's tracking index for candidate ids
// and validates each candidate against the searched code. The index may be
// stale or fuzzy, so a candidate is never returned without proof that it
// actually carries the code.
func (s *LookupService) attemptTrackingSearch(ctx context.Context, q domain.Query) (*domain.Order, error) {
	ids, err := s.store.TrackingCandidates(ctx, q.Raw, true)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		order, err := s.store.FetchByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if order == nil {
			continue
		}
		if order.HasTracking(q.Raw) {
			return order, nil
		}
		logger.Get().Debug("Tracking candidate rejected by validation",
			zap.Int64("order_id", id),
			zap.String("searched", q.Raw),
		)
	}

	return nil, nil
}

// attemptTrackingScan is the last-resort paginated walk over recent orders.
func (s *LookupService) attemptTrackingScan(ctx context.Context, q domain.Query) (*domain.Order, error) {
	return s.scan(ctx, q.Raw)
}

// first returns a pointer to the first order in the slice, or nil.
func first(orders []domain.Order) *domain.Order {
	if len(orders) == 0 {
		return nil
	}
	return &orders[0]
}
