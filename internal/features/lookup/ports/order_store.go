package ports

import (
	"context"
	"errors"

	"order-lookup/internal/features/lookup/domain"
)

// ErrRateLimited is returned when the store keeps signalling "too many
// requests" past the configured retry budget.
var ErrRateLimited = errors.New("store rate limit retry budget exhausted")

// OrderStore defines the interface for the external e-commerce store's
// read-only query surface. This is a Secondary Port (Driven Port).
//
// Implementations absorb transport and decode failures locally, returning
// empty results instead of errors, so that an unreachable store degrades to
// "not found". The one exception is rate-limit exhaustion, surfaced as a
// distinct error by the adapter.
type OrderStore interface {
	// FilteredFetch retrieves orders matching the given query parameters
	// (e.g. name, email, customer_id, status, limit). Returns an empty
	// slice when nothing matches, never nil on success.
	FilteredFetch(ctx context.Context, filters map[string]string) ([]domain.Order, error)

	// FetchByID retrieves a single order by its store id, or nil if absent.
	FetchByID(ctx context.Context, id int64) (*domain.Order, error)

	// TrackingCandidates asks the store's search index for order ids whose
	// tracking field matches term (exact=true) or that match term as free
	// text (exact=false). Returns at most a small fixed number of ids.
	TrackingCandidates(ctx context.Context, term string, exact bool) ([]int64, error)

	// CustomerSearch runs the store's fuzzy customer search, limited to one
	// result.
	CustomerSearch(ctx context.Context, term string) ([]domain.Customer, error)

	// Page fetches one page of the order listing. cursor is the opaque
	// next-page token from a previous call, or "" for the first page. The
	// returned cursor is "" when no further pages exist.
	Page(ctx context.Context, cursor string, pageSize int) ([]domain.Order, string, error)
}
