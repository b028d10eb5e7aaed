package service

import (
	"context"
	"fmt"
	"testing"

	"order-lookup/internal/core/config"
	"order-lookup/internal/features/lookup/domain"
	"order-lookup/internal/features/lookup/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockOrderStore is a mock implementation of OrderStore for testing.
// Unset function fields behave like an empty store.
type mockOrderStore struct {
	filteredFn   func(filters map[string]string) ([]domain.Order, error)
	fetchByIDFn  func(id int64) (*domain.Order, error)
	candidatesFn func(term string, exact bool) ([]int64, error)
	customerFn   func(term string) ([]domain.Customer, error)
	pageFn       func(cursor string, pageSize int) ([]domain.Order, string, error)

	filteredCalls  []map[string]string
	candidateCalls int
	customerCalls  int
	fetchByIDCalls []int64
	pageCalls      int
}

// FilteredFetch implements OrderStore.
func (m *mockOrderStore) FilteredFetch(_ context.Context, filters map[string]string) ([]domain.Order, error) {
	m.filteredCalls = append(m.filteredCalls, filters)
	if m.filteredFn == nil {
		return []domain.Order{}, nil
	}
	return m.filteredFn(filters)
}

// FetchByID implements OrderStore.
func (m *mockOrderStore) FetchByID(_ context.Context, id int64) (*domain.Order, error) {
	m.fetchByIDCalls = append(m.fetchByIDCalls, id)
	if m.fetchByIDFn == nil {
		return nil, nil
	}
	return m.fetchByIDFn(id)
}

// TrackingCandidates implements OrderStore.
func (m *mockOrderStore) TrackingCandidates(_ context.Context, term string, exact bool) ([]int64, error) {
	m.candidateCalls++
	if m.candidatesFn == nil {
		return []int64{}, nil
	}
	return m.candidatesFn(term, exact)
}

// CustomerSearch implements OrderStore.
func (m *mockOrderStore) CustomerSearch(_ context.Context, term string) ([]domain.Customer, error) {
	m.customerCalls++
	if m.customerFn == nil {
		return []domain.Customer{}, nil
	}
	return m.customerFn(term)
}

// Page implements OrderStore.
func (m *mockOrderStore) Page(_ context.Context, cursor string, pageSize int) ([]domain.Order, string, error) {
	m.pageCalls++
	if m.pageFn == nil {
		return []domain.Order{}, "", nil
	}
	return m.pageFn(cursor, pageSize)
}

// testResolverConfig returns resolver settings tuned for fast tests.
func testResolverConfig() config.ResolverConfig {
	return config.ResolverConfig{
		ScanMaxPages:          3,
		ScanPageSize:          2,
		ScanPageDelayMS:       1,
		ResolveTimeoutSeconds: 5,
	}
}

// TestLookupService_Resolve_EmailTier verifies that an email query resolves
// via the email filter and no other strategy executes.
func TestLookupService_Resolve_EmailTier(t *testing.T) {
	expected := domain.Order{ID: 10, Name: "#1001", Email: "cliente@example.com"}

	store := &mockOrderStore{
		filteredFn: func(filters map[string]string) ([]domain.Order, error) {
			if filters["email"] == "cliente@example.com" {
				return []domain.Order{expected}, nil
			}
			return []domain.Order{}, nil
		},
	}

	svc := NewLookupService(store, testResolverConfig())

	res, err := svc.Resolve(context.Background(), "cliente@example.com")

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, domain.TierEmail, res.Tier)
	assert.Equal(t, expected.ID, res.Order.ID)

	require.Len(t, store.filteredCalls, 1)
	assert.Equal(t, "any", store.filteredCalls[0]["status"])
	assert.Equal(t, "1", store.filteredCalls[0]["limit"])
	assert.Zero(t, store.candidateCalls)
	assert.Zero(t, store.customerCalls)
	assert.Zero(t, store.pageCalls)
}

// TestLookupService_Resolve_OrderNumberTier verifies that a short numeric
// query resolves via the canonical "#"-prefixed order name.
func TestLookupService_Resolve_OrderNumberTier(t *testing.T) {
	expected := domain.Order{ID: 20, Name: "#1024"}

	store := &mockOrderStore{
		filteredFn: func(filters map[string]string) ([]domain.Order, error) {
			if filters["name"] == "#1024" {
				return []domain.Order{expected}, nil
			}
			return []domain.Order{}, nil
		},
	}

	svc := NewLookupService(store, testResolverConfig())

	res, err := svc.Resolve(context.Background(), "1024")

	require.NoError(t, err)
	assert.Equal(t, domain.TierOrderNumber, res.Tier)
	assert.Equal(t, "#1024", res.Order.Name)
}

// TestLookupService_Resolve_OrderNumberTier_HashPrefixKept verifies that a
// "#"-prefixed query is searched as typed.
func TestLookupService_Resolve_OrderNumberTier_HashPrefixKept(t *testing.T) {
	store := &mockOrderStore{
		filteredFn: func(filters map[string]string) ([]domain.Order, error) {
			if filters["name"] == "#1024" {
				return []domain.Order{{ID: 20, Name: "#1024"}}, nil
			}
			return []domain.Order{}, nil
		},
	}

	svc := NewLookupService(store, testResolverConfig())

	res, err := svc.Resolve(context.Background(), "#1024")

	require.NoError(t, err)
	assert.Equal(t, domain.TierOrderNumber, res.Tier)
}

// TestLookupService_Resolve_TaxIDTier verifies the customer-search path:
// an 11-digit query finds the customer, then their most recent order.
func TestLookupService_Resolve_TaxIDTier(t *testing.T) {
	expected := domain.Order{ID: 30, Name: "#2048"}

	store := &mockOrderStore{
		customerFn: func(term string) ([]domain.Customer, error) {
			if term == "12345678901" {
				return []domain.Customer{{ID: 77, Email: "cliente@example.com"}}, nil
			}
			return []domain.Customer{}, nil
		},
		filteredFn: func(filters map[string]string) ([]domain.Order, error) {
			if filters["customer_id"] == "77" {
				return []domain.Order{expected}, nil
			}
			return []domain.Order{}, nil
		},
	}

	svc := NewLookupService(store, testResolverConfig())

	res, err := svc.Resolve(context.Background(), "123.456.789-01")

	require.NoError(t, err)
	assert.Equal(t, domain.TierTaxID, res.Tier)
	assert.Equal(t, expected.ID, res.Order.ID)
	assert.Equal(t, 1, store.customerCalls)
}

// TestLookupService_Resolve_TaxIDTier_NoCustomer verifies the tax-id tier
// abstains cleanly when no customer matches.
func TestLookupService_Resolve_TaxIDTier_NoCustomer(t *testing.T) {
	store := &mockOrderStore{}

	svc := NewLookupService(store, testResolverConfig())

	res, err := svc.Resolve(context.Background(), "12345678901")

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

// TestLookupService_Resolve_TrackingSearch_Validated verifies that a
// candidate from the tracking index is returned once validation proves it
// carries the searched code.
func TestLookupService_Resolve_TrackingSearch_Validated(t *testing.T) {
	match := domain.Order{
		ID:   40,
		Name: "#3001",
		Fulfillments: []domain.Fulfillment{
			{TrackingNumber: "BR123456789XX"},
		},
	}

	store := &mockOrderStore{
		candidatesFn: func(term string, exact bool) ([]int64, error) {
			assert.True(t, exact)
			return []int64{40}, nil
		},
		fetchByIDFn: func(id int64) (*domain.Order, error) {
			if id == 40 {
				return &match, nil
			}
			return nil, nil
		},
	}

	svc := NewLookupService(store, testResolverConfig())

	res, err := svc.Resolve(context.Background(), "BR123456789XX")

	require.NoError(t, err)
	assert.Equal(t, domain.TierTrackingSearch, res.Tier)
	assert.Equal(t, match.ID, res.Order.ID)
	assert.Zero(t, store.pageCalls)
}

// TestLookupService_Resolve_TrackingSearch_FalsePositiveRejected verifies
// the validation invariant: a candidate whose fulfillments do not contain
// the searched code must not be returned, even when the index suggested it.
func TestLookupService_Resolve_TrackingSearch_FalsePositiveRejected(t *testing.T) {
	stale := domain.Order{
		ID:   41,
		Name: "#3002",
		Fulfillments: []domain.Fulfillment{
			{TrackingNumber: "XX000000000BR"},
		},
	}

	store := &mockOrderStore{
		candidatesFn: func(term string, exact bool) ([]int64, error) {
			return []int64{41}, nil
		},
		fetchByIDFn: func(id int64) (*domain.Order, error) {
			return &stale, nil
		},
	}

	svc := NewLookupService(store, testResolverConfig())

	res, err := svc.Resolve(context.Background(), "BR123456789XX")

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

// TestLookupService_Resolve_TrackingURLMatch verifies that a fulfillment
// carrying the code only inside its tracking URL still validates.
func TestLookupService_Resolve_TrackingURLMatch(t *testing.T) {
	match := domain.Order{
		ID:   42,
		Name: "#3003",
		Fulfillments: []domain.Fulfillment{
			{TrackingURL: "https://carrier.example/track?code=BR123456789XX"},
		},
	}

	store := &mockOrderStore{
		candidatesFn: func(term string, exact bool) ([]int64, error) {
			return []int64{42}, nil
		},
		fetchByIDFn: func(id int64) (*domain.Order, error) {
			return &match, nil
		},
	}

	svc := NewLookupService(store, testResolverConfig())

	res, err := svc.Resolve(context.Background(), "BR123456789XX")

	require.NoError(t, err)
	assert.Equal(t, domain.TierTrackingSearch, res.Tier)
}

// TestLookupService_Resolve_ScanFallback verifies the end-to-end fallback:
// no index hit, but the code appears in some order's tracking number list
// during the paginated scan.
func TestLookupService_Resolve_ScanFallback(t *testing.T) {
	match := domain.Order{
		ID:   50,
		Name: "#4001",
		Fulfillments: []domain.Fulfillment{
			{TrackingNumbers: []string{"BR123456789XX"}},
		},
	}

	store := &mockOrderStore{
		pageFn: func(cursor string, pageSize int) ([]domain.Order, string, error) {
			switch cursor {
			case "":
				return []domain.Order{{ID: 1}, {ID: 2}}, "page2", nil
			case "page2":
				return []domain.Order{match}, "", nil
			default:
				return []domain.Order{}, "", nil
			}
		},
	}

	svc := NewLookupService(store, testResolverConfig())

	res, err := svc.Resolve(context.Background(), "BR123456789XX")

	require.NoError(t, err)
	assert.Equal(t, domain.TierTrackingScan, res.Tier)
	assert.Equal(t, match.ID, res.Order.ID)
	assert.Equal(t, 1, store.candidateCalls)
	assert.Equal(t, 2, store.pageCalls)
}

// TestLookupService_Resolve_ScanPageBudget verifies the scanner stops after
// the configured page budget even when more pages exist.
func TestLookupService_Resolve_ScanPageBudget(t *testing.T) {
	store := &mockOrderStore{
		pageFn: func(cursor string, pageSize int) ([]domain.Order, string, error) {
			// Endless pages, never a match.
			return []domain.Order{{ID: 1}, {ID: 2}}, fmt.Sprintf("next-%d", len(cursor)), nil
		},
	}

	svc := NewLookupService(store, testResolverConfig())

	res, err := svc.Resolve(context.Background(), "BR123456789XX")

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Equal(t, 3, store.pageCalls)
}

// TestLookupService_Resolve_EmptyQuery verifies empty input is rejected
// before any store call.
func TestLookupService_Resolve_EmptyQuery(t *testing.T) {
	store := &mockOrderStore{}
	svc := NewLookupService(store, testResolverConfig())

	for _, raw := range []string{"", "   "} {
		res, err := svc.Resolve(context.Background(), raw)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}
	assert.Empty(t, store.filteredCalls)
}

// TestLookupService_Resolve_RateLimitedPropagates verifies that rate-limit
// exhaustion aborts the resolution instead of falling through to the next
// tier.
func TestLookupService_Resolve_RateLimitedPropagates(t *testing.T) {
	store := &mockOrderStore{
		candidatesFn: func(term string, exact bool) ([]int64, error) {
			return nil, ports.ErrRateLimited
		},
	}

	svc := NewLookupService(store, testResolverConfig())

	res, err := svc.Resolve(context.Background(), "BR123456789XX")

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ports.ErrRateLimited)
	assert.Zero(t, store.pageCalls)
}

// TestLookupService_Resolve_ShortQueryNeverScans verifies that queries at or
// below the tracking length threshold end at the order-number tier.
func TestLookupService_Resolve_ShortQueryNeverScans(t *testing.T) {
	store := &mockOrderStore{}
	svc := NewLookupService(store, testResolverConfig())

	res, err := svc.Resolve(context.Background(), "12345")

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Zero(t, store.candidateCalls)
	assert.Zero(t, store.pageCalls)
}
