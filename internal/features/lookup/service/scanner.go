package service

import (
	"context"

	"order-lookup/internal/core/logger"
	"order-lookup/internal/features/lookup/domain"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// scan walks successive order pages validating every order against the
// searched tracking code, newest first as the store orders them. Pages are
// paced by a limiter so the walk stays under the store's rate limit even
// though individual fetches are not being throttled. The walk stops at the
// first validated order, after scanMaxPages pages, or when the store runs
// out of pages, returning nil in the last two cases.
func (s *LookupService) scan(ctx context.Context, searched string) (*domain.Order, error) {
	limiter := rate.NewLimiter(rate.Every(s.scanPageDelay), 1)

	cursor := ""
	for page := 0; page < s.scanMaxPages; page++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		orders, next, err := s.store.Page(ctx, cursor, s.scanPageSize)
		if err != nil {
			return nil, err
		}

		for i := range orders {
			if orders[i].HasTracking(searched) {
				logger.Get().Info("Tracking code found during page scan",
					zap.Int("page", page+1),
					zap.String("order_name", orders[i].Name),
				)
				return &orders[i], nil
			}
		}

		if next == "" {
			return nil, nil
		}
		cursor = next
	}

	logger.Get().Info("Page scan budget exhausted without a match",
		zap.Int("max_pages", s.scanMaxPages),
		zap.String("searched", searched),
	)
	return nil, nil
}
