package handler

import (
	"errors"
	"net/http"
	"strings"

	"order-lookup/internal/core/logger"
	"order-lookup/internal/features/lookup/domain"
	"order-lookup/internal/features/lookup/ports"
	"order-lookup/internal/features/lookup/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LookupHandler handles HTTP requests for the order lookup endpoint.
type LookupHandler struct {
	// service is the LookupService instance.
	service *service.LookupService
}

// NewLookupHandler creates a new instance of LookupHandler.
func NewLookupHandler(s *service.LookupService) *LookupHandler {
	return &LookupHandler{
		service: s,
	}
}

// LookupOrder resolves a free-text customer query into a single order summary.
// @Summary Lookup an order
// @Description Resolve a free-text query (email, tax id, order number or tracking code) into the matching order.
// @Accept json
// @Produce json
// @Param query query string true "Customer search text"
// @Success 200 {object} OrderSummary
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/orders/lookup [get]
func (h *LookupHandler) LookupOrder(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("query"))

	rayID, ok := c.Locals("requestid").(string)
	if !ok {
		rayID = "unknown"
	}

	if query == "" {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "Search query is required",
			RayID:   rayID,
		})
	}

	resolution, err := h.service.Resolve(c.Context(), query)
	if err != nil {
		logger.Get().Error("Failed to resolve query",
			zap.String("ray_id", rayID),
			zap.Error(err),
		)

		status := http.StatusInternalServerError
		msg := "Internal Server Error"

		switch {
		case errors.Is(err, service.ErrEmptyQuery):
			status = http.StatusBadRequest
			msg = "Search query is required"
		case errors.Is(err, service.ErrOrderNotFound):
			status = http.StatusNotFound
			msg = "Order not found"
		case errors.Is(err, ports.ErrRateLimited):
			status = http.StatusServiceUnavailable
			msg = "Store is busy, try again shortly"
		}

		return c.Status(status).JSON(ErrorResponse{
			Message: msg,
			RayID:   rayID,
		})
	}

	return c.Status(http.StatusOK).JSON(newOrderSummary(resolution, query))
}

// OrderSummary is the UI-facing projection of a matched order.
type OrderSummary struct {
	// Name is the human order number, e.g. "#1024".
	Name string `json:"name"`
	// CreatedAt is the order creation timestamp.
	CreatedAt string `json:"created_at"`
	// TrackingNumber is the shipment tracking code, empty when unshipped.
	TrackingNumber string `json:"tracking_number"`
	// TrackingCompany is the carrier of the selected shipment.
	TrackingCompany string `json:"tracking_company"`
	// CustomerName is the buyer's full name.
	CustomerName string `json:"customer_name"`
	// FinancialStatus is the store's payment status.
	FinancialStatus string `json:"financial_status"`
	// LineItems lists the purchased products.
	LineItems []domain.LineItem `json:"line_items"`
	// TotalDiscounts is the discount total.
	TotalDiscounts string `json:"total_discounts"`
	// TotalPrice is the order total.
	TotalPrice string `json:"total_price"`
	// Currency is the ISO currency code of the totals.
	Currency string `json:"currency"`
	// ShippingAddress is the delivery destination.
	ShippingAddress domain.Address `json:"shipping_address"`
	// Tier identifies the resolution strategy that matched.
	Tier domain.Tier `json:"tier"`
}

// newOrderSummary projects a resolution into the response shape. When the
// order has several shipments, the one carrying the searched code is
// preferred; otherwise the first shipment with a tracking number is used.
func newOrderSummary(res *domain.Resolution, query string) OrderSummary {
	order := res.Order

	var trackingNumber, trackingCompany string
	for _, f := range order.Fulfillments {
		if f.TrackingNumber == "" {
			continue
		}
		if trackingNumber == "" {
			trackingNumber = f.TrackingNumber
			trackingCompany = f.TrackingCompany
		}
		if strings.EqualFold(f.TrackingNumber, strings.TrimSpace(query)) {
			trackingNumber = f.TrackingNumber
			trackingCompany = f.TrackingCompany
			break
		}
	}

	customerName := order.CustomerName
	if customerName == "" {
		customerName = "Cliente"
	}

	return OrderSummary{
		Name:            order.Name,
		CreatedAt:       order.CreatedAt.Format("2006-01-02T15:04:05-07:00"),
		TrackingNumber:  trackingNumber,
		TrackingCompany: trackingCompany,
		CustomerName:    customerName,
		FinancialStatus: order.FinancialStatus,
		LineItems:       order.LineItems,
		TotalDiscounts:  order.TotalDiscounts,
		TotalPrice:      order.TotalPrice,
		Currency:        order.Currency,
		ShippingAddress: order.ShippingAddress,
		Tier:            res.Tier,
	}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for debugging.
	RayID string `json:"ray_id"`
}
