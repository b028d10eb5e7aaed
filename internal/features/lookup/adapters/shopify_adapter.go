package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"order-lookup/internal/core/config"
	"order-lookup/internal/core/httpclient"
	"order-lookup/internal/core/logger"
	"order-lookup/internal/core/proxy"
	"order-lookup/internal/features/lookup/domain"
	"order-lookup/internal/features/lookup/ports"

	"go.uber.org/zap"
)

// trackingCandidateCap bounds how many order ids the GraphQL candidate
// search may return per query.
const trackingCandidateCap = 5

// pageFields is the projection requested during paginated scans, keeping
// page payloads small while still carrying everything the summary needs.
const pageFields = "id,name,created_at,email,customer,financial_status,fulfillments,line_items,total_price,total_discounts,currency,shipping_address"

// ShopifyAdapter implements the OrderStore interface using the Shopify Admin
// REST and GraphQL APIs. All operations are read-only.
//
// Transport and decode failures are absorbed: they are logged and surfaced
// as empty results so that an unreachable store degrades to "not found".
// Rate-limit exhaustion is the exception and returns ports.ErrRateLimited.
type ShopifyAdapter struct {
	// client is the HTTP client used for API requests.
	client *http.Client
	// config holds the Shopify connection details and retry budget.
	config config.ShopifyConfig
}

// NewShopifyAdapter creates a new instance of ShopifyAdapter.
func NewShopifyAdapter(cfg config.ShopifyConfig, egress proxy.Settings) *ShopifyAdapter {
	return &ShopifyAdapter{
		client: httpclient.NewClient(time.Duration(cfg.TimeoutSeconds)*time.Second, egress),
		config: cfg,
	}
}

// baseURL builds the versioned Admin API root, e.g.
// "https://shop.myshopify.com/admin/api/2024-10".
func (a *ShopifyAdapter) baseURL() string {
	return fmt.Sprintf("%s/admin/api/%s", strings.TrimRight(a.config.StoreURL, "/"), a.config.APIVersion)
}

// FilteredFetch fetches orders matching the given query parameters.
func (a *ShopifyAdapter) FilteredFetch(ctx context.Context, filters map[string]string) ([]domain.Order, error) {
	params := url.Values{}
	for k, v := range filters {
		params.Set(k, v)
	}

	var payload ordersPayload
	if err := a.getJSON(ctx, "/orders.json", params, &payload, nil); err != nil {
		return a.absorbListErr("filtered fetch", err)
	}

	return mapOrders(payload.Orders), nil
}

// FetchByID fetches a single order by its store id, returning nil when the
// store does not have it.
func (a *ShopifyAdapter) FetchByID(ctx context.Context, id int64) (*domain.Order, error) {
	var payload orderPayload
	err := a.getJSON(ctx, fmt.Sprintf("/orders/%d.json", id), nil, &payload, nil)
	if err != nil {
		if errors.Is(err, ports.ErrRateLimited) {
			return nil, err
		}
		logger.Get().Warn("Shopify order fetch failed",
			zap.Int64("order_id", id),
			zap.Error(err),
		)
		return nil, nil
	}

	if payload.Order.ID == 0 {
		return nil, nil
	}

	order := mapOrder(payload.Order)
	return &order, nil
}

// CustomerSearch runs the store's fuzzy customer search, limited to one result.
func (a *ShopifyAdapter) CustomerSearch(ctx context.Context, term string) ([]domain.Customer, error) {
	params := url.Values{}
	params.Set("query", term)
	params.Set("limit", "1")

	var payload customersPayload
	if err := a.getJSON(ctx, "/customers/search.json", params, &payload, nil); err != nil {
		if errors.Is(err, ports.ErrRateLimited) {
			return nil, err
		}
		logger.Get().Warn("Shopify customer search failed", zap.Error(err))
		return []domain.Customer{}, nil
	}

	customers := make([]domain.Customer, 0, len(payload.Customers))
	for _, c := range payload.Customers {
		customers = append(customers, domain.Customer{
			ID:        c.ID,
			Email:     c.Email,
			FirstName: c.FirstName,
			LastName:  c.LastName,
		})
	}
	return customers, nil
}

// TrackingCandidates asks the GraphQL search for order ids matching term.
// With exact=true the query is qualified against the tracking-number index;
// otherwise it is unconstrained free text, like typing into the store's own
// search bar. The term is escaped before being embedded in the query string.
func (a *ShopifyAdapter) TrackingCandidates(ctx context.Context, term string, exact bool) ([]int64, error) {
	search := escapeSearchTerm(term)
	if exact {
		search = "tracking_number:" + search
	}

	gql := fmt.Sprintf(`{ orders(first: %d, query: "%s") { edges { node { id } } } }`, trackingCandidateCap, search)
	body, err := json.Marshal(map[string]string{"query": gql})
	if err != nil {
		return []int64{}, nil
	}

	resp, err := a.do(ctx, http.MethodPost, a.baseURL()+"/graphql.json", body)
	if err != nil {
		if errors.Is(err, ports.ErrRateLimited) {
			return nil, err
		}
		logger.Get().Warn("Shopify GraphQL search failed", zap.Error(err))
		return []int64{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Get().Warn("Shopify GraphQL search returned non-OK status",
			zap.Int("status", resp.StatusCode),
		)
		return []int64{}, nil
	}

	var payload graphqlOrdersPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		logger.Get().Warn("Failed to decode GraphQL search response", zap.Error(err))
		return []int64{}, nil
	}

	ids := make([]int64, 0, len(payload.Data.Orders.Edges))
	for _, edge := range payload.Data.Orders.Edges {
		if id, ok := parseOrderGID(edge.Node.ID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Page fetches one page of the order listing, projected to pageFields. The
// returned cursor is the opaque page_info token from the Link response
// header, or "" when no further pages exist.
func (a *ShopifyAdapter) Page(ctx context.Context, cursor string, pageSize int) ([]domain.Order, string, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(pageSize))
	params.Set("fields", pageFields)
	if cursor != "" {
		// Shopify rejects filter params alongside page_info.
		params.Set("page_info", cursor)
	} else {
		params.Set("status", "any")
	}

	var payload ordersPayload
	var link string
	if err := a.getJSON(ctx, "/orders.json", params, &payload, &link); err != nil {
		if errors.Is(err, ports.ErrRateLimited) {
			return nil, "", err
		}
		logger.Get().Warn("Shopify page fetch failed", zap.Error(err))
		return []domain.Order{}, "", nil
	}

	return mapOrders(payload.Orders), nextPageCursor(link), nil
}

// HealthCheck verifies that the Shopify API is reachable and the access
// token is valid.
func (a *ShopifyAdapter) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(a.config.TimeoutSeconds)*time.Second)
	defer cancel()

	resp, err := a.do(ctx, http.MethodGet, a.baseURL()+"/shop.json", nil)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
	}

	return nil
}

// getJSON performs a GET against path, decoding the JSON body into out.
// When linkHeader is non-nil it receives the response's Link header, used
// for pagination cursors.
func (a *ShopifyAdapter) getJSON(ctx context.Context, path string, params url.Values, out interface{}, linkHeader *string) error {
	reqURL := a.baseURL() + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	resp, err := a.do(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shopify API returned status: %d", resp.StatusCode)
	}

	if linkHeader != nil {
		*linkHeader = resp.Header.Get("Link")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// do executes one request with authentication headers, retrying on HTTP 429
// with a fixed backoff up to the configured attempt budget. The original
// behavior retried unconditionally; the budget turns a store outage into an
// ErrRateLimited failure instead of a stall.
func (a *ShopifyAdapter) do(ctx context.Context, method, reqURL string, body []byte) (*http.Response, error) {
	delay := time.Duration(a.config.RetryDelayMS) * time.Millisecond

	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("X-Shopify-Access-Token", a.config.AccessToken)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to execute request: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		resp.Body.Close()

		if attempt >= a.config.MaxRetries {
			logger.Get().Error("Shopify rate limit retry budget exhausted",
				zap.String("url", reqURL),
				zap.Int("attempts", attempt+1),
			)
			return nil, ports.ErrRateLimited
		}

		logger.Get().Warn("Shopify rate limited, backing off",
			zap.String("url", reqURL),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// absorbListErr converts a list-call failure into an empty result, keeping
// rate-limit exhaustion as a hard error.
func (a *ShopifyAdapter) absorbListErr(op string, err error) ([]domain.Order, error) {
	if errors.Is(err, ports.ErrRateLimited) {
		return nil, err
	}
	logger.Get().Warn("Shopify "+op+" failed", zap.Error(err))
	return []domain.Order{}, nil
}

// escapeSearchTerm escapes backslashes and double quotes so user input can
// be embedded in a GraphQL string literal without altering the query.
func escapeSearchTerm(term string) string {
	term = strings.ReplaceAll(term, `\`, `\\`)
	return strings.ReplaceAll(term, `"`, `\"`)
}

// parseOrderGID extracts the numeric id from a Shopify GraphQL global id
// like "gid://shopify/Order/5678901234".
func parseOrderGID(gid string) (int64, bool) {
	idx := strings.LastIndex(gid, "/")
	if idx < 0 || idx == len(gid)-1 {
		return 0, false
	}
	id, err := strconv.ParseInt(gid[idx+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// nextPageCursor extracts the page_info token from the rel="next" entry of
// a Link header, e.g.
// `<https://shop.myshopify.com/admin/api/2024-10/orders.json?page_info=abc&limit=250>; rel="next"`.
func nextPageCursor(linkHeader string) string {
	for _, part := range strings.Split(linkHeader, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end < 0 || end <= start {
			continue
		}
		u, err := url.Parse(part[start+1 : end])
		if err != nil {
			continue
		}
		return u.Query().Get("page_info")
	}
	return ""
}

// mapOrders converts raw Shopify orders into domain entities.
func mapOrders(raw []shopifyOrder) []domain.Order {
	orders := make([]domain.Order, 0, len(raw))
	for _, o := range raw {
		orders = append(orders, mapOrder(o))
	}
	return orders
}

// mapOrder converts a raw Shopify order response into a domain Order entity.
func mapOrder(o shopifyOrder) domain.Order {
	email := o.Email
	if email == "" {
		email = o.Customer.Email
	}

	fulfillments := make([]domain.Fulfillment, 0, len(o.Fulfillments))
	for _, f := range o.Fulfillments {
		fulfillments = append(fulfillments, domain.Fulfillment{
			TrackingNumber:  f.TrackingNumber,
			TrackingNumbers: f.TrackingNumbers,
			TrackingCompany: f.TrackingCompany,
			TrackingURL:     f.TrackingURL,
		})
	}

	items := make([]domain.LineItem, 0, len(o.LineItems))
	for _, item := range o.LineItems {
		items = append(items, domain.LineItem{
			Title:    item.Title,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}

	return domain.Order{
		ID:              o.ID,
		Name:            o.Name,
		CreatedAt:       o.CreatedAt,
		Email:           email,
		CustomerName:    strings.TrimSpace(o.Customer.FirstName + " " + o.Customer.LastName),
		FinancialStatus: o.FinancialStatus,
		Fulfillments:    fulfillments,
		LineItems:       items,
		TotalPrice:      o.TotalPrice,
		TotalDiscounts:  o.TotalDiscounts,
		Currency:        o.Currency,
		ShippingAddress: domain.Address{
			Name:     o.ShippingAddress.Name,
			Address1: o.ShippingAddress.Address1,
			Address2: o.ShippingAddress.Address2,
			City:     o.ShippingAddress.City,
			Province: o.ShippingAddress.Province,
			Zip:      o.ShippingAddress.Zip,
			Country:  o.ShippingAddress.Country,
			Phone:    o.ShippingAddress.Phone,
		},
	}
}

// internal structs for mapping

// ordersPayload wraps the order list returned by GET /orders.json.
type ordersPayload struct {
	Orders []shopifyOrder `json:"orders"`
}

// orderPayload wraps the single order returned by GET /orders/{id}.json.
type orderPayload struct {
	Order shopifyOrder `json:"order"`
}

// customersPayload wraps the customer list returned by the search endpoint.
type customersPayload struct {
	Customers []shopifyCustomer `json:"customers"`
}

// shopifyOrder represents the JSON structure of an order from the Shopify Admin API.
type shopifyOrder struct {
	// ID is the unique order id.
	ID int64 `json:"id"`
	// Name is the human order number, e.g. "#1024".
	Name string `json:"name"`
	// Email is the order-level contact email.
	Email string `json:"email"`
	// CreatedAt is the order creation timestamp (RFC3339).
	CreatedAt time.Time `json:"created_at"`
	// FinancialStatus is the payment status (paid, pending, refunded...).
	FinancialStatus string `json:"financial_status"`
	// TotalPrice is the order total as a decimal string.
	TotalPrice string `json:"total_price"`
	// TotalDiscounts is the discount total as a decimal string.
	TotalDiscounts string `json:"total_discounts"`
	// Currency is the ISO currency code.
	Currency string `json:"currency"`
	// Customer holds the buyer record.
	Customer shopifyCustomer `json:"customer"`
	// Fulfillments contains the shipments of the order.
	Fulfillments []shopifyFulfillment `json:"fulfillments"`
	// LineItems contains the products ordered.
	LineItems []shopifyLineItem `json:"line_items"`
	// ShippingAddress is the delivery destination.
	ShippingAddress shopifyAddress `json:"shipping_address"`
}

// shopifyCustomer represents the buyer attached to an order or a customer
// search result.
type shopifyCustomer struct {
	// ID is the unique customer id.
	ID int64 `json:"id"`
	// Email is the customer's email address.
	Email string `json:"email"`
	// FirstName is the customer's first name.
	FirstName string `json:"first_name"`
	// LastName is the customer's last name.
	LastName string `json:"last_name"`
}

// shopifyFulfillment represents a shipment record with its tracking fields.
type shopifyFulfillment struct {
	// TrackingNumber is the primary tracking identifier.
	TrackingNumber string `json:"tracking_number"`
	// TrackingNumbers lists every tracking identifier on the shipment.
	TrackingNumbers []string `json:"tracking_numbers"`
	// TrackingCompany is the carrier name.
	TrackingCompany string `json:"tracking_company"`
	// TrackingURL is the carrier tracking page URL.
	TrackingURL string `json:"tracking_url"`
}

// shopifyLineItem represents a product in the order.
type shopifyLineItem struct {
	// Title is the product name.
	Title string `json:"title"`
	// Quantity is the number of units ordered.
	Quantity int `json:"quantity"`
	// Price is the unit price as a decimal string.
	Price string `json:"price"`
}

// shopifyAddress holds shipping address information.
type shopifyAddress struct {
	// Name is the recipient's full name.
	Name string `json:"name"`
	// Address1 is the primary address line.
	Address1 string `json:"address1"`
	// Address2 is the complement line.
	Address2 string `json:"address2"`
	// City is the destination city.
	City string `json:"city"`
	// Province is the destination state or province.
	Province string `json:"province"`
	// Zip is the postal code.
	Zip string `json:"zip"`
	// Country is the destination country.
	Country string `json:"country"`
	// Phone is the recipient's contact phone.
	Phone string `json:"phone"`
}

// graphqlOrdersPayload decodes the GraphQL candidate search response.
type graphqlOrdersPayload struct {
	Data struct {
		Orders struct {
			Edges []struct {
				Node struct {
					ID string `json:"id"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"orders"`
	} `json:"data"`
}
