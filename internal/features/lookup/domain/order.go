package domain

import (
	"strings"
	"time"
)

// Fulfillment represents one shipment of an order. Carriers expose the same
// shipment under different fields: a single tracking number, a list of
// numbers, or only inside the tracking URL.
type Fulfillment struct {
	// TrackingNumber is the primary tracking identifier, if any.
	TrackingNumber string `json:"tracking_number"`
	// TrackingNumbers lists every tracking identifier on this shipment.
	TrackingNumbers []string `json:"tracking_numbers"`
	// TrackingCompany is the carrier name reported by the store.
	TrackingCompany string `json:"tracking_company"`
	// TrackingURL is the carrier's tracking page for this shipment.
	TrackingURL string `json:"tracking_url"`
}

// LineItem is a purchased product line within an order.
type LineItem struct {
	// Title is the product name.
	Title string `json:"title"`
	// Quantity is the number of units ordered.
	Quantity int `json:"quantity"`
	// Price is the unit price as reported by the store (decimal string).
	Price string `json:"price"`
}

// Address holds the shipping destination of an order.
type Address struct {
	// Name is the recipient's full name.
	Name string `json:"name"`
	// Address1 is the primary street line.
	Address1 string `json:"address1"`
	// Address2 is the complement line (apartment, suite).
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

// Order is a read-only view of an order held by the external store.
type Order struct {
	// ID is the store's unique order id.
	ID int64 `json:"id"`
	// Name is the human order number, e.g. "#1024".
	Name string `json:"name"`
	// CreatedAt is when the order was placed.
	CreatedAt time.Time `json:"created_at"`
	// Email is the buyer's email address.
	Email string `json:"email"`
	// CustomerName is the buyer's full name.
	CustomerName string `json:"customer_name"`
	// FinancialStatus is the store's payment status (paid, pending, refunded...).
	FinancialStatus string `json:"financial_status"`
	// Fulfillments lists the shipments of this order, possibly empty.
	Fulfillments []Fulfillment `json:"fulfillments"`
	// LineItems lists the purchased products.
	LineItems []LineItem `json:"line_items"`
	// TotalPrice is the order total (decimal string).
	TotalPrice string `json:"total_price"`
	// TotalDiscounts is the discount total (decimal string).
	TotalDiscounts string `json:"total_discounts"`
	// Currency is the ISO currency code of the totals.
	Currency string `json:"currency"`
	// ShippingAddress is the delivery destination.
	ShippingAddress Address `json:"shipping_address"`
}

// Customer is a store customer record, used by the tax-id lookup path.
type Customer struct {
	// ID is the store's unique customer id.
	ID int64 `json:"id"`
	// Email is the customer's email address.
	Email string `json:"email"`
	// FirstName is the customer's first name.
	FirstName string `json:"first_name"`
	// LastName is the customer's last name.
	LastName string `json:"last_name"`
}

// HasTracking reports whether this order verifiably carries the searched
// tracking code. Both sides are trimmed and case-folded. A fulfillment
// matches when its primary tracking number equals the searched code, the
// code appears in its tracking number list, or its tracking URL contains the
// code as a substring. The URL check can accept a short code that merely
// occurs inside an unrelated longer URL.
func (o *Order) HasTracking(searched string) bool {
	needle := normalizeTracking(searched)
	if needle == "" {
		return false
	}

	for _, f := range o.Fulfillments {
		if normalizeTracking(f.TrackingNumber) == needle {
			return true
		}
		for _, n := range f.TrackingNumbers {
			if normalizeTracking(n) == needle {
				return true
			}
		}
		if f.TrackingURL != "" && strings.Contains(normalizeTracking(f.TrackingURL), needle) {
			return true
		}
	}

	return false
}

// normalizeTracking trims and lowercases a tracking field for comparison.
func normalizeTracking(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Tier identifies which resolution strategy produced a match.
type Tier string

const (
	// TierEmail is the exact email filter lookup.
	TierEmail Tier = "EMAIL"
	// TierTaxID is the customer-search-by-tax-id lookup.
	TierTaxID Tier = "TAX_ID"
	// TierOrderNumber is the exact order-name filter lookup.
	TierOrderNumber Tier = "ORDER_NUMBER"
	// TierTrackingSearch is the targeted tracking-index candidate search.
	TierTrackingSearch Tier = "TRACKING_SEARCH"
	// TierTrackingScan is the last-resort paginated scan.
	TierTrackingScan Tier = "TRACKING_SCAN"
)

// Resolution is the outcome of resolving a query: the single matched order
// and the tier that produced it.
type Resolution struct {
	// Order is the matched order.
	Order *Order `json:"order"`
	// Tier identifies the strategy that found the match.
	Tier Tier `json:"tier"`
}
