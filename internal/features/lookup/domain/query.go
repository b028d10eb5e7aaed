package domain

import (
	"regexp"
	"strings"
)

// IdentifierClass categorizes what kind of identifier a raw customer query represents.
type IdentifierClass string

const (
	// ClassEmail indicates the query looks like an email address.
	ClassEmail IdentifierClass = "EMAIL"
	// ClassTaxID indicates the query looks like an 11-digit individual tax identifier (CPF).
	ClassTaxID IdentifierClass = "TAX_ID"
	// ClassOrderNumber indicates the query looks like a short order number ("#1024" or "1024").
	ClassOrderNumber IdentifierClass = "ORDER_NUMBER"
	// ClassTrackingCode is the catch-all for everything else, typically carrier tracking codes.
	ClassTrackingCode IdentifierClass = "TRACKING_CODE"
	// ClassUnknown indicates an empty or whitespace-only query.
	ClassUnknown IdentifierClass = "UNKNOWN"
)

// cpfLength is the digit count of the Brazilian individual tax id.
const cpfLength = 11

// orderNumberMaxDigits is the longest digit run still treated as an order number.
const orderNumberMaxDigits = 5

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nonDigitPattern = regexp.MustCompile(`\D+`)
)

// Query is a classified customer search input.
type Query struct {
	// Raw is the trimmed text as entered by the customer.
	Raw string
	// DigitsOnly is Raw with every non-digit character stripped.
	DigitsOnly string
	// Class is the identifier class inferred from Raw.
	Class IdentifierClass
}

// NewQuery builds a Query from raw input, classifying it exactly once.
func NewQuery(raw string) Query {
	trimmed := strings.TrimSpace(raw)
	return Query{
		Raw:        trimmed,
		DigitsOnly: OnlyDigits(trimmed),
		Class:      Classify(trimmed),
	}
}

// OnlyDigits strips all non-digit characters from s.
func OnlyDigits(s string) string {
	return nonDigitPattern.ReplaceAllString(s, "")
}

// Classify maps a raw query string to its identifier class.
// Rules are checked in order; the first match wins:
//  1. email pattern
//  2. exactly 11 digits once stripped (tax id)
//  3. "#" prefix, or a non-empty digit run of at most 5 (order number)
//  4. anything else is treated as a tracking code
//
// Empty or whitespace-only input yields ClassUnknown.
func Classify(raw string) IdentifierClass {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ClassUnknown
	}

	if emailPattern.MatchString(trimmed) {
		return ClassEmail
	}

	digits := OnlyDigits(trimmed)
	if len(digits) == cpfLength {
		return ClassTaxID
	}

	if strings.HasPrefix(trimmed, "#") || (digits != "" && len(digits) <= orderNumberMaxDigits) {
		return ClassOrderNumber
	}

	return ClassTrackingCode
}
