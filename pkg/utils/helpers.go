package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID returns a unique identifier for groups, expenses and settlements.
func NewID() string {
	return uuid.New().String()
}

// FormatAddress shortens an address for display: 0x1234...5678.
func FormatAddress(address string, chars int) string {
	if address == "" {
		return ""
	}
	if chars <= 0 {
		chars = 4
	}
	if len(address) <= chars*2+2 {
		return address
	}
	return fmt.Sprintf("%s...%s", address[:chars+2], address[len(address)-chars:])
}

// FormatCurrency renders an amount for display. Rounding happens here and
// only here; stored amounts keep full precision.
func FormatCurrency(amount float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}
