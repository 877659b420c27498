package entities

import (
	"math"
	"strconv"
)

// Vendor identifies one of the pharmacies a price is quoted for
type Vendor string

const (
	VendorPharmEasy Vendor = "PharmEasy"
	Vendor1mg       Vendor = "1mg"
	VendorNetmeds   Vendor = "Netmeds"
)

// Vendors lists every vendor in display order.
var Vendors = []Vendor{VendorPharmEasy, Vendor1mg, VendorNetmeds}

// Price is an amount rounded to two fraction digits.
type Price float64

// RoundPrice rounds v half away from zero to two fraction digits.
func RoundPrice(v float64) Price {
	return Price(math.Round(v*100) / 100)
}

// MarshalJSON always writes two fraction digits (12.5 becomes 12.50).
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(p), 'f', 2, 64)), nil
}

// PriceQuote holds the synthetic prices of one medicine across all vendors
type PriceQuote struct {
	DrugName     string           `json:"drug_name"`
	VendorPrices map[Vendor]Price `json:"vendor_prices"`
}
