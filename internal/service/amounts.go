package service

import "github.com/shopspring/decimal"

// Scales match the decimal(14,2) price and decimal(14,3) quantity columns.
const (
	priceScale    int32 = 2
	quantityScale int32 = 3
)

var (
	priceLimit    = decimal.New(1, 14-priceScale)
	quantityLimit = decimal.New(1, 14-quantityScale)
)

// checkAmount rejects values the storage column would round or overflow.
func checkAmount(name string, d decimal.Decimal, scale int32, limit decimal.Decimal) error {
	if !d.IsPositive() {
		return validation("%s must be greater than zero", name)
	}
	if !d.Equal(d.Truncate(scale)) {
		return validation("%s allows at most %d decimal places", name, scale)
	}
	if d.GreaterThanOrEqual(limit) {
		return validation("%s must be less than %s", name, limit)
	}
	return nil
}

func checkPrice(name string, d decimal.Decimal) error {
	return checkAmount(name, d, priceScale, priceLimit)
}

func checkQuantity(d decimal.Decimal) error {
	return checkAmount("quantity", d, quantityScale, quantityLimit)
}
