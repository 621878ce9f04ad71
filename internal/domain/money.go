package domain

import "github.com/shopspring/decimal"

// Amounts go on the wire as JSON numbers carrying their exact decimal value.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// UncategorizedLabel buckets transactions whose category cannot be resolved.
const UncategorizedLabel = "Uncategorized"

// ParseAmount parses a stored decimal amount (e.g. "100000.00").
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ErrValidation{Field: "amount", Message: "not a decimal: " + s}
	}
	return d, nil
}

// MustParseAmount is ParseAmount for literals known to be valid.
func MustParseAmount(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return d
}
