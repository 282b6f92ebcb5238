package analysis

import (
	"github.com/shopspring/decimal"

	"ledgerlens/internal/domain"
)

// rateTolerance is the largest stated-vs-registered rate difference accepted
// as agreement. Compared in decimal so a difference of exactly 0.01 is not
// pushed over the boundary by float noise.
var rateTolerance = decimal.NewFromFloat(0.01)

// TaxCodeLookup provides fast in-memory lookups for tax code existence and
// rate validation. It is immutable after construction and safe for concurrent
// access.
type TaxCodeLookup struct {
	goods    map[string]domain.TaxCode
	services map[string]domain.TaxCode
}

// NewTaxCodeLookup builds a TaxCodeLookup from codes loaded from the database.
func NewTaxCodeLookup(codes []domain.TaxCode) *TaxCodeLookup {
	l := &TaxCodeLookup{
		goods:    make(map[string]domain.TaxCode),
		services: make(map[string]domain.TaxCode),
	}
	for _, c := range codes {
		switch c.Category {
		case domain.TaxCodeServices:
			l.services[c.Code] = c
		default:
			l.goods[c.Code] = c
		}
	}
	return l
}

// Find returns the entry for a code, checking goods first and then services.
func (l *TaxCodeLookup) Find(code string) (domain.TaxCode, bool) {
	if c, ok := l.goods[code]; ok {
		return c, true
	}
	if c, ok := l.services[code]; ok {
		return c, true
	}
	return domain.TaxCode{}, false
}

// RateMatches checks whether the stated rate agrees with the registered rate
// for a code. It returns found=false when the code is unknown.
func (l *TaxCodeLookup) RateMatches(code string, rate float64) (found, matched bool, expected float64) {
	c, ok := l.Find(code)
	if !ok {
		return false, false, 0
	}
	diff := decimal.NewFromFloat(c.Rate).Sub(decimal.NewFromFloat(rate)).Abs()
	return true, !diff.GreaterThan(rateTolerance), c.Rate
}

// Size returns the number of registered codes.
func (l *TaxCodeLookup) Size() int {
	return len(l.goods) + len(l.services)
}
