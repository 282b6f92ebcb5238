package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ledgerlens/internal/domain"
)

func TestTaxCodeLookup_FindChecksGoodsThenServices(t *testing.T) {
	lookup := NewTaxCodeLookup([]domain.TaxCode{
		{Code: "8481", Category: domain.TaxCodeGoods, Rate: 18.0},
		{Code: "998311", Category: domain.TaxCodeServices, Rate: 18.0},
	})

	goods, ok := lookup.Find("8481")
	assert.True(t, ok)
	assert.Equal(t, domain.TaxCodeGoods, goods.Category)

	services, ok := lookup.Find("998311")
	assert.True(t, ok)
	assert.Equal(t, domain.TaxCodeServices, services.Category)

	_, ok = lookup.Find("0000")
	assert.False(t, ok)

	assert.Equal(t, 2, lookup.Size())
}

func TestTaxCodeLookup_RateMatchesWithinTolerance(t *testing.T) {
	lookup := NewTaxCodeLookup([]domain.TaxCode{
		{Code: "8481", Category: domain.TaxCodeGoods, Rate: 18.0},
	})

	found, matched, expected := lookup.RateMatches("8481", 18.0)
	assert.True(t, found)
	assert.True(t, matched)
	assert.Equal(t, 18.0, expected)

	_, matched, _ = lookup.RateMatches("8481", 18.01)
	assert.True(t, matched)

	_, matched, _ = lookup.RateMatches("8481", 18.02)
	assert.False(t, matched)

	_, matched, _ = lookup.RateMatches("8481", 12.0)
	assert.False(t, matched)

	found, _, _ = lookup.RateMatches("HB-404", 18.0)
	assert.False(t, found)
}
