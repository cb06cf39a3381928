package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func defaults(l *DistributionList) []string {
	var out []string
	for _, a := range l.Addresses {
		if a.IsDefault {
			out = append(out, a.Address)
		}
	}
	return out
}

func TestPutAddress_FirstBecomesDefault(t *testing.T) {
	l := &DistributionList{Name: "Den 4"}
	l.PutAddress("den4@pack144.org", false)

	assert.Equal(t, []string{"den4@pack144.org"}, defaults(l))
}

func TestPutAddress_NewDefaultUnsetsPrevious(t *testing.T) {
	l := &DistributionList{Name: "Den 4"}
	l.PutAddress("den4@pack144.org", true)
	l.PutAddress("tigers@pack144.org", false)
	assert.Equal(t, []string{"den4@pack144.org"}, defaults(l))

	l.PutAddress("tigers@pack144.org", true)
	assert.Equal(t, []string{"tigers@pack144.org"}, defaults(l))
	assert.Len(t, l.Addresses, 2)
	assert.Equal(t, "tigers@pack144.org", l.Addresses[0].Address, "default sorts first")

	def, ok := l.DefaultAddress()
	assert.True(t, ok)
	assert.Equal(t, "tigers@pack144.org", def.Address)
}

func TestPutAddress_CaseInsensitiveUpdate(t *testing.T) {
	l := &DistributionList{Name: "Den 4"}
	l.PutAddress("den4@pack144.org", true)
	l.PutAddress("DEN4@pack144.org", false)

	assert.Len(t, l.Addresses, 1)
	assert.Equal(t, []string{"den4@pack144.org"}, defaults(l))
}

func TestDefaultAddress_Empty(t *testing.T) {
	l := &DistributionList{}
	_, ok := l.DefaultAddress()
	assert.False(t, ok)
}

func TestSortDistributions(t *testing.T) {
	ds := []Distribution{
		{List: DistributionList{Name: "Bears"}, Delivery: DeliveryCc},
		{List: DistributionList{Name: "Wolves"}, Delivery: DeliveryTo},
		{List: DistributionList{Name: "Arrow"}, Delivery: DeliveryCc},
		{List: DistributionList{Name: "Lions"}, Delivery: DeliveryTo},
	}
	SortDistributions(ds)

	var got []string
	for _, d := range ds {
		got = append(got, d.List.Name)
	}
	assert.Equal(t, []string{"Lions", "Wolves", "Arrow", "Bears"}, got)
}
