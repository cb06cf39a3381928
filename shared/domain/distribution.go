package domain

import (
	"slices"
	"strings"
	"time"
)

type SubGroupKind string

const (
	SubGroupDen       SubGroupKind = "den"
	SubGroupCommittee SubGroupKind = "committee"
)

// SubGroupRef selects an organizational sub-group (a den or a committee).
type SubGroupRef struct {
	Kind SubGroupKind `validate:"oneof=den committee"`
	Id   int64        `validate:"required"`
}

// ListRef is the part of a distribution list recorded on recipient copies.
type ListRef struct {
	Id   ListId
	Name ListName
}

type ListAddress struct {
	Address   Email `validate:"required,email"`
	IsDefault bool
}

type DistributionList struct {
	Id                ListId
	Name              ListName `validate:"required,max=150"`
	AddressesEveryone bool
	SubGroups         []SubGroupRef `validate:"dive"`
	Addresses         []ListAddress
	CreatedAt         time.Time
	LastUpdated       time.Time
}

func (l *DistributionList) Ref() ListRef {
	return ListRef{Id: l.Id, Name: l.Name}
}

// DefaultAddress returns the address marked default, if any.
func (l *DistributionList) DefaultAddress() (ListAddress, bool) {
	for _, a := range l.Addresses {
		if a.IsDefault {
			return a, true
		}
	}
	return ListAddress{}, false
}

// PutAddress adds or updates an address keeping exactly one default:
// a new default unsets the previous one, and when nothing is default the
// first address becomes default.
func (l *DistributionList) PutAddress(address Email, isDefault bool) {
	idx := slices.IndexFunc(l.Addresses, func(a ListAddress) bool {
		return strings.EqualFold(a.Address, address)
	})
	if idx < 0 {
		l.Addresses = append(l.Addresses, ListAddress{Address: address})
		idx = len(l.Addresses) - 1
	}

	if isDefault {
		for i := range l.Addresses {
			l.Addresses[i].IsDefault = i == idx
		}
	} else if _, ok := l.DefaultAddress(); !ok {
		l.Addresses[0].IsDefault = true
	}
	SortAddresses(l.Addresses)
}

// SortAddresses orders default first, then by address.
func SortAddresses(addrs []ListAddress) {
	slices.SortStableFunc(addrs, func(a, b ListAddress) int {
		if a.IsDefault != b.IsDefault {
			if a.IsDefault {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Address, b.Address)
	})
}
