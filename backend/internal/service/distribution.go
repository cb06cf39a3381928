package service

import (
	"context"
	"slices"
	"strings"

	"github.com/Pack144/packman-sub000/shared/domain"
	shared_errors "github.com/Pack144/packman-sub000/shared/errors"
	"github.com/Pack144/packman-sub000/shared/validation"
)

// RosterResolver answers "who belongs to these sub-groups today". Both
// queries reflect the current reporting period only.
type RosterResolver interface {
	CurrentActiveMembers(ctx context.Context, refs []domain.SubGroupRef) ([]domain.UserId, error)
	AllActiveMembers(ctx context.Context) ([]domain.UserId, error)
}

type DistributionService interface {
	Create(ctx context.Context, list domain.DistributionList) (domain.ListId, error)
	Get(ctx context.Context, id domain.ListId) (domain.DistributionList, error)
	GetByName(ctx context.Context, name domain.ListName) (domain.DistributionList, error)
	List(ctx context.Context) ([]domain.DistributionList, error)
	Delete(ctx context.Context, id domain.ListId) error
	AddAddress(ctx context.Context, id domain.ListId, address domain.Email, isDefault bool) (domain.DistributionList, error)
	SetDefaultAddress(ctx context.Context, id domain.ListId, address domain.Email) (domain.DistributionList, error)
	DefaultAddress(ctx context.Context, id domain.ListId) (domain.Email, error)
	ResolveMembers(ctx context.Context, list domain.DistributionList) ([]domain.UserId, error)
}

type DistributionStorage interface {
	CreateList(ctx context.Context, list domain.DistributionList) (domain.ListId, error)
	GetList(ctx context.Context, id domain.ListId) (domain.DistributionList, error)
	GetListByName(ctx context.Context, name domain.ListName) (domain.DistributionList, error)
	ListLists(ctx context.Context) ([]domain.DistributionList, error)
	DeleteList(ctx context.Context, id domain.ListId) error
	UpdateListAddresses(ctx context.Context, id domain.ListId, fn func(*domain.DistributionList) error) (domain.DistributionList, error)
}

type Distribution struct {
	storage DistributionStorage
	roster  RosterResolver
}

func NewDistribution(storage DistributionStorage, roster RosterResolver) *Distribution {
	return &Distribution{storage: storage, roster: roster}
}

func (d *Distribution) Create(ctx context.Context, list domain.DistributionList) (domain.ListId, error) {
	list.Name = strings.TrimSpace(list.Name)
	if err := validation.Struct(list); err != nil {
		return 0, err
	}

	// rebuild through PutAddress so the stored set has exactly one default
	addrs := list.Addresses
	list.Addresses = nil
	for _, a := range addrs {
		if err := validation.Var(a.Address, "required,email"); err != nil {
			return 0, err
		}
		list.PutAddress(a.Address, a.IsDefault)
	}
	return d.storage.CreateList(ctx, list)
}

func (d *Distribution) Get(ctx context.Context, id domain.ListId) (domain.DistributionList, error) {
	return d.storage.GetList(ctx, id)
}

func (d *Distribution) GetByName(ctx context.Context, name domain.ListName) (domain.DistributionList, error) {
	return d.storage.GetListByName(ctx, name)
}

func (d *Distribution) List(ctx context.Context) ([]domain.DistributionList, error) {
	return d.storage.ListLists(ctx)
}

func (d *Distribution) Delete(ctx context.Context, id domain.ListId) error {
	return d.storage.DeleteList(ctx, id)
}

func (d *Distribution) AddAddress(ctx context.Context, id domain.ListId, address domain.Email, isDefault bool) (domain.DistributionList, error) {
	if err := validation.Var(address, "required,email"); err != nil {
		return domain.DistributionList{}, err
	}
	return d.storage.UpdateListAddresses(ctx, id, func(l *domain.DistributionList) error {
		l.PutAddress(address, isDefault)
		return nil
	})
}

func (d *Distribution) SetDefaultAddress(ctx context.Context, id domain.ListId, address domain.Email) (domain.DistributionList, error) {
	return d.storage.UpdateListAddresses(ctx, id, func(l *domain.DistributionList) error {
		if !slices.ContainsFunc(l.Addresses, func(a domain.ListAddress) bool { return strings.EqualFold(a.Address, address) }) {
			return shared_errors.NotFound("List address")
		}
		l.PutAddress(address, true)
		return nil
	})
}

func (d *Distribution) DefaultAddress(ctx context.Context, id domain.ListId) (domain.Email, error) {
	l, err := d.storage.GetList(ctx, id)
	if err != nil {
		return "", err
	}
	a, ok := l.DefaultAddress()
	if !ok {
		return "", shared_errors.NotFound("Default list address")
	}
	return a.Address, nil
}

// ResolveMembers returns the list's current members, sorted and without
// duplicates. A list with no selectors resolves to nobody.
func (d *Distribution) ResolveMembers(ctx context.Context, list domain.DistributionList) ([]domain.UserId, error) {
	var (
		ids []domain.UserId
		err error
	)
	switch {
	case list.AddressesEveryone:
		ids, err = d.roster.AllActiveMembers(ctx)
	case len(list.SubGroups) == 0:
		return nil, nil
	default:
		ids, err = d.roster.CurrentActiveMembers(ctx, list.SubGroups)
	}
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}
