package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pack144/packman-sub000/shared/domain"
	shared_errors "github.com/Pack144/packman-sub000/shared/errors"
)

type MockDistributionStorage struct {
	lists map[domain.ListId]domain.DistributionList

	CreateListFunc func(list domain.DistributionList) (domain.ListId, error)
}

func (m *MockDistributionStorage) CreateList(ctx context.Context, list domain.DistributionList) (domain.ListId, error) {
	if m.CreateListFunc != nil {
		return m.CreateListFunc(list)
	}
	list.Id = domain.ListId(len(m.lists) + 1)
	m.lists[list.Id] = list
	return list.Id, nil
}

func (m *MockDistributionStorage) GetList(ctx context.Context, id domain.ListId) (domain.DistributionList, error) {
	l, ok := m.lists[id]
	if !ok {
		return domain.DistributionList{}, shared_errors.NotFound("Distribution list")
	}
	return l, nil
}

func (m *MockDistributionStorage) GetListByName(ctx context.Context, name domain.ListName) (domain.DistributionList, error) {
	for _, l := range m.lists {
		if l.Name == name {
			return l, nil
		}
	}
	return domain.DistributionList{}, shared_errors.NotFound("Distribution list")
}

func (m *MockDistributionStorage) ListLists(ctx context.Context) ([]domain.DistributionList, error) {
	var out []domain.DistributionList
	for _, l := range m.lists {
		out = append(out, l)
	}
	return out, nil
}

func (m *MockDistributionStorage) DeleteList(ctx context.Context, id domain.ListId) error {
	if _, ok := m.lists[id]; !ok {
		return shared_errors.NotFound("Distribution list")
	}
	delete(m.lists, id)
	return nil
}

func (m *MockDistributionStorage) UpdateListAddresses(ctx context.Context, id domain.ListId, fn func(*domain.DistributionList) error) (domain.DistributionList, error) {
	l, ok := m.lists[id]
	if !ok {
		return domain.DistributionList{}, shared_errors.NotFound("Distribution list")
	}
	l.Addresses = append([]domain.ListAddress(nil), l.Addresses...)
	if err := fn(&l); err != nil {
		return domain.DistributionList{}, err
	}
	m.lists[id] = l
	return l, nil
}

type MockRoster struct {
	CurrentActiveMembersFunc func(refs []domain.SubGroupRef) ([]domain.UserId, error)
	AllActiveMembersFunc     func() ([]domain.UserId, error)
}

func (m *MockRoster) CurrentActiveMembers(ctx context.Context, refs []domain.SubGroupRef) ([]domain.UserId, error) {
	if m.CurrentActiveMembersFunc != nil {
		return m.CurrentActiveMembersFunc(refs)
	}
	return nil, nil
}

func (m *MockRoster) AllActiveMembers(ctx context.Context) ([]domain.UserId, error) {
	if m.AllActiveMembersFunc != nil {
		return m.AllActiveMembersFunc()
	}
	return nil, nil
}

func newDistributionFixture() (*Distribution, *MockDistributionStorage, *MockRoster) {
	storage := &MockDistributionStorage{lists: map[domain.ListId]domain.DistributionList{}}
	roster := &MockRoster{}
	return NewDistribution(storage, roster), storage, roster
}

func TestDistributionCreate(t *testing.T) {
	ctx := context.Background()
	svc, storage, _ := newDistributionFixture()

	id, err := svc.Create(ctx, domain.DistributionList{
		Name: "  Den 4  ",
		Addresses: []domain.ListAddress{
			{Address: "den4@pack144.org"},
			{Address: "wolves@pack144.org", IsDefault: true},
		},
	})
	require.NoError(t, err)

	l := storage.lists[id]
	assert.Equal(t, "Den 4", l.Name)
	assert.Equal(t, []domain.ListAddress{
		{Address: "wolves@pack144.org", IsDefault: true},
		{Address: "den4@pack144.org"},
	}, l.Addresses)

	t.Run("validation", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.DistributionList{Name: ""})
		assert.Equal(t, 400, shared_errors.StatusCode(err))

		_, err = svc.Create(ctx, domain.DistributionList{Name: "Bad", Addresses: []domain.ListAddress{{Address: "not-an-email"}}})
		assert.Equal(t, 400, shared_errors.StatusCode(err))

		_, err = svc.Create(ctx, domain.DistributionList{Name: "Bad", SubGroups: []domain.SubGroupRef{{Kind: "troop", Id: 1}}})
		assert.Equal(t, 400, shared_errors.StatusCode(err))
	})
}

func TestDistributionAddresses(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newDistributionFixture()
	id, err := svc.Create(ctx, domain.DistributionList{Name: "Leaders"})
	require.NoError(t, err)

	_, err = svc.DefaultAddress(ctx, id)
	assert.Equal(t, 404, shared_errors.StatusCode(err))

	_, err = svc.AddAddress(ctx, id, "leaders@pack144.org", false)
	require.NoError(t, err)
	addr, err := svc.DefaultAddress(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "leaders@pack144.org", addr)

	_, err = svc.AddAddress(ctx, id, "akela@pack144.org", false)
	require.NoError(t, err)
	l, err := svc.SetDefaultAddress(ctx, id, "AKELA@pack144.org")
	require.NoError(t, err)
	assert.Equal(t, []domain.ListAddress{
		{Address: "akela@pack144.org", IsDefault: true},
		{Address: "leaders@pack144.org"},
	}, l.Addresses)

	_, err = svc.SetDefaultAddress(ctx, id, "nobody@pack144.org")
	assert.Equal(t, 404, shared_errors.StatusCode(err))

	_, err = svc.AddAddress(ctx, id, "nope", true)
	assert.Equal(t, 400, shared_errors.StatusCode(err))
}

func TestDistributionResolveMembers(t *testing.T) {
	ctx := context.Background()
	svc, _, roster := newDistributionFixture()
	roster.AllActiveMembersFunc = func() ([]domain.UserId, error) { return []domain.UserId{3, 1, 2}, nil }
	roster.CurrentActiveMembersFunc = func(refs []domain.SubGroupRef) ([]domain.UserId, error) {
		return []domain.UserId{5, 4, 5, 4}, nil
	}

	ids, err := svc.ResolveMembers(ctx, domain.DistributionList{AddressesEveryone: true})
	require.NoError(t, err)
	assert.Equal(t, []domain.UserId{1, 2, 3}, ids)

	ids, err = svc.ResolveMembers(ctx, domain.DistributionList{SubGroups: []domain.SubGroupRef{{Kind: domain.SubGroupDen, Id: 4}}})
	require.NoError(t, err)
	assert.Equal(t, []domain.UserId{4, 5}, ids)

	ids, err = svc.ResolveMembers(ctx, domain.DistributionList{Name: "Nobody"})
	require.NoError(t, err)
	assert.Empty(t, ids)

	boom := errors.New("roster down")
	roster.AllActiveMembersFunc = func() ([]domain.UserId, error) { return nil, boom }
	_, err = svc.ResolveMembers(ctx, domain.DistributionList{AddressesEveryone: true})
	assert.ErrorIs(t, err, boom)
}
