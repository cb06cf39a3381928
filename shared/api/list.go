package api

import (
	"time"

	"github.com/Pack144/packman-sub000/shared/domain"
)

// Request DTOs

type SubGroupRequest struct {
	Kind string `json:"kind" validate:"required,oneof=den committee"`
	Id   int64  `json:"id" validate:"required"`
}

type AddressRequest struct {
	Address   string `json:"address" validate:"required,email"`
	IsDefault bool   `json:"is_default,omitempty"`
}

type CreateListRequest struct {
	Name              string            `json:"name" validate:"required,max=150"`
	AddressesEveryone bool              `json:"addresses_everyone,omitempty"`
	SubGroups         []SubGroupRequest `json:"sub_groups,omitempty" validate:"dive"`
	Addresses         []AddressRequest  `json:"addresses,omitempty" validate:"dive"`
}

func (r CreateListRequest) Domain() domain.DistributionList {
	l := domain.DistributionList{Name: r.Name, AddressesEveryone: r.AddressesEveryone}
	for _, g := range r.SubGroups {
		l.SubGroups = append(l.SubGroups, domain.SubGroupRef{Kind: domain.SubGroupKind(g.Kind), Id: g.Id})
	}
	for _, a := range r.Addresses {
		l.Addresses = append(l.Addresses, domain.ListAddress{Address: a.Address, IsDefault: a.IsDefault})
	}
	return l
}

type SetDefaultAddressRequest struct {
	Address string `json:"address" validate:"required,email"`
}

// Response DTOs

type ListResponse struct {
	Id                domain.ListId     `json:"id"`
	Name              domain.ListName   `json:"name"`
	AddressesEveryone bool              `json:"addresses_everyone"`
	SubGroups         []SubGroupRequest `json:"sub_groups"`
	Addresses         []AddressRequest  `json:"addresses"`
	CreatedAt         time.Time         `json:"created_at"`
	LastUpdated       time.Time         `json:"last_updated"`
}

func NewListResponse(l domain.DistributionList) ListResponse {
	resp := ListResponse{
		Id:                l.Id,
		Name:              l.Name,
		AddressesEveryone: l.AddressesEveryone,
		SubGroups:         make([]SubGroupRequest, 0, len(l.SubGroups)),
		Addresses:         make([]AddressRequest, 0, len(l.Addresses)),
		CreatedAt:         l.CreatedAt,
		LastUpdated:       l.LastUpdated,
	}
	for _, g := range l.SubGroups {
		resp.SubGroups = append(resp.SubGroups, SubGroupRequest{Kind: string(g.Kind), Id: g.Id})
	}
	for _, a := range l.Addresses {
		resp.Addresses = append(resp.Addresses, AddressRequest{Address: a.Address, IsDefault: a.IsDefault})
	}
	return resp
}

type ListListResponse struct {
	Lists []ListResponse `json:"lists"`
}

type CreateListResponse struct {
	Id domain.ListId `json:"id"`
}

type MembersResponse struct {
	Members []domain.UserId `json:"members"`
}
