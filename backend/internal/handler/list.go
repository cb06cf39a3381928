package handler

import (
	"net/http"

	"github.com/Pack144/packman-sub000/shared/api"
	"github.com/Pack144/packman-sub000/shared/utils"
)

func (h *Handler) CreateList(w http.ResponseWriter, r *http.Request) {
	var body api.CreateListRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		writeError(w, err)
		return
	}

	id, err := h.lists.Create(r.Context(), body.Domain())
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, api.CreateListResponse{Id: id})
}

func (h *Handler) GetLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.lists.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := api.ListListResponse{Lists: make([]api.ListResponse, 0, len(lists))}
	for _, l := range lists {
		resp.Lists = append(resp.Lists, api.NewListResponse(l))
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetList(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "list")
	if err != nil {
		writeError(w, err)
		return
	}
	l, err := h.lists.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.NewListResponse(l))
}

func (h *Handler) DeleteList(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "list")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.lists.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddListAddress(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "list")
	if err != nil {
		writeError(w, err)
		return
	}
	var body api.AddressRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		writeError(w, err)
		return
	}

	l, err := h.lists.AddAddress(r.Context(), id, body.Address, body.IsDefault)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.NewListResponse(l))
}

func (h *Handler) SetDefaultListAddress(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "list")
	if err != nil {
		writeError(w, err)
		return
	}
	var body api.SetDefaultAddressRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		writeError(w, err)
		return
	}

	l, err := h.lists.SetDefaultAddress(r.Context(), id, body.Address)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.NewListResponse(l))
}

// GetListMembers shows who the list resolves to right now.
func (h *Handler) GetListMembers(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "list")
	if err != nil {
		writeError(w, err)
		return
	}
	l, err := h.lists.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	members, err := h.lists.ResolveMembers(r.Context(), l)
	if err != nil {
		writeError(w, err)
		return
	}
	if members == nil {
		members = []int64{}
	}
	utils.WriteJSON(w, http.StatusOK, api.MembersResponse{Members: members})
}
