package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Pack144/packman-sub000/shared/api"
	"github.com/Pack144/packman-sub000/shared/domain"
	"github.com/Pack144/packman-sub000/shared/utils"
)

func (h *Handler) GetMailbox(w http.ResponseWriter, r *http.Request) {
	userId, err := int64Param(r, "user")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	box := domain.Mailbox(chi.URLParam(r, "mailbox"))
	msgs, err := h.mailbox.List(r.Context(), userId, box, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []domain.MessageSummary{}
	}
	utils.WriteJSON(w, http.StatusOK, api.MailboxResponse{Mailbox: box, Messages: msgs})
}

func (h *Handler) GetMailboxCounts(w http.ResponseWriter, r *http.Request) {
	userId, err := int64Param(r, "user")
	if err != nil {
		writeError(w, err)
		return
	}
	counts, err := h.mailbox.Counts(r.Context(), userId)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.CountsResponse{Counts: counts})
}

func (h *Handler) GetMessageMailbox(w http.ResponseWriter, r *http.Request) {
	userId, err := int64Param(r, "user")
	if err != nil {
		writeError(w, err)
		return
	}
	msgId, err := messageIdParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	box, err := h.mailbox.MailboxFor(r.Context(), msgId, userId)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.MailboxForResponse{Mailbox: box})
}

// TransitionMessage applies read, unread, archive, unarchive, delete or
// undelete to the user's copy.
func (h *Handler) TransitionMessage(w http.ResponseWriter, r *http.Request) {
	userId, err := int64Param(r, "user")
	if err != nil {
		writeError(w, err)
		return
	}
	msgId, err := messageIdParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	t := domain.Transition(chi.URLParam(r, "transition"))
	box, err := h.mailbox.Transition(r.Context(), msgId, userId, t)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.MailboxForResponse{Mailbox: box})
}
