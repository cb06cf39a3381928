package handler

import (
	"net/http"

	"github.com/Pack144/packman-sub000/shared/api"
	"github.com/Pack144/packman-sub000/shared/domain"
	shared_errors "github.com/Pack144/packman-sub000/shared/errors"
	"github.com/Pack144/packman-sub000/shared/utils"
)

// FlushOutbox runs one outbox flush synchronously and reports the result.
func (h *Handler) FlushOutbox(w http.ResponseWriter, r *http.Request) {
	stats, err := h.outbox.FlushPendingSends(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.FlushResponse{
		Pending:    stats.Pending,
		Sent:       stats.Sent,
		Skipped:    stats.Skipped,
		Failed:     stats.Failed,
		Emails:     stats.Emails,
		Delivered:  stats.Delivered,
		DurationMs: stats.DurationMs,
		Errors:     stats.Errors,
	})
}

func (h *Handler) GetListSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Settings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if s == nil {
		writeError(w, shared_errors.NotFound("List settings"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.ListSettingsResponse{
		ListSettingsRequest: api.ListSettingsRequest{
			ListId:        s.ListId,
			DisplayName:   s.DisplayName,
			FromName:      s.FromName,
			FromEmail:     s.FromEmail,
			SubjectPrefix: s.SubjectPrefix,
		},
		LastUpdated: s.LastUpdated,
	})
}

func (h *Handler) PutListSettings(w http.ResponseWriter, r *http.Request) {
	var body api.ListSettingsRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		writeError(w, err)
		return
	}
	err := h.settings.Save(r.Context(), domain.ListSettings{
		ListId:        body.ListId,
		DisplayName:   body.DisplayName,
		FromName:      body.FromName,
		FromEmail:     body.FromEmail,
		SubjectPrefix: body.SubjectPrefix,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
