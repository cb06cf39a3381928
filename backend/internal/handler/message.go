package handler

import (
	"net/http"

	"github.com/Pack144/packman-sub000/shared/api"
	"github.com/Pack144/packman-sub000/shared/domain"
	shared_errors "github.com/Pack144/packman-sub000/shared/errors"
	"github.com/Pack144/packman-sub000/shared/utils"
)

const maxAttachmentSize = 25 << 20

func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var body api.CreateMessageRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.message.Save(r.Context(), domain.MessageCreationData{
		Author:   domain.User{Id: body.AuthorId},
		Subject:  body.Subject,
		Body:     body.Body,
		ParentId: body.ParentId,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, api.NewMessageResponse(msg))
}

func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id, err := messageIdParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	msg, err := h.message.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.NewMessageResponse(msg))
}

func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	id, err := messageIdParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body api.UpdateDraftRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := h.message.UpdateDraft(r.Context(), id, body.Subject, body.Body); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	id, err := messageIdParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.message.DeleteDraft(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddRecipient(w http.ResponseWriter, r *http.Request) {
	id, err := messageIdParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body api.AddRecipientRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := h.message.AddRecipient(r.Context(), id, body.UserId, domain.Delivery(body.Delivery)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AttachDistribution(w http.ResponseWriter, r *http.Request) {
	id, err := messageIdParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body api.AttachDistributionRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := h.message.AttachDistribution(r.Context(), id, body.ListId, domain.Delivery(body.Delivery)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadAttachment expects a multipart form with a single "file" part.
func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := messageIdParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAttachmentSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeError(w, shared_errors.BadRequest("attachment is too large or the form is invalid"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, shared_errors.BadRequest("missing file"))
		return
	}
	defer file.Close()
	if header.Size > maxAttachmentSize {
		writeError(w, shared_errors.BadRequest("attachment is too large"))
		return
	}

	ref, err := h.message.Upload(r.Context(), id, header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, api.AttachmentResponse{Ref: ref})
}

func (h *Handler) GetRecipients(w http.ResponseWriter, r *http.Request) {
	id, err := messageIdParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	copies, err := h.message.Recipients(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.NewRecipientListResponse(copies))
}

// QueueMessage asks the outbox to send the message on its next run.
func (h *Handler) QueueMessage(w http.ResponseWriter, r *http.Request) {
	id, err := messageIdParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.message.RequestSend(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, err := messageIdParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := h.message.Send(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.SendResponse{
		Recipients: stats.Total,
		Delivered:  stats.Delivered,
		Created:    stats.Expansion.Created,
		Promoted:   stats.Expansion.Promoted,
	})
}
