package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	internal_errors "github.com/Pack144/packman-sub000/backend/internal/errors"
	"github.com/Pack144/packman-sub000/backend/internal/service"
	"github.com/Pack144/packman-sub000/shared/config"
	"github.com/Pack144/packman-sub000/shared/domain"
	shared_errors "github.com/Pack144/packman-sub000/shared/errors"
	"github.com/Pack144/packman-sub000/shared/utils"
)

// HealthChecker reports whether the database is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Flusher interface {
	FlushPendingSends(ctx context.Context) (service.FlushStats, error)
}

type SettingsManager interface {
	Settings(ctx context.Context) (*domain.ListSettings, error)
	Save(ctx context.Context, s domain.ListSettings) error
}

type Handler struct {
	lists    service.DistributionService
	message  service.MessageService
	mailbox  service.MailboxService
	outbox   Flusher
	settings SettingsManager
	health   HealthChecker
	cfg      *config.Config
}

func New(
	lists service.DistributionService,
	message service.MessageService,
	mailbox service.MailboxService,
	outbox Flusher,
	settings SettingsManager,
	health HealthChecker,
	cfg *config.Config,
) *Handler {
	return &Handler{
		lists:    lists,
		message:  message,
		mailbox:  mailbox,
		outbox:   outbox,
		settings: settings,
		health:   health,
		cfg:      cfg,
	}
}

// writeError maps the send guards onto HTTP statuses before handing off to
// the shared writer.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, internal_errors.AlreadySent):
		err = shared_errors.Conflict(err.Error())
	case errors.Is(err, internal_errors.NoRecipients):
		err = &shared_errors.ErrorWithStatusCode{Message: err.Error(), StatusCode: http.StatusUnprocessableEntity}
	case errors.Is(err, internal_errors.NotFound):
		err = shared_errors.NotFound("Resource")
	}
	utils.WriteErrorAndStatusCode(w, err)
}

func messageIdParam(r *http.Request) (domain.MessageId, error) {
	id, err := uuid.Parse(chi.URLParam(r, "message"))
	if err != nil {
		return uuid.Nil, shared_errors.BadRequest("invalid message id")
	}
	return id, nil
}

func int64Param(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, shared_errors.BadRequest("invalid " + name + ": must be a positive integer")
	}
	return v, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared_errors.BadRequest("invalid " + name + ": must be an integer")
	}
	return v, nil
}
