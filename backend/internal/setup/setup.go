package setup

import (
	"context"
	"fmt"
	"net/mail"
	"os"
	"time"

	"github.com/Pack144/packman-sub000/backend/internal/handler"
	"github.com/Pack144/packman-sub000/backend/internal/render"
	"github.com/Pack144/packman-sub000/backend/internal/service"
	"github.com/Pack144/packman-sub000/backend/internal/storage/fs"
	"github.com/Pack144/packman-sub000/backend/internal/storage/pg"
	"github.com/Pack144/packman-sub000/backend/internal/transport"
	"github.com/Pack144/packman-sub000/shared/config"
	"github.com/Pack144/packman-sub000/shared/logger"
)

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config   *config.Config
	Storage  *pg.Storage
	Handler  *handler.Handler
	Message  *service.Message
	Outbox   *service.Outbox
	Settings *service.SettingsCache
}

// SetupDependencies initializes all dependencies required for the application.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	storage, err := pg.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	files, err := fs.New(cfg.Public.Mail.AttachmentsRoot)
	if err != nil {
		storage.Cleanup()
		return nil, fmt.Errorf("failed to open attachment store: %w", err)
	}

	tr, err := NewTransport(ctx, cfg, files)
	if err != nil {
		storage.Cleanup()
		return nil, err
	}

	renderer, err := render.New()
	if err != nil {
		storage.Cleanup()
		return nil, err
	}

	defaultFrom, err := mail.ParseAddress(cfg.Public.Mail.DefaultFrom)
	if err != nil {
		storage.Cleanup()
		return nil, fmt.Errorf("invalid mail.default_from %q: %w", cfg.Public.Mail.DefaultFrom, err)
	}

	site := cfg.Public.Site
	settings := service.NewSettingsCache(storage)
	builder := service.NewDeliveryBuilder(renderer, settings, service.SiteConfig{
		Name:            site.Name,
		Domain:          site.Domain,
		Protocol:        site.Protocol,
		UnsubscribePath: site.UnsubscribePath,
		DefaultFrom:     *defaultFrom,
	})

	lists := service.NewDistribution(storage, storage)
	expander := service.NewExpander(storage, lists)
	message := service.NewMessage(storage, storage, expander, builder, tr).WithAttachments(files)
	mailbox := service.NewMailbox(storage, storage, storage)
	outbox := service.NewOutbox(storage, message, service.OutboxConfig{
		Cron:        cfg.Public.Outbox.Cron,
		Concurrency: cfg.Public.Outbox.Concurrency,
		BatchSize:   cfg.Public.Outbox.BatchLimit,
	})

	h := handler.New(lists, message, mailbox, outbox, settings, storage, cfg)

	return &Dependencies{
		Config:   cfg,
		Storage:  storage,
		Handler:  h,
		Message:  message,
		Outbox:   outbox,
		Settings: settings,
	}, nil
}

// NewTransport picks the outbound adapter named by mail.transport.
func NewTransport(ctx context.Context, cfg *config.Config, files transport.AttachmentStore) (transport.Transport, error) {
	m := cfg.Public.Mail
	logger.Log.Info("configured mail transport", "transport", m.Transport)

	switch m.Transport {
	case "smtp":
		return transport.NewSMTP(transport.SMTPConfig{
			Server:   m.SMTP.Server,
			Port:     m.SMTP.Port,
			Username: m.SMTP.Username,
			Password: cfg.Private.SMTPPassword,
			Timeout:  time.Duration(m.SMTP.Timeout) * time.Second,
		}, files), nil
	case "ses":
		return transport.NewSES(ctx, transport.SESConfig{
			Region:          m.SES.Region,
			AccessKeyID:     cfg.Private.SESAccessKeyID,
			SecretAccessKey: cfg.Private.SESSecretAccessKey,
		}, files)
	case "mbox":
		return transport.NewMbox(m.MboxPath, files), nil
	case "stdout":
		return transport.NewStdout(os.Stdout, files), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", m.Transport)
	}
}
