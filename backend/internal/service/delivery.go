package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/Pack144/packman-sub000/backend/internal/render"
	"github.com/Pack144/packman-sub000/backend/internal/transport"
	"github.com/Pack144/packman-sub000/shared/domain"
)

// Renderer renders a named template with a recipient context.
type Renderer interface {
	Render(key string, data any) (string, error)
}

// SiteConfig is the installation identity substituted into every email.
type SiteConfig struct {
	Name            string
	Domain          string
	Protocol        string
	UnsubscribePath string
	DefaultFrom     mail.Address
}

func (s SiteConfig) unsubscribeURL() string {
	return fmt.Sprintf("%s://%s%s", s.Protocol, s.Domain, s.UnsubscribePath)
}

// DeliveryBuilder personalizes one outbound email per recipient copy.
type DeliveryBuilder struct {
	renderer Renderer
	settings SettingsProvider
	site     SiteConfig
}

func NewDeliveryBuilder(renderer Renderer, settings SettingsProvider, site SiteConfig) *DeliveryBuilder {
	return &DeliveryBuilder{renderer: renderer, settings: settings, site: site}
}

// Build renders the emails for every copy of msg. Settings are read once
// for the whole batch.
func (b *DeliveryBuilder) Build(ctx context.Context, msg *domain.Message, copies []domain.RecipientCopy) ([]*transport.OutboundEmail, error) {
	settings, err := b.settings.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load list settings: %w", err)
	}

	emails := make([]*transport.OutboundEmail, 0, len(copies))
	for i := range copies {
		e, err := b.build(msg, &copies[i], settings)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, nil
}

func (b *DeliveryBuilder) build(msg *domain.Message, c *domain.RecipientCopy, settings *domain.ListSettings) (*transport.OutboundEmail, error) {
	to := c.Recipient.Address()
	via := c.Via()

	rc := render.Context{
		Site:      render.Site{Name: b.site.Name, Domain: b.site.Domain, Protocol: b.site.Protocol},
		Recipient: to.String(),
		Message:   msg,
		Via:       via,
	}
	if settings != nil {
		rc.UnsubscribeURL = b.site.unsubscribeURL()
	}

	text, err := b.renderer.Render(render.TextBody, rc)
	if err != nil {
		return nil, err
	}
	html, err := b.renderer.Render(render.HTMLBody, rc)
	if err != nil {
		return nil, err
	}

	e := &transport.OutboundEmail{
		MessageId:   msg.Id,
		From:        b.from(settings),
		To:          to,
		ReplyTo:     msg.Author.Address(),
		Subject:     msg.Subject,
		Text:        text,
		HTML:        html,
		Headers:     map[string]string{"X-Delivered-Via": strings.Join(via, ", ")},
		Attachments: msg.Attachments,
	}
	if settings != nil {
		e.Subject = settings.PrefixSubject(msg.Subject)
		if id := settings.ListIdHeader(); id != "" {
			e.Headers["List-Id"] = id
		}
		e.Headers["List-Unsubscribe"] = "<" + rc.UnsubscribeURL + ">"
	}
	return e, nil
}

// from picks the sender: the configured list name and address, the list
// address alone, or the installation default.
func (b *DeliveryBuilder) from(settings *domain.ListSettings) mail.Address {
	if settings == nil || settings.FromEmail == "" {
		return b.site.DefaultFrom
	}
	return mail.Address{Name: settings.FromName, Address: settings.FromEmail}
}
