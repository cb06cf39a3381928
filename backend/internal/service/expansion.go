package service

import (
	"context"
	"errors"
	"fmt"

	internal_errors "github.com/Pack144/packman-sub000/backend/internal/errors"
	"github.com/Pack144/packman-sub000/shared/domain"
	"github.com/Pack144/packman-sub000/shared/logger"
	"github.com/Pack144/packman-sub000/shared/middleware/metrics"
)

type RecipientStorage interface {
	CreateRecipient(ctx context.Context, c domain.RecipientCopy) error
	MergeRecipient(ctx context.Context, msgId domain.MessageId, userId domain.UserId, d domain.Delivery, source *domain.ListRef) (domain.MergeResult, error)
	GetRecipient(ctx context.Context, msgId domain.MessageId, userId domain.UserId) (domain.RecipientCopy, error)
	ListRecipients(ctx context.Context, msgId domain.MessageId) ([]domain.RecipientCopy, error)
	CountRecipients(ctx context.Context, msgId domain.MessageId) (int, error)
	UpdateRecipientState(ctx context.Context, msgId domain.MessageId, userId domain.UserId, fn func(*domain.RecipientCopy) error) (domain.RecipientCopy, error)
}

// MemberResolver is the part of DistributionService expansion needs.
type MemberResolver interface {
	ResolveMembers(ctx context.Context, list domain.DistributionList) ([]domain.UserId, error)
}

// ExpansionStats summarizes one expansion pass.
type ExpansionStats struct {
	Lists    int
	Members  int
	Created  int
	Merged   int
	Promoted int
}

// Expander turns distribution attachments into recipient copies. It never
// checks for an existing copy first: it creates, and falls back to a merge
// when the pair already exists, so list membership changing between a check
// and an insert cannot produce a second copy.
type Expander struct {
	recipients RecipientStorage
	members    MemberResolver
}

func NewExpander(recipients RecipientStorage, members MemberResolver) *Expander {
	return &Expander{recipients: recipients, members: members}
}

// Expand materializes every distribution of a message. Lists are processed
// To first, then by name. Running it twice yields the same copies.
func (e *Expander) Expand(ctx context.Context, msgId domain.MessageId, ds []domain.Distribution) (ExpansionStats, error) {
	ordered := make([]domain.Distribution, len(ds))
	copy(ordered, ds)
	domain.SortDistributions(ordered)

	var stats ExpansionStats
	for _, d := range ordered {
		members, err := e.members.ResolveMembers(ctx, d.List)
		if err != nil {
			return stats, fmt.Errorf("failed to resolve members of %q: %w", d.List.Name, err)
		}
		stats.Lists++
		stats.Members += len(members)

		source := d.List.Ref()
		for _, userId := range members {
			c := domain.RecipientCopy{
				MessageId:        msgId,
				Recipient:        domain.User{Id: userId},
				Delivery:         d.Delivery,
				FromDistribution: true,
				SourceLists:      []domain.ListRef{source},
			}
			created, res, err := e.createOrMerge(ctx, c, &source)
			if err != nil {
				return stats, err
			}
			stats.record(created, res)
		}
	}

	logger.Log.Debug("expanded distributions",
		"message_id", msgId, "lists", stats.Lists, "members", stats.Members,
		"created", stats.Created, "merged", stats.Merged, "promoted", stats.Promoted)
	return stats, nil
}

// AddDirect seeds a recipient chosen by the author. Adding the same person
// again can only raise their strength.
func (e *Expander) AddDirect(ctx context.Context, msgId domain.MessageId, userId domain.UserId, d domain.Delivery) (bool, domain.MergeResult, error) {
	c := domain.RecipientCopy{
		MessageId: msgId,
		Recipient: domain.User{Id: userId},
		Delivery:  d,
	}
	return e.createOrMerge(ctx, c, nil)
}

func (e *Expander) createOrMerge(ctx context.Context, c domain.RecipientCopy, source *domain.ListRef) (bool, domain.MergeResult, error) {
	err := e.recipients.CreateRecipient(ctx, c)
	if err == nil {
		return true, domain.MergeResult{}, nil
	}
	if !errors.Is(err, internal_errors.DuplicateRecipient) {
		return false, domain.MergeResult{}, fmt.Errorf("failed to create recipient %d: %w", c.Recipient.Id, err)
	}

	res, err := e.recipients.MergeRecipient(ctx, c.MessageId, c.Recipient.Id, c.Delivery, source)
	if err != nil {
		return false, domain.MergeResult{}, fmt.Errorf("failed to merge recipient %d: %w", c.Recipient.Id, err)
	}
	return false, res, nil
}

func (s *ExpansionStats) record(created bool, res domain.MergeResult) {
	switch {
	case created:
		s.Created++
		metrics.RecipientCopies.WithLabelValues("created").Inc()
	default:
		s.Merged++
		metrics.RecipientCopies.WithLabelValues("merged").Inc()
		if res.Promoted {
			s.Promoted++
			metrics.RecipientCopies.WithLabelValues("promoted").Inc()
		}
	}
}
