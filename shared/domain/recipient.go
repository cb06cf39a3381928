package domain

import (
	"slices"
	"time"
)

// DirectLabel marks a copy addressed by the author rather than a list.
const DirectLabel = "direct"

// RecipientCopy is one recipient's mutable copy of a message. There is at
// most one per (message, recipient).
type RecipientCopy struct {
	MessageId        MessageId
	Recipient        User
	Delivery         Delivery
	FromDistribution bool
	SourceLists      []ListRef // every list that contributed this recipient
	DateReceived     time.Time
	DateRead         *time.Time
	DateArchived     *time.Time
	DateDeleted      *time.Time
}

// MergeResult reports what a merge changed on an existing copy.
type MergeResult struct {
	Promoted    bool
	SourceAdded bool
}

// Merge folds another addressing path into an existing copy. Strength is
// only ever raised. The source list is recorded on copies that came from a
// distribution; direct copies keep their audit trail empty.
func (c *RecipientCopy) Merge(d Delivery, source *ListRef) MergeResult {
	var res MergeResult
	if d.Stronger(c.Delivery) {
		c.Delivery = d
		res.Promoted = true
	}
	if source != nil && c.FromDistribution && !c.HasSource(source.Id) {
		c.SourceLists = append(c.SourceLists, *source)
		res.SourceAdded = true
	}
	return res
}

func (c *RecipientCopy) HasSource(id ListId) bool {
	return slices.ContainsFunc(c.SourceLists, func(l ListRef) bool { return l.Id == id })
}

// SourceNames returns the contributing list names, sorted.
func (c *RecipientCopy) SourceNames() []string {
	names := make([]string, 0, len(c.SourceLists))
	for _, l := range c.SourceLists {
		names = append(names, l.Name)
	}
	slices.Sort(names)
	return names
}

// Via lists every addressing path of this copy: the contributing lists plus
// the direct label when the author addressed the recipient.
func (c *RecipientCopy) Via() []string {
	via := c.SourceNames()
	if !c.FromDistribution {
		via = append([]string{DirectLabel}, via...)
	}
	return via
}

func (c *RecipientCopy) IsRead() bool { return c.DateRead != nil }
func (c *RecipientCopy) IsArchived() bool { return c.DateArchived != nil }
func (c *RecipientCopy) IsDeleted() bool { return c.DateDeleted != nil }

// Lifecycle transitions. Each one is idempotent, and archived/deleted
// never hold at the same time.

func (c *RecipientCopy) MarkRead(now time.Time) {
	if c.DateRead == nil {
		c.DateRead = &now
	}
}

func (c *RecipientCopy) MarkUnread() {
	c.DateRead = nil
}

func (c *RecipientCopy) MarkArchived(now time.Time) {
	if c.DateArchived == nil {
		c.DateArchived = &now
	}
	c.DateDeleted = nil
}

func (c *RecipientCopy) MarkUnarchived() {
	c.DateArchived = nil
	c.DateDeleted = nil
}

func (c *RecipientCopy) MarkDeleted(now time.Time) {
	if c.DateDeleted == nil {
		c.DateDeleted = &now
	}
	c.DateArchived = nil
}

func (c *RecipientCopy) MarkUndeleted() {
	c.DateDeleted = nil
	c.DateArchived = nil
}

// Transition names accepted by ApplyTransition.
type Transition string

const (
	TransitionRead      Transition = "read"
	TransitionUnread    Transition = "unread"
	TransitionArchive   Transition = "archive"
	TransitionUnarchive Transition = "unarchive"
	TransitionDelete    Transition = "delete"
	TransitionUndelete  Transition = "undelete"
)

// ApplyTransition dispatches a named transition. It reports false for an
// unknown name and leaves the copy untouched.
func (c *RecipientCopy) ApplyTransition(t Transition, now time.Time) bool {
	switch t {
	case TransitionRead:
		c.MarkRead(now)
	case TransitionUnread:
		c.MarkUnread()
	case TransitionArchive:
		c.MarkArchived(now)
	case TransitionUnarchive:
		c.MarkUnarchived()
	case TransitionDelete:
		c.MarkDeleted(now)
	case TransitionUndelete:
		c.MarkUndeleted()
	default:
		return false
	}
	return true
}
