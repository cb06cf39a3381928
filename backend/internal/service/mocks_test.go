package service

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	internal_errors "github.com/Pack144/packman-sub000/backend/internal/errors"
	"github.com/Pack144/packman-sub000/backend/internal/transport"
	"github.com/Pack144/packman-sub000/shared/domain"
	shared_errors "github.com/Pack144/packman-sub000/shared/errors"
)

type recipientKey struct {
	msg  domain.MessageId
	user domain.UserId
}

// memStore is an in-memory message and recipient store. Its create and merge
// follow the same contract as the postgres storage: create fails with
// DuplicateRecipient when the pair exists, merge runs under a lock.
type memStore struct {
	mu       sync.Mutex
	users    map[domain.UserId]domain.User
	messages map[domain.MessageId]*domain.Message
	dists    map[domain.MessageId][]domain.Distribution
	copies   map[recipientKey]*domain.RecipientCopy

	CreateRecipientFunc func(c domain.RecipientCopy) error
	MarkSentFunc        func(id domain.MessageId) error
}

func newMemStore(users ...domain.User) *memStore {
	s := &memStore{
		users:    map[domain.UserId]domain.User{},
		messages: map[domain.MessageId]*domain.Message{},
		dists:    map[domain.MessageId][]domain.Distribution{},
		copies:   map[recipientKey]*domain.RecipientCopy{},
	}
	for _, u := range users {
		s.users[u.Id] = u
	}
	return s
}

func cloneCopy(c *domain.RecipientCopy) domain.RecipientCopy {
	out := *c
	out.SourceLists = slices.Clone(c.SourceLists)
	return out
}

func (s *memStore) CreateMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.Id == uuid.Nil {
		msg.Id = uuid.New()
	}
	if msg.ParentId != nil {
		parent, ok := s.messages[*msg.ParentId]
		if !ok {
			return domain.Message{}, shared_errors.NotFound("Parent message")
		}
		msg.ThreadId = parent.ThreadId
	} else if !msg.HasThread() {
		msg.ThreadId = uuid.New()
	}
	if author, ok := s.users[msg.Author.Id]; ok {
		msg.Author = author
	}
	msg.CreatedAt = time.Now()
	s.messages[msg.Id] = &msg
	return msg, nil
}

func (s *memStore) GetMessage(ctx context.Context, id domain.MessageId) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return domain.Message{}, shared_errors.NotFound("Message")
	}
	return *m, nil
}

func (s *memStore) draft(id domain.MessageId) (*domain.Message, error) {
	m, ok := s.messages[id]
	if !ok {
		return nil, shared_errors.NotFound("Message")
	}
	if m.Sent() {
		return nil, internal_errors.AlreadySent
	}
	return m, nil
}

func (s *memStore) UpdateDraft(ctx context.Context, id domain.MessageId, subject domain.Subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.draft(id)
	if err != nil {
		return err
	}
	m.Subject, m.Body = subject, body
	return nil
}

func (s *memStore) DeleteDraft(ctx context.Context, id domain.MessageId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.draft(id); err != nil {
		return err
	}
	delete(s.messages, id)
	return nil
}

func (s *memStore) AddAttachment(ctx context.Context, id domain.MessageId, ref domain.FileRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.draft(id)
	if err != nil {
		return err
	}
	if !slices.Contains(m.Attachments, ref) {
		m.Attachments = append(m.Attachments, ref)
	}
	return nil
}

// attach stores a full distribution; AttachDistribution only knows the id.
func (s *memStore) attach(id domain.MessageId, list domain.DistributionList, d domain.Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dists[id] = append(s.dists[id], domain.Distribution{MessageId: id, List: list, Delivery: d})
}

func (s *memStore) AttachDistribution(ctx context.Context, id domain.MessageId, listId domain.ListId, d domain.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.draft(id); err != nil {
		return err
	}
	s.dists[id] = append(s.dists[id], domain.Distribution{MessageId: id, List: domain.DistributionList{Id: listId}, Delivery: d})
	return nil
}

func (s *memStore) GetDistributions(ctx context.Context, id domain.MessageId) ([]domain.Distribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds := slices.Clone(s.dists[id])
	domain.SortDistributions(ds)
	return ds, nil
}

func (s *memStore) RequestSend(ctx context.Context, id domain.MessageId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.draft(id)
	if err != nil {
		return err
	}
	if m.SendRequestedAt == nil {
		now := time.Now()
		m.SendRequestedAt = &now
	}
	return nil
}

func (s *memStore) MarkSent(ctx context.Context, id domain.MessageId, at time.Time) error {
	if s.MarkSentFunc != nil {
		if err := s.MarkSentFunc(id); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return shared_errors.NotFound("Message")
	}
	if m.Sent() {
		return internal_errors.AlreadySent
	}
	m.DateSent = &at
	m.SendRequestedAt = nil
	return nil
}

func (s *memStore) ListPendingSends(ctx context.Context, limit int) ([]domain.MessageId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []domain.MessageId
	for id, m := range s.messages {
		if m.SendRequestedAt != nil && !m.Sent() {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b domain.MessageId) int { return cmp.Compare(a.String(), b.String()) })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *memStore) CreateRecipient(ctx context.Context, c domain.RecipientCopy) error {
	if s.CreateRecipientFunc != nil {
		if err := s.CreateRecipientFunc(c); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recipientKey{c.MessageId, c.Recipient.Id}
	if _, ok := s.copies[key]; ok {
		return internal_errors.DuplicateRecipient
	}
	if u, ok := s.users[c.Recipient.Id]; ok {
		c.Recipient = u
	}
	if !c.FromDistribution {
		c.SourceLists = nil
	}
	c.DateReceived = time.Now()
	s.copies[key] = &c
	return nil
}

func (s *memStore) MergeRecipient(ctx context.Context, msgId domain.MessageId, userId domain.UserId, d domain.Delivery, source *domain.ListRef) (domain.MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.copies[recipientKey{msgId, userId}]
	if !ok {
		return domain.MergeResult{}, shared_errors.NotFound("Recipient")
	}
	return c.Merge(d, source), nil
}

func (s *memStore) GetRecipient(ctx context.Context, msgId domain.MessageId, userId domain.UserId) (domain.RecipientCopy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.copies[recipientKey{msgId, userId}]
	if !ok {
		return domain.RecipientCopy{}, shared_errors.NotFound("Recipient")
	}
	return cloneCopy(c), nil
}

func (s *memStore) ListRecipients(ctx context.Context, msgId domain.MessageId) ([]domain.RecipientCopy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RecipientCopy
	for k, c := range s.copies {
		if k.msg == msgId {
			out = append(out, cloneCopy(c))
		}
	}
	slices.SortFunc(out, func(a, b domain.RecipientCopy) int { return cmp.Compare(a.Recipient.Id, b.Recipient.Id) })
	return out, nil
}

func (s *memStore) CountRecipients(ctx context.Context, msgId domain.MessageId) (int, error) {
	cs, _ := s.ListRecipients(ctx, msgId)
	return len(cs), nil
}

func (s *memStore) UpdateRecipientState(ctx context.Context, msgId domain.MessageId, userId domain.UserId, fn func(*domain.RecipientCopy) error) (domain.RecipientCopy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.copies[recipientKey{msgId, userId}]
	if !ok {
		return domain.RecipientCopy{}, shared_errors.NotFound("Recipient")
	}
	updated := cloneCopy(c)
	if err := fn(&updated); err != nil {
		return domain.RecipientCopy{}, err
	}
	*c = updated
	return cloneCopy(c), nil
}

// MockMembers resolves list members from a fixed table.
type MockMembers struct {
	members            map[domain.ListId][]domain.UserId
	ResolveMembersFunc func(list domain.DistributionList) ([]domain.UserId, error)
}

func (m *MockMembers) ResolveMembers(ctx context.Context, list domain.DistributionList) ([]domain.UserId, error) {
	if m.ResolveMembersFunc != nil {
		return m.ResolveMembersFunc(list)
	}
	return m.members[list.Id], nil
}

// MockTransport records every email it is handed. Addresses in reject are
// refused one by one, the way a mail server refuses a single recipient.
type MockTransport struct {
	mu       sync.Mutex
	opened   int
	closed   int
	sent     []*transport.OutboundEmail
	reject   map[string]bool
	OpenFunc func() error
}

func (m *MockTransport) Open(ctx context.Context) (transport.Connection, error) {
	if m.OpenFunc != nil {
		if err := m.OpenFunc(); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	m.opened++
	m.mu.Unlock()
	return &mockConnection{t: m}, nil
}

func (m *MockTransport) emails() []*transport.OutboundEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sent)
}

type mockConnection struct {
	t *MockTransport
}

func (c *mockConnection) SendBatch(ctx context.Context, emails []*transport.OutboundEmail) (int, error) {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	n := 0
	for _, e := range emails {
		if c.t.reject[e.To.Address] {
			continue
		}
		c.t.sent = append(c.t.sent, e)
		n++
	}
	return n, nil
}

func (c *mockConnection) Close() error {
	c.t.mu.Lock()
	c.t.closed++
	c.t.mu.Unlock()
	return nil
}
