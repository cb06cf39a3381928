package domain

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Delivery is the addressing strength of a recipient. Cc < To.
type Delivery string

const (
	DeliveryTo Delivery = "to"
	DeliveryCc Delivery = "cc"
)

func (d Delivery) rank() int {
	switch d {
	case DeliveryTo:
		return 2
	case DeliveryCc:
		return 1
	default:
		return 0
	}
}

func (d Delivery) Valid() bool {
	return d.rank() > 0
}

// Stronger reports whether d outranks other.
func (d Delivery) Stronger(other Delivery) bool {
	return d.rank() > other.rank()
}

// Strongest returns the higher of two strengths.
func Strongest(a, b Delivery) Delivery {
	if b.Stronger(a) {
		return b
	}
	return a
}

// to iterate thru layers: handler -> service -> storage
type MessageCreationData struct {
	Author      User
	Subject     Subject `validate:"required,max=150"`
	Body        string
	ParentId    *MessageId
	Attachments []FileRef
}

type Message struct {
	Id              MessageId
	Author          User
	Subject         Subject
	Body            string
	ThreadId        ThreadId
	ParentId        *MessageId
	DateSent        *time.Time
	SendRequestedAt *time.Time
	Attachments     []FileRef
	CreatedAt       time.Time
	LastUpdated     time.Time
}

func (m *Message) Sent() bool {
	return m.DateSent != nil
}

func (m *Message) HasThread() bool {
	return m.ThreadId != uuid.Nil
}

// Distribution is a distribution list attached to a message with the
// strength requested for its members.
type Distribution struct {
	MessageId MessageId
	List      DistributionList
	Delivery  Delivery
}

// SortDistributions gives expansion a stable order: To lists before Cc
// lists, then by list name.
func SortDistributions(ds []Distribution) {
	slices.SortStableFunc(ds, func(a, b Distribution) int {
		if a.Delivery != b.Delivery {
			return cmp.Compare(b.Delivery.rank(), a.Delivery.rank())
		}
		return cmp.Compare(a.List.Name, b.List.Name)
	})
}
