package api

import (
	"time"

	"github.com/Pack144/packman-sub000/shared/domain"
)

// Request DTOs

type CreateMessageRequest struct {
	AuthorId domain.UserId     `json:"author_id" validate:"required"`
	Subject  string            `json:"subject" validate:"required,max=150"`
	Body     string            `json:"body"`
	ParentId *domain.MessageId `json:"parent_id,omitempty"`
}

type UpdateDraftRequest struct {
	Subject string `json:"subject" validate:"required,max=150"`
	Body    string `json:"body"`
}

type AddRecipientRequest struct {
	UserId   domain.UserId `json:"user_id" validate:"required"`
	Delivery string        `json:"delivery" validate:"required,oneof=to cc"`
}

type AttachDistributionRequest struct {
	ListId   domain.ListId `json:"list_id" validate:"required"`
	Delivery string        `json:"delivery" validate:"required,oneof=to cc"`
}

// Response DTOs

type UserResponse struct {
	Id          domain.UserId `json:"id"`
	DisplayName string        `json:"display_name,omitempty"`
	Email       domain.Email  `json:"email"`
}

func NewUserResponse(u domain.User) UserResponse {
	return UserResponse{Id: u.Id, DisplayName: u.DisplayName, Email: u.Email}
}

type MessageResponse struct {
	Id              domain.MessageId  `json:"id"`
	ThreadId        domain.ThreadId   `json:"thread_id"`
	ParentId        *domain.MessageId `json:"parent_id,omitempty"`
	Author          UserResponse      `json:"author"`
	Subject         domain.Subject    `json:"subject"`
	Body            string            `json:"body"`
	Attachments     []domain.FileRef  `json:"attachments"`
	DateSent        *time.Time        `json:"date_sent,omitempty"`
	SendRequestedAt *time.Time        `json:"send_requested_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	LastUpdated     time.Time         `json:"last_updated"`
}

func NewMessageResponse(m domain.Message) MessageResponse {
	attachments := m.Attachments
	if attachments == nil {
		attachments = []domain.FileRef{}
	}
	return MessageResponse{
		Id:              m.Id,
		ThreadId:        m.ThreadId,
		ParentId:        m.ParentId,
		Author:          NewUserResponse(m.Author),
		Subject:         m.Subject,
		Body:            m.Body,
		Attachments:     attachments,
		DateSent:        m.DateSent,
		SendRequestedAt: m.SendRequestedAt,
		CreatedAt:       m.CreatedAt,
		LastUpdated:     m.LastUpdated,
	}
}

type RecipientResponse struct {
	User         UserResponse    `json:"user"`
	Delivery     domain.Delivery `json:"delivery"`
	Via          []string        `json:"via"`
	DateReceived time.Time       `json:"date_received"`
	Read         bool            `json:"read"`
}

type RecipientListResponse struct {
	Recipients []RecipientResponse `json:"recipients"`
}

func NewRecipientListResponse(cs []domain.RecipientCopy) RecipientListResponse {
	resp := RecipientListResponse{Recipients: make([]RecipientResponse, 0, len(cs))}
	for i := range cs {
		c := &cs[i]
		resp.Recipients = append(resp.Recipients, RecipientResponse{
			User:         NewUserResponse(c.Recipient),
			Delivery:     c.Delivery,
			Via:          c.Via(),
			DateReceived: c.DateReceived,
			Read:         c.IsRead(),
		})
	}
	return resp
}

type AttachmentResponse struct {
	Ref domain.FileRef `json:"ref"`
}

type SendResponse struct {
	Recipients int `json:"recipients"`
	Delivered  int `json:"delivered"`
	Created    int `json:"created"`
	Promoted   int `json:"promoted"`
}
