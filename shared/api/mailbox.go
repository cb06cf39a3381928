package api

import "github.com/Pack144/packman-sub000/shared/domain"

type MailboxResponse struct {
	Mailbox  domain.Mailbox          `json:"mailbox"`
	Messages []domain.MessageSummary `json:"messages"`
}

type MailboxForResponse struct {
	Mailbox domain.Mailbox `json:"mailbox"`
}

type CountsResponse struct {
	Counts domain.MailboxCounts `json:"counts"`
}

type FlushResponse struct {
	Pending    int      `json:"pending"`
	Sent       int      `json:"sent"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	Emails     int      `json:"emails"`
	Delivered  int      `json:"delivered"`
	DurationMs int64    `json:"duration_ms"`
	Errors     []string `json:"errors,omitempty"`
}
