package domain

import (
	"fmt"
	"strings"
	"time"
)

// ListSettings is the process-wide list configuration singleton.
type ListSettings struct {
	ListId        string `validate:"required,max=100"`
	DisplayName   string `validate:"max=100"`
	FromName      string `validate:"max=40"`
	FromEmail     Email  `validate:"omitempty,email"`
	SubjectPrefix string `validate:"max=20"`
	LastUpdated   time.Time
}

// ListIdHeader renders the List-Id header value.
func (s *ListSettings) ListIdHeader() string {
	if s.ListId == "" {
		return ""
	}
	if s.DisplayName != "" {
		return fmt.Sprintf("<%s> %s", s.ListId, s.DisplayName)
	}
	return fmt.Sprintf("<%s>", s.ListId)
}

// PrefixSubject renders "[prefix] subject", or the subject unchanged when
// no prefix is configured.
func (s *ListSettings) PrefixSubject(subject string) string {
	prefix := strings.Trim(strings.TrimSpace(s.SubjectPrefix), "[]")
	if prefix == "" {
		return subject
	}
	return fmt.Sprintf("[%s] %s", prefix, subject)
}
