package domain

import (
	"fmt"
	"strings"
	"time"
)

// for debug
func (m *Message) String() string {
	sent := "draft"
	if m.DateSent != nil {
		sent = m.DateSent.Format(time.StampMilli)
	}
	return fmt.Sprintf("[id:%s, author:%d, subject:%q, thread:%s, sent:%s, attachments:[%s]]",
		m.Id, m.Author.Id, m.Subject, m.ThreadId, sent, strings.Join(m.Attachments, ", "))
}

func (c *RecipientCopy) String() string {
	return fmt.Sprintf("[message:%s, recipient:%d, delivery:%s, from_distribution:%t, via:%v]",
		c.MessageId, c.Recipient.Id, c.Delivery, c.FromDistribution, c.SourceNames())
}
