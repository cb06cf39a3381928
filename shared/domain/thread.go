package domain

import "time"

// Thread groups a message with its reply chain.
type Thread struct {
	Id        ThreadId
	CreatedAt time.Time
}
