package domain

import "github.com/google/uuid"

type (
	Email   = string
	UserId  = int64
	ListId  = int64
	FileRef = string // opaque reference understood by the attachment store

	MessageId = uuid.UUID
	ThreadId  = uuid.UUID

	ListName = string
	Subject  = string
)
