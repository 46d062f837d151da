// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"time"
)

type MessageKind string

const (
	KindSystem MessageKind = "system"
	KindUser   MessageKind = "user"
)

// Message represents an immutable chat event.
// IDs are monotonically unique for the lifetime of the process.
type Message struct {
	ID           int64       `json:"id"`
	Author       string      `json:"author"`
	ConnectionID string      `json:"-"`
	Body         string      `json:"body"`
	AuthorRole   Role        `json:"authorRole"`
	Lang         string      `json:"lang,omitempty"`
	SentAt       time.Time   `json:"sentAt"`
	Kind         MessageKind `json:"kind"`
}

// NewSystemMessage builds a server-authored notice. System messages carry
// no connection id and are exempt from moderation and rate limiting.
func NewSystemMessage(body string, at time.Time) Message {
	return Message{
		Author: "system",
		Body:   body,
		Kind:   KindSystem,
		SentAt: at,
	}
}
