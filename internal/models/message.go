package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single direct message between two users. Only Read and
// ReadAt ever change after creation, and Read only goes false -> true.
type Message struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Seq        int64      `json:"seq" db:"seq"`
	SenderID   uuid.UUID  `json:"senderId" db:"sender_id"`
	ReceiverID uuid.UUID  `json:"receiverId" db:"receiver_id"`
	Body       string     `json:"body" db:"body"`
	SentAt     time.Time  `json:"sentAt" db:"sent_at"`
	Read       bool       `json:"read" db:"is_read"`
	ReadAt     *time.Time `json:"readAt,omitempty" db:"read_at"`
}

// Clone returns a copy that shares nothing with m.
func (m *Message) Clone() *Message {
	c := *m
	if m.ReadAt != nil {
		t := *m.ReadAt
		c.ReadAt = &t
	}
	return &c
}

// Less orders messages by SentAt, then by store insertion order.
func (m *Message) Less(o *Message) bool {
	if m.SentAt.Equal(o.SentAt) {
		return m.Seq < o.Seq
	}
	return m.SentAt.Before(o.SentAt)
}

// Partner returns the other participant from user's point of view.
func (m *Message) Partner(user uuid.UUID) uuid.UUID {
	if m.SenderID == user {
		return m.ReceiverID
	}
	return m.SenderID
}

// ThreadSummary is one row of an inbox: a conversation partner with the
// latest activity and how many of their messages are still unread.
type ThreadSummary struct {
	PartnerID    uuid.UUID `json:"partnerId"`
	LastMessage  *Message  `json:"lastMessage"`
	LastActivity time.Time `json:"lastActivity"`
	Unread       int64     `json:"unread"`
}
