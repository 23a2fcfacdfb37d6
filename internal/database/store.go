package database

import (
	"context"
	"time"

	"pillscare/internal/models"

	"github.com/google/uuid"
)

// MessageStore persists direct messages and their read state.
type MessageStore interface {
	// AppendMessage stores msg and returns it with its insertion sequence
	// number filled in. A nil ID is replaced with a fresh one.
	AppendMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	// QueryMessagesBetween returns the conversation of the unordered pair
	// {a, b}, ascending by (SentAt, Seq).
	QueryMessagesBetween(ctx context.Context, a, b uuid.UUID) ([]*models.Message, error)
	// QueryMessagesForUser returns every message user sent or received,
	// ascending by (SentAt, Seq).
	QueryMessagesForUser(ctx context.Context, user uuid.UUID) ([]*models.Message, error)
	// SetRead marks every unread sender -> receiver message read and
	// returns how many changed.
	SetRead(ctx context.Context, sender, receiver uuid.UUID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, recipient uuid.UUID) (int64, error)
}

// ReminderStore persists medicine reminders. Reminders are never deleted.
type ReminderStore interface {
	UpsertReminder(ctx context.Context, r *models.Reminder) error
	GetReminder(ctx context.Context, id uuid.UUID) (*models.Reminder, error)
	ListActiveReminders(ctx context.Context, owner uuid.UUID) ([]*models.Reminder, error)
	DeactivateReminder(ctx context.Context, id uuid.UUID) error
}

type ChatLogStore interface {
	LogChatTurn(ctx context.Context, turn *models.ChatTurn) error
}

type AlertStore interface {
	SaveEmergencyAlert(ctx context.Context, alert *models.EmergencyAlert) error
}

type PatientStore interface {
	UpsertPatientContact(ctx context.Context, c *models.PatientContact) error
	GetPatientContact(ctx context.Context, userID uuid.UUID) (*models.PatientContact, error)
}

// Store is everything the engine needs from persistence. All driver
// failures come back as utils.ErrStoreUnavailable.
type Store interface {
	MessageStore
	ReminderStore
	ChatLogStore
	AlertStore
	PatientStore
	Close(ctx context.Context) error
}
