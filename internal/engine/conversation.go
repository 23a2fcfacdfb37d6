package engine

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"pillscare/internal/database"
	"pillscare/internal/models"
	"pillscare/internal/timeutil"
	"pillscare/internal/utils"

	"github.com/google/uuid"
)

// Publisher is told about message events after they are stored. It is
// optional; the live websocket hub implements it.
type Publisher interface {
	MessageSent(msg *models.Message, receiverUnread int64)
	MessagesRead(sender, receiver uuid.UUID, count, receiverUnread int64)
}

// ConversationManager implements two-party messaging with read tracking.
// Conversations are never stored; they are derived from the message log.
type ConversationManager struct {
	store     database.MessageStore
	clock     timeutil.Clock
	metrics   *utils.MetricsCollector
	logger    *slog.Logger
	publisher Publisher
}

func NewConversationManager(store database.MessageStore, clock timeutil.Clock, metrics *utils.MetricsCollector, logger *slog.Logger) *ConversationManager {
	return &ConversationManager{
		store:   store,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// SetPublisher attaches p. Call before serving traffic.
func (c *ConversationManager) SetPublisher(p Publisher) {
	c.publisher = p
}

func validatePair(a, b uuid.UUID) error {
	if a == uuid.Nil || b == uuid.Nil {
		return utils.NewValidationError("both participants are required")
	}
	if a == b {
		return utils.NewValidationError("cannot message yourself")
	}
	return nil
}

// Send stores a message from sender to receiver, stamped with the clock.
// The body is stored trimmed.
func (c *ConversationManager) Send(ctx context.Context, sender, receiver uuid.UUID, body string) (*models.Message, error) {
	startTime := time.Now()

	text := strings.TrimSpace(body)
	if text == "" {
		return nil, utils.NewValidationError("message cannot be empty")
	}
	if err := validatePair(sender, receiver); err != nil {
		return nil, err
	}

	stored, err := c.store.AppendMessage(ctx, &models.Message{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		Body:       text,
		SentAt:     c.clock.Now(),
	})
	if err != nil {
		c.logger.Error("failed to send message", "sender", sender, "receiver", receiver, "error", err)
		return nil, utils.StoreError("append message", err)
	}

	if c.metrics != nil {
		c.metrics.MessageSent()
		c.metrics.AddOperationLatency("send_message", time.Since(startTime))
	}
	c.logger.Debug("message sent", "id", stored.ID, "seq", stored.Seq, "sender", sender, "receiver", receiver)

	if c.publisher != nil {
		unread, err := c.store.CountUnread(ctx, receiver)
		if err != nil {
			c.logger.Warn("unread count for push failed", "receiver", receiver, "error", err)
		} else {
			c.publisher.MessageSent(stored, unread)
		}
	}
	return stored, nil
}

// History returns the conversation between a and b in send order. The
// arguments are unordered.
func (c *ConversationManager) History(ctx context.Context, a, b uuid.UUID) ([]*models.Message, error) {
	if err := validatePair(a, b); err != nil {
		return nil, err
	}
	messages, err := c.store.QueryMessagesBetween(ctx, a, b)
	if err != nil {
		return nil, utils.StoreError("query conversation", err)
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	return messages, nil
}

// MarkRead flips every unread sender -> receiver message to read and
// returns how many changed. Messages in the other direction are untouched.
func (c *ConversationManager) MarkRead(ctx context.Context, sender, receiver uuid.UUID) (int64, error) {
	if err := validatePair(sender, receiver); err != nil {
		return 0, err
	}
	n, err := c.store.SetRead(ctx, sender, receiver, c.clock.Now())
	if err != nil {
		return 0, utils.StoreError("mark read", err)
	}
	if n > 0 {
		c.logger.Debug("messages marked read", "sender", sender, "receiver", receiver, "count", n)
		if c.publisher != nil {
			unread, err := c.store.CountUnread(ctx, receiver)
			if err != nil {
				c.logger.Warn("unread count for push failed", "receiver", receiver, "error", err)
			} else {
				c.publisher.MessagesRead(sender, receiver, n, unread)
			}
		}
	}
	return n, nil
}

func (c *ConversationManager) UnreadCount(ctx context.Context, recipient uuid.UUID) (int64, error) {
	if recipient == uuid.Nil {
		return 0, utils.NewValidationError("recipient is required")
	}
	n, err := c.store.CountUnread(ctx, recipient)
	if err != nil {
		return 0, utils.StoreError("count unread", err)
	}
	return n, nil
}

// OpenConversation is what a client does when a thread is opened: the
// partner's messages to viewer are marked read, then the history is returned.
func (c *ConversationManager) OpenConversation(ctx context.Context, viewer, partner uuid.UUID) ([]*models.Message, error) {
	if _, err := c.MarkRead(ctx, partner, viewer); err != nil {
		return nil, err
	}
	return c.History(ctx, viewer, partner)
}

// Threads builds user's inbox, most recent activity first.
func (c *ConversationManager) Threads(ctx context.Context, user uuid.UUID) ([]*models.ThreadSummary, error) {
	if user == uuid.Nil {
		return nil, utils.NewValidationError("user is required")
	}
	messages, err := c.store.QueryMessagesForUser(ctx, user)
	if err != nil {
		return nil, utils.StoreError("query user messages", err)
	}

	byPartner := make(map[uuid.UUID]*models.ThreadSummary)
	threads := []*models.ThreadSummary{}
	for _, msg := range messages {
		partner := msg.Partner(user)
		t, ok := byPartner[partner]
		if !ok {
			t = &models.ThreadSummary{PartnerID: partner}
			byPartner[partner] = t
			threads = append(threads, t)
		}
		// messages arrive in send order, so the last one seen is the latest
		t.LastMessage = msg
		t.LastActivity = msg.SentAt
		if msg.ReceiverID == user && !msg.Read {
			t.Unread++
		}
	}

	sort.SliceStable(threads, func(i, j int) bool {
		return threads[j].LastMessage.Less(threads[i].LastMessage)
	})
	return threads, nil
}
