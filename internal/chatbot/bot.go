package chatbot

import (
	"context"
	"log/slog"

	"pillscare/internal/database"
	"pillscare/internal/models"
	"pillscare/internal/timeutil"
	"pillscare/internal/utils"

	"github.com/google/uuid"
)

// Bot classifies messages for a user and keeps the audit log.
type Bot struct {
	classifier *Classifier
	log        database.ChatLogStore
	clock      timeutil.Clock
	metrics    *utils.MetricsCollector
	logger     *slog.Logger
}

func NewBot(classifier *Classifier, log database.ChatLogStore, clock timeutil.Clock, metrics *utils.MetricsCollector, logger *slog.Logger) *Bot {
	return &Bot{
		classifier: classifier,
		log:        log,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

func (b *Bot) Classifier() *Classifier { return b.classifier }

// Reply classifies text on behalf of owner and records the turn. The reply
// is returned even when recording fails so the user still gets an answer.
func (b *Bot) Reply(ctx context.Context, owner uuid.UUID, text string) (ClassifiedReply, error) {
	reply := b.classifier.Classify(text)
	if b.metrics != nil {
		b.metrics.ChatReply(reply.Category)
	}
	if reply.Category == CategoryEmergency {
		b.logger.Warn("chatbot emergency keyword matched", "owner", owner)
	}

	turn := &models.ChatTurn{
		ID:       uuid.New(),
		OwnerID:  owner,
		Input:    text,
		Reply:    reply.Reply,
		Category: reply.Category,
		At:       b.clock.Now(),
	}
	if err := b.log.LogChatTurn(ctx, turn); err != nil {
		b.logger.Error("failed to record chat turn", "owner", owner, "error", err)
		return reply, err
	}
	return reply, nil
}

func (b *Bot) Triage(symptoms string) TriageResult {
	return Triage(symptoms)
}

func (b *Bot) Tip() string {
	return b.classifier.Tip()
}
