// Package engine holds the care coordination core: messaging, reminders
// and emergency dispatch. Every call is synchronous; there are no
// background loops.
package engine

import (
	"log/slog"
	"time"

	"pillscare/internal/chatbot"
	"pillscare/internal/database"
	"pillscare/internal/notify"
	"pillscare/internal/timeutil"
	"pillscare/internal/utils"
)

type Options struct {
	Store         database.Store
	Notifier      notify.Notifier
	Classifier    *chatbot.Classifier
	Clock         timeutil.Clock
	Location      *time.Location
	FallbackEmail string
	Metrics       *utils.MetricsCollector
	Logger        *slog.Logger
}

// Engine wires the components over one store.
type Engine struct {
	Store         database.Store
	Conversations *ConversationManager
	Reminders     *ReminderScheduler
	Emergency     *Dispatcher
	Bot           *chatbot.Bot
}

func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = timeutil.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLogNotifier(opts.Logger)
	}
	if opts.Classifier == nil {
		opts.Classifier = chatbot.MustNewClassifier(chatbot.DefaultCatalog(), chatbot.RandomPicker())
	}

	return &Engine{
		Store: opts.Store,
		Conversations: NewConversationManager(opts.Store, opts.Clock, opts.Metrics,
			opts.Logger.With("component", "conversations")),
		Reminders: NewReminderScheduler(opts.Store, opts.Notifier, opts.Clock, opts.Location, opts.Metrics,
			opts.Logger.With("component", "reminders")),
		Emergency: NewDispatcher(opts.Store, opts.Store, opts.Notifier, opts.Clock, opts.FallbackEmail, opts.Metrics,
			opts.Logger.With("component", "emergency")),
		Bot: chatbot.NewBot(opts.Classifier, opts.Store, opts.Clock, opts.Metrics,
			opts.Logger.With("component", "chatbot")),
	}
}
