package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"pillscare/internal/chatbot"
	"pillscare/internal/engine/actors"
	"pillscare/internal/logging"
	"pillscare/internal/notify"
	"pillscare/internal/timeutil"
	"pillscare/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

type sentAlert struct {
	recipients []string
	subject    string
	body       string
}

// recordingNotifier captures every send. Set fail to make sends error.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentAlert
	fail error
}

func (n *recordingNotifier) notifier() notify.Notifier {
	return notify.Func(func(_ context.Context, recipients []string, subject, body string) error {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.sent = append(n.sent, sentAlert{recipients, subject, body})
		return n.fail
	})
}

type testEngine struct {
	*Engine
	store    *actors.MemoryStore
	clock    *timeutil.FixedClock
	notifier *recordingNotifier
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	system := actor.NewActorSystem()
	metrics := utils.NewMetricsCollector()
	store := actors.NewMemoryStore(system, 5*time.Second, metrics, logging.Discard())
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	clock := timeutil.NewFixedClock(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC))
	rec := &recordingNotifier{}
	e := New(Options{
		Store:      store,
		Notifier:   rec.notifier(),
		Classifier: chatbot.MustNewClassifier(chatbot.DefaultCatalog(), chatbot.FixedPicker(0)),
		Clock:      clock,
		Location:   time.UTC,
		Metrics:    metrics,
		Logger:     logging.Discard(),
	})
	return &testEngine{Engine: e, store: store, clock: clock, notifier: rec}
}
