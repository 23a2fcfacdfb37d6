package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"pillscare/internal/models"
	"pillscare/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	cases := []struct {
		name             string
		sender, receiver uuid.UUID
		body             string
	}{
		{"blank body", a, b, "   \n\t"},
		{"nil sender", uuid.Nil, b, "hello"},
		{"nil receiver", a, uuid.Nil, "hello"},
		{"self", a, a, "hello"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Conversations.Send(ctx, tc.sender, tc.receiver, tc.body)
			assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput), "got %v", err)
		})
	}

	counts, err := e.store.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Messages, "invalid sends must not reach the store")
}

func TestSendStampsClockAndTrims(t *testing.T) {
	e := newTestEngine(t)
	a, b := uuid.New(), uuid.New()

	msg, err := e.Conversations.Send(context.Background(), a, b, "  take two with food  ")
	require.NoError(t, err)
	assert.Equal(t, "take two with food", msg.Body)
	assert.Equal(t, e.clock.Now(), msg.SentAt)
	assert.False(t, msg.Read)
	assert.Positive(t, msg.Seq)
}

func TestHistoryIsSymmetricAndOrdered(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	_, err := e.Conversations.Send(ctx, a, b, "first")
	require.NoError(t, err)
	// same timestamp: insertion order breaks the tie
	_, err = e.Conversations.Send(ctx, b, a, "second")
	require.NoError(t, err)
	e.clock.Advance(time.Minute)
	_, err = e.Conversations.Send(ctx, a, b, "third")
	require.NoError(t, err)
	_, err = e.Conversations.Send(ctx, a, c, "elsewhere")
	require.NoError(t, err)

	ab, err := e.Conversations.History(ctx, a, b)
	require.NoError(t, err)
	ba, err := e.Conversations.History(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)

	bodies := make([]string, len(ab))
	for i, m := range ab {
		bodies[i] = m.Body
	}
	assert.Equal(t, []string{"first", "second", "third"}, bodies)

	empty, err := e.Conversations.History(ctx, b, c)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMarkReadIsDirectionalAndIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	patient, doctor := uuid.New(), uuid.New()

	for _, body := range []string{"one", "two"} {
		_, err := e.Conversations.Send(ctx, patient, doctor, body)
		require.NoError(t, err)
	}
	_, err := e.Conversations.Send(ctx, doctor, patient, "reply")
	require.NoError(t, err)

	n, err := e.Conversations.UnreadCount(ctx, doctor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	changed, err := e.Conversations.MarkRead(ctx, patient, doctor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	changed, err = e.Conversations.MarkRead(ctx, patient, doctor)
	require.NoError(t, err)
	assert.Zero(t, changed)

	n, err = e.Conversations.UnreadCount(ctx, doctor)
	require.NoError(t, err)
	assert.Zero(t, n)

	// The doctor's reply is still unread by the patient.
	n, err = e.Conversations.UnreadCount(ctx, patient)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestConcurrentMarkReadCommutes(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	for i := 0; i < 10; i++ {
		_, err := e.Conversations.Send(ctx, a, b, "ping")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var total int64
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := e.Conversations.MarkRead(ctx, a, b)
			assert.NoError(t, err)
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), total)
	n, err := e.Conversations.UnreadCount(ctx, b)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenConversationMarksPartnerMessagesRead(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	patient, doctor := uuid.New(), uuid.New()

	_, err := e.Conversations.Send(ctx, patient, doctor, "question")
	require.NoError(t, err)

	history, err := e.Conversations.OpenConversation(ctx, doctor, patient)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Read)
	require.NotNil(t, history[0].ReadAt)

	n, err := e.Conversations.UnreadCount(ctx, doctor)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestThreads(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	doctor, p1, p2 := uuid.New(), uuid.New(), uuid.New()

	_, err := e.Conversations.Send(ctx, p1, doctor, "p1 first")
	require.NoError(t, err)
	e.clock.Advance(time.Minute)
	_, err = e.Conversations.Send(ctx, p2, doctor, "p2 only")
	require.NoError(t, err)
	e.clock.Advance(time.Minute)
	_, err = e.Conversations.Send(ctx, p1, doctor, "p1 again")
	require.NoError(t, err)
	_, err = e.Conversations.Send(ctx, doctor, p1, "answer")
	require.NoError(t, err)

	threads, err := e.Conversations.Threads(ctx, doctor)
	require.NoError(t, err)
	require.Len(t, threads, 2)

	assert.Equal(t, p1, threads[0].PartnerID)
	assert.Equal(t, "answer", threads[0].LastMessage.Body)
	assert.Equal(t, int64(2), threads[0].Unread)

	assert.Equal(t, p2, threads[1].PartnerID)
	assert.Equal(t, int64(1), threads[1].Unread)
}

type recordingPublisher struct {
	mu     sync.Mutex
	sent   []*models.Message
	unread []int64
	read   int64
	// badges holds the reader's unread count after each read.
	badges []int64
}

func (p *recordingPublisher) MessageSent(msg *models.Message, unread int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	p.unread = append(p.unread, unread)
}

func (p *recordingPublisher) MessagesRead(_, _ uuid.UUID, n, unread int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.read += n
	p.badges = append(p.badges, unread)
}

func TestPublisherIsNotified(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	pub := &recordingPublisher{}
	e.Conversations.SetPublisher(pub)
	a, b := uuid.New(), uuid.New()

	_, err := e.Conversations.Send(ctx, a, b, "one")
	require.NoError(t, err)
	_, err = e.Conversations.Send(ctx, a, b, "two")
	require.NoError(t, err)
	_, err = e.Conversations.MarkRead(ctx, a, b)
	require.NoError(t, err)

	assert.Len(t, pub.sent, 2)
	assert.Equal(t, []int64{1, 2}, pub.unread)
	assert.Equal(t, int64(2), pub.read)
}

func TestMarkReadPublishesReaderBadge(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	pub := &recordingPublisher{}
	e.Conversations.SetPublisher(pub)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	_, err := e.Conversations.Send(ctx, a, b, "from a")
	require.NoError(t, err)
	_, err = e.Conversations.Send(ctx, c, b, "from c")
	require.NoError(t, err)

	_, err = e.Conversations.MarkRead(ctx, a, b)
	require.NoError(t, err)
	// Nothing left to flip, so no second push.
	_, err = e.Conversations.MarkRead(ctx, a, b)
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, pub.badges)
}
