package notify

import (
	"context"
	"errors"
	"mime"
	"testing"
	"time"

	"pillscare/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent  []*gomail.Message
	err   error
	delay time.Duration
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	time.Sleep(d.delay)
	d.sent = append(d.sent, m...)
	return d.err
}

func newTestNotifier(d *fakeDialer) *SMTPNotifier {
	return &SMTPNotifier{sender: "alerts@pillscare.com", dialer: d, logger: logging.Discard()}
}

func TestSMTPNotifierBuildsMessage(t *testing.T) {
	d := &fakeDialer{}
	n := newTestNotifier(d)

	err := n.SendAlert(context.Background(), []string{"e@x.com", "p@x.com"}, "🚨 EMERGENCY ALERT - Accident", "<p>hi</p>")
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"alerts@pillscare.com"}, m.GetHeader("From"))
	assert.Equal(t, []string{"e@x.com", "p@x.com"}, m.GetHeader("To"))

	// gomail stores non-ASCII headers RFC 2047 encoded.
	subject := m.GetHeader("Subject")
	require.Len(t, subject, 1)
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject[0])
	require.NoError(t, err)
	assert.Equal(t, "🚨 EMERGENCY ALERT - Accident", decoded)
}

func TestSMTPNotifierReportsFailure(t *testing.T) {
	d := &fakeDialer{err: errors.New("auth failed")}
	n := newTestNotifier(d)

	err := n.SendAlert(context.Background(), []string{"e@x.com"}, "s", "b")
	assert.EqualError(t, err, "auth failed")
	assert.Len(t, d.sent, 1, "no retry")
}

func TestSMTPNotifierHonoursContext(t *testing.T) {
	n := newTestNotifier(&fakeDialer{delay: 200 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := n.SendAlert(ctx, []string{"e@x.com"}, "s", "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNoRecipients(t *testing.T) {
	assert.ErrorIs(t, newTestNotifier(&fakeDialer{}).SendAlert(context.Background(), nil, "s", "b"), ErrNoRecipients)
	assert.ErrorIs(t, NewLogNotifier(logging.Discard()).SendAlert(context.Background(), nil, "s", "b"), ErrNoRecipients)
}

func TestLogNotifierNeverReportsDelivery(t *testing.T) {
	err := NewLogNotifier(logging.Discard()).SendAlert(context.Background(), []string{"e@x.com"}, "s", "b")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSMTPConfigConfigured(t *testing.T) {
	assert.False(t, SMTPConfig{Host: "smtp.gmail.com", Port: 587}.Configured())
	assert.True(t, SMTPConfig{Host: "smtp.gmail.com", Port: 587, Sender: "a@b.c", Password: "pw"}.Configured())
}
