package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pillscare/internal/api"
	"pillscare/internal/chatbot"
	"pillscare/internal/engine"
	"pillscare/internal/engine/actors"
	"pillscare/internal/logging"
	"pillscare/internal/middleware"
	"pillscare/internal/models"
	"pillscare/internal/notify"
	"pillscare/internal/timeutil"
	"pillscare/internal/utils"
	"pillscare/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler http.Handler
	auth    *middleware.Authenticator
	sent    *[]string // subjects handed to the notifier
	fail    *error
}

func newTestServer(t *testing.T, opts ...func(*Server)) *testServer {
	t.Helper()
	logger := logging.Discard()
	metrics := utils.NewMetricsCollector()
	store := actors.NewMemoryStore(actor.NewActorSystem(), 5*time.Second, metrics, logger)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	var sent []string
	var fail error
	clock := timeutil.NewFixedClock(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC))
	eng := engine.New(engine.Options{
		Store: store,
		Notifier: notify.Func(func(_ context.Context, _ []string, subject, _ string) error {
			sent = append(sent, subject)
			return fail
		}),
		Classifier: chatbot.MustNewClassifier(chatbot.DefaultCatalog(), chatbot.FixedPicker(0)),
		Clock:      clock,
		Metrics:    metrics,
		Logger:     logger,
	})

	auth, err := middleware.NewAuthenticator("test-secret", logger)
	require.NoError(t, err)

	hub := websocket.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	eng.Conversations.SetPublisher(hub)

	s := &Server{
		Engine:         eng,
		Auth:           auth,
		Limiter:        middleware.NewRateLimiter(100, 100, metrics),
		Hub:            hub,
		Metrics:        metrics,
		Clock:          clock,
		Location:       time.UTC,
		StoreName:      "memory",
		AllowedOrigins: []string{"*"},
		RequestTimeout: 5 * time.Second,
		Logger:         logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return &testServer{handler: s.Router(), auth: auth, sent: &sent, fail: &fail}
}

func (ts *testServer) do(t *testing.T, user uuid.UUID, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != uuid.Nil {
		token, err := ts.auth.GenerateToken(user)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst), rec.Body.String())
}

func TestHealthIsPublic(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, uuid.Nil, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body api.HealthResponse
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "memory", body.Store)

	rec = ts.do(t, uuid.Nil, http.MethodGet, "/messages/unread", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMessagingFlow(t *testing.T) {
	ts := newTestServer(t)
	patient, doctor := uuid.New(), uuid.New()

	rec := ts.do(t, patient, http.MethodPost, "/messages", api.SendMessageRequest{ReceiverID: doctor, Body: "Is this dose right?"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, patient, http.MethodPost, "/messages", api.SendMessageRequest{ReceiverID: doctor, Body: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errBody api.ErrorResponse
	decode(t, rec, &errBody)
	assert.Equal(t, utils.ErrInvalidInput, errBody.Code)
	assert.Equal(t, "message cannot be empty", errBody.Error)

	var unread api.UnreadResponse
	decode(t, ts.do(t, doctor, http.MethodGet, "/messages/unread", nil), &unread)
	assert.Equal(t, int64(1), unread.Unread)

	var threads []models.ThreadSummary
	decode(t, ts.do(t, doctor, http.MethodGet, "/messages/threads", nil), &threads)
	require.Len(t, threads, 1)
	assert.Equal(t, patient, threads[0].PartnerID)

	// peek leaves it unread
	var history []models.Message
	decode(t, ts.do(t, doctor, http.MethodGet, "/conversations/"+patient.String()+"?peek=true", nil), &history)
	require.Len(t, history, 1)
	assert.False(t, history[0].Read)

	decode(t, ts.do(t, doctor, http.MethodGet, "/conversations/"+patient.String(), nil), &history)
	require.Len(t, history, 1)
	assert.True(t, history[0].Read)

	decode(t, ts.do(t, doctor, http.MethodGet, "/messages/unread", nil), &unread)
	assert.Zero(t, unread.Unread)

	var marked api.MarkReadResponse
	decode(t, ts.do(t, doctor, http.MethodPost, "/conversations/"+patient.String()+"/read", nil), &marked)
	assert.Zero(t, marked.Marked)

	rec = ts.do(t, doctor, http.MethodGet, "/conversations/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReminderFlow(t *testing.T) {
	ts := newTestServer(t)
	owner := uuid.New()

	rec := ts.do(t, owner, http.MethodPost, "/reminders", api.CreateReminderRequest{
		MedicineName: "Amoxicillin",
		Dosage:       "500 mg",
		Frequency:    "Twice daily",
		StartDate:    "2024-01-01",
		EndDate:      "2024-01-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.ReminderView
	decode(t, rec, &created)
	assert.Equal(t, models.StatusOngoing, created.Status)
	assert.Equal(t, []timeutil.TimeOfDay{timeutil.MustTimeOfDay(8, 0), timeutil.MustTimeOfDay(20, 0)}, created.Times)

	var views []models.ReminderView
	decode(t, ts.do(t, owner, http.MethodGet, "/reminders?date=2024-02-01", nil), &views)
	require.Len(t, views, 1)
	assert.Equal(t, models.StatusExpired, views[0].Status)

	var doses []models.Dose
	decode(t, ts.do(t, owner, http.MethodGet, "/reminders/due?hours=12", nil), &doses)
	require.Len(t, doses, 1)
	assert.Equal(t, 20, doses[0].At.Hour())

	// No profile yet, so there is nobody to email.
	rec = ts.do(t, owner, http.MethodPost, "/reminders/due/notify?hours=12", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, owner, http.MethodPut, "/profile", models.PatientContact{FullName: "Ana Silva", Email: "ana@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	var sent map[string]int
	decode(t, ts.do(t, owner, http.MethodPost, "/reminders/due/notify?hours=12", nil), &sent)
	assert.Equal(t, 1, sent["sent"])
	assert.Equal(t, []string{"💊 Medicine Reminder - Amoxicillin"}, *ts.sent)

	rec = ts.do(t, uuid.New(), http.MethodPost, "/reminders/"+created.ID.String()+"/deactivate", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, owner, http.MethodPost, "/reminders/"+created.ID.String()+"/deactivate", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	decode(t, ts.do(t, owner, http.MethodGet, "/reminders", nil), &views)
	assert.Empty(t, views)

	rec = ts.do(t, owner, http.MethodPost, "/reminders", api.CreateReminderRequest{
		MedicineName: "X", Dosage: "1", Frequency: "Once daily", StartDate: "01/02/2024",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, owner, http.MethodGet, "/reminders/due?hours=500", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatbotEndpoints(t *testing.T) {
	ts := newTestServer(t)
	user := uuid.New()

	var reply chatbot.ClassifiedReply
	decode(t, ts.do(t, user, http.MethodPost, "/chatbot/reply", api.ChatRequest{Message: "chest pain and headache"}), &reply)
	assert.Equal(t, chatbot.CategoryEmergency, reply.Category)

	var triage chatbot.TriageResult
	decode(t, ts.do(t, user, http.MethodPost, "/chatbot/triage", api.TriageRequest{Symptoms: "fever and cough for two days"}), &triage)
	assert.Equal(t, chatbot.TriageInfection, triage.Kind)

	var tip api.TipResponse
	decode(t, ts.do(t, user, http.MethodGet, "/chatbot/tip", nil), &tip)
	assert.NotEmpty(t, tip.Tip)
}

func TestEmergencyEndpoint(t *testing.T) {
	ts := newTestServer(t)
	patient := uuid.New()

	rec := ts.do(t, patient, http.MethodPut, "/profile", models.PatientContact{
		FullName: "Ana Silva", Email: "p@x.com", EmergencyEmail: "e@x.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	req := api.EmergencyRequest{Type: "Chest Pain", Location: "Home", Description: "Pain spreading to left arm"}
	var resp api.EmergencyResponse
	decode(t, ts.do(t, patient, http.MethodPost, "/emergency", req), &resp)
	assert.True(t, resp.Delivered)
	assert.Equal(t, []string{"e@x.com", "p@x.com"}, resp.Recipients)

	*ts.fail = assert.AnError
	decode(t, ts.do(t, patient, http.MethodPost, "/emergency", req), &resp)
	assert.False(t, resp.Delivered)
	assert.Contains(t, resp.Message, "911")

	rec = ts.do(t, patient, http.MethodPost, "/emergency", api.EmergencyRequest{Type: "Accident"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, patient, http.MethodPost, "/emergency", api.EmergencyRequest{Type: "banana", Location: "Home", Description: "?"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmergencyWithoutProfileUsesFallback(t *testing.T) {
	ts := newTestServer(t)

	req := api.EmergencyRequest{Type: "Accident", Location: "Highway 1", Description: "Car crash"}
	rec := ts.do(t, uuid.New(), http.MethodPost, "/emergency", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp api.EmergencyResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Delivered)
	assert.Equal(t, []string{engine.DefaultFallbackEmail}, resp.Recipients)
	assert.Len(t, *ts.sent, 1)
}

func TestRateLimitedRoutes(t *testing.T) {
	ts := newTestServer(t, func(s *Server) {
		s.Limiter = middleware.NewRateLimiter(0.001, 1, s.Metrics)
	})
	user := uuid.New()

	assert.Equal(t, http.StatusOK, ts.do(t, user, http.MethodGet, "/chatbot/tip", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, ts.do(t, user, http.MethodGet, "/chatbot/tip", nil).Code)
	// Messaging is not limited.
	assert.Equal(t, http.StatusOK, ts.do(t, user, http.MethodGet, "/messages/unread", nil).Code)
	// Buckets are per user.
	assert.Equal(t, http.StatusOK, ts.do(t, uuid.New(), http.MethodGet, "/chatbot/tip", nil).Code)
}
