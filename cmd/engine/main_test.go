package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pillscare/internal/api"
	"pillscare/internal/config"
	"pillscare/internal/engine"
	"pillscare/internal/engine/actors"
	"pillscare/internal/handlers"
	"pillscare/internal/logging"
	"pillscare/internal/middleware"
	"pillscare/internal/notify"
	"pillscare/internal/timeutil"
	"pillscare/internal/utils"
	"pillscare/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:    &config.ServerConfig{RequestTimeout: 5 * time.Second},
		Store:     config.DefaultStoreConfig(),
		SMTP:      config.DefaultSMTPConfig(),
		RateLimit: &config.RateLimitConfig{PerSecond: 50, Burst: 50},
		JWTSecret: "integration-secret",
		TimeZone:  time.UTC,
	}
}

func TestOpenStoreDefaultsToMemory(t *testing.T) {
	store, err := openStore(testConfig(), actor.NewActorSystem(), utils.NewMetricsCollector(), logging.Discard())
	require.NoError(t, err)
	defer store.Close(context.Background())

	_, ok := store.(*actors.MemoryStore)
	assert.True(t, ok)
}

func TestNewNotifierFallsBackToLog(t *testing.T) {
	cfg := testConfig()
	_, ok := newNotifier(cfg, logging.Discard()).(*notify.LogNotifier)
	assert.True(t, ok)

	cfg.SMTP.SenderEmail = "alerts@pillscare.com"
	cfg.SMTP.Password = "app-password"
	_, ok = newNotifier(cfg, logging.Discard()).(*notify.SMTPNotifier)
	assert.True(t, ok)
}

func TestIntegrationFlow(t *testing.T) {
	cfg := testConfig()
	logger := logging.Discard()
	metrics := utils.NewMetricsCollector()
	store, err := openStore(cfg, actor.NewActorSystem(), metrics, logger)
	require.NoError(t, err)
	defer store.Close(context.Background())

	eng := engine.New(engine.Options{
		Store:    store,
		Notifier: newNotifier(cfg, logger),
		Clock:    timeutil.SystemClock{},
		Metrics:  metrics,
		Logger:   logger,
	})
	auth, err := middleware.NewAuthenticator(cfg.JWTSecret, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)
	eng.Conversations.SetPublisher(hub)

	server := &handlers.Server{
		Engine:         eng,
		Auth:           auth,
		Limiter:        middleware.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, metrics),
		Hub:            hub,
		Metrics:        metrics,
		Clock:          timeutil.SystemClock{},
		Location:       time.UTC,
		StoreName:      "memory",
		AllowedOrigins: []string{"*"},
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         logger,
	}
	srv := httptest.NewServer(server.Router())
	defer srv.Close()

	patient, doctor := uuid.New(), uuid.New()
	patientToken, err := auth.GenerateToken(patient)
	require.NoError(t, err)
	doctorToken, err := auth.GenerateToken(doctor)
	require.NoError(t, err)

	// Step 1: the doctor opens a live connection.
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + doctorToken
	conn, _, err := ws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connections(doctor) == 1 }, 2*time.Second, 10*time.Millisecond)

	// Step 2: the patient writes and the doctor is told at once.
	payload, err := json.Marshal(api.SendMessageRequest{ReceiverID: doctor, Body: "Can I take ibuprofen with my antibiotics?"})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/messages", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+patientToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev websocket.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, websocket.EventMessage, ev.Type)
	require.NotNil(t, ev.Message)
	assert.Equal(t, patient, ev.Message.SenderID)

	// Step 3: the doctor reads the thread and the badge clears.
	get := func(token, path string, dst interface{}) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}

	var unread api.UnreadResponse
	get(doctorToken, "/messages/unread", &unread)
	assert.Equal(t, int64(1), unread.Unread)

	var history []map[string]interface{}
	get(doctorToken, "/conversations/"+patient.String(), &history)
	assert.NotEmpty(t, history)

	get(doctorToken, "/messages/unread", &unread)
	assert.Zero(t, unread.Unread)

	// Step 4: metrics saw the traffic.
	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
