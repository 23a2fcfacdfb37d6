package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"pillscare/internal/engine"
	"pillscare/internal/middleware"
	"pillscare/internal/timeutil"
	"pillscare/internal/utils"
	"pillscare/internal/websocket"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Server holds all server dependencies
type Server struct {
	Engine         *engine.Engine
	Auth           *middleware.Authenticator
	Limiter        *middleware.RateLimiter
	Hub            *websocket.Hub
	Metrics        *utils.MetricsCollector
	Clock          timeutil.Clock
	Location       *time.Location
	StoreName      string
	AllowedOrigins []string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Router builds the HTTP API. CORS wraps the router so preflight requests
// are answered even for paths without an OPTIONS route.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.Auth.Middleware)

	r.HandleFunc("/health", s.HandleHealth()).Methods(http.MethodGet)
	r.Handle("/metrics", s.Metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.HandleWebSocket()).Methods(http.MethodGet)

	r.HandleFunc("/profile", s.HandleGetProfile()).Methods(http.MethodGet)
	r.HandleFunc("/profile", s.HandlePutProfile()).Methods(http.MethodPut)

	r.HandleFunc("/messages", s.HandleSendMessage()).Methods(http.MethodPost)
	r.HandleFunc("/messages/unread", s.HandleUnreadCount()).Methods(http.MethodGet)
	r.HandleFunc("/messages/threads", s.HandleThreads()).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{partnerId}", s.HandleConversation()).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{partnerId}/read", s.HandleMarkRead()).Methods(http.MethodPost)

	r.HandleFunc("/reminders", s.HandleCreateReminder()).Methods(http.MethodPost)
	r.HandleFunc("/reminders", s.HandleListReminders()).Methods(http.MethodGet)
	r.HandleFunc("/reminders/due", s.HandleDueDoses()).Methods(http.MethodGet)
	r.HandleFunc("/reminders/due/notify", s.HandleNotifyDueDoses()).Methods(http.MethodPost)
	r.HandleFunc("/reminders/{id}/deactivate", s.HandleDeactivateReminder()).Methods(http.MethodPost)

	limited := r.NewRoute().Subrouter()
	limited.Use(s.Limiter.Middleware)
	limited.HandleFunc("/chatbot/reply", s.HandleChatReply()).Methods(http.MethodPost)
	limited.HandleFunc("/chatbot/triage", s.HandleTriage()).Methods(http.MethodPost)
	limited.HandleFunc("/chatbot/tip", s.HandleTip()).Methods(http.MethodGet)
	limited.HandleFunc("/emergency", s.HandleEmergency()).Methods(http.MethodPost)

	return middleware.CORSMiddleware(middleware.DefaultCORSConfig(s.AllowedOrigins))(r)
}

// requestContext bounds store and notifier calls made for one request.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.RequestTimeout)
}

// actingUser is the authenticated caller. The auth middleware guarantees it
// on protected routes.
func actingUser(r *http.Request) uuid.UUID {
	id, _ := middleware.GetUserIDFromContext(r.Context())
	return id
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return utils.NewValidationError("Invalid request body")
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, utils.NewValidationError("Invalid " + name)
	}
	return id, nil
}

// writeError logs server-side failures before answering.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if status := utils.AppErrorToHTTPStatus(utils.ErrorCode(err)); status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		if s.Metrics != nil {
			s.Metrics.IncrementErrors()
		}
	}
	middleware.WriteError(w, err)
}
