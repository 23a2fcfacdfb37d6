package handlers

import (
	"net/http"

	"pillscare/internal/utils"
	"pillscare/internal/websocket"

	ws "github.com/gorilla/websocket"
)

func (s *Server) upgrader() *ws.Upgrader {
	return &ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range s.AllowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

// HandleWebSocket upgrades an authenticated caller to a live event stream.
// Browsers cannot set headers on websocket requests, so the token comes in
// the query string.
func (s *Server) HandleWebSocket() http.HandlerFunc {
	upgrader := s.upgrader()
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			s.writeError(w, r, utils.NewUnauthorizedError("missing authentication token"))
			return
		}
		claims, err := s.Auth.ValidateToken(tokenString)
		if err != nil {
			s.writeError(w, r, utils.NewAppError(utils.ErrInvalidToken, "Invalid or expired token", err))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already answered the client.
			s.Logger.Warn("websocket upgrade failed", "user", claims.UserID, "error", err)
			return
		}
		websocket.NewClient(s.Hub, claims.UserID, conn).Serve()
	}
}
