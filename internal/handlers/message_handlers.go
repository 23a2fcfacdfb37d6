package handlers

import (
	"net/http"

	"pillscare/internal/api"
)

// HandleSendMessage sends a direct message from the caller
func (s *Server) HandleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.SendMessageRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		msg, err := s.Engine.Conversations.Send(ctx, actingUser(r), req.ReceiverID, req.Body)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

func (s *Server) HandleUnreadCount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := s.requestContext(r)
		defer cancel()

		user := actingUser(r)
		n, err := s.Engine.Conversations.UnreadCount(ctx, user)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, api.UnreadResponse{UserID: user, Unread: n})
	}
}

// HandleThreads returns the caller's inbox
func (s *Server) HandleThreads() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := s.requestContext(r)
		defer cancel()

		threads, err := s.Engine.Conversations.Threads(ctx, actingUser(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, threads)
	}
}

// HandleConversation opens the conversation with a partner, which marks the
// partner's messages read. With ?peek=true the read state is left alone.
func (s *Server) HandleConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partner, err := pathUUID(r, "partnerId")
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		conversations := s.Engine.Conversations
		var result interface{}
		if r.URL.Query().Get("peek") == "true" {
			result, err = conversations.History(ctx, actingUser(r), partner)
		} else {
			result, err = conversations.OpenConversation(ctx, actingUser(r), partner)
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// HandleMarkRead marks the partner's messages to the caller as read
func (s *Server) HandleMarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partner, err := pathUUID(r, "partnerId")
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		n, err := s.Engine.Conversations.MarkRead(ctx, partner, actingUser(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, api.MarkReadResponse{Success: true, Marked: n})
	}
}
