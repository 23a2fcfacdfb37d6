package handlers

import (
	"net/http"

	"pillscare/internal/api"
	"pillscare/internal/engine"
	"pillscare/internal/models"
	"pillscare/internal/utils"
)

const deliveryFailedMessage = "We could not reach your emergency contacts. Call 911 (or 102 for an ambulance) directly now."

func (s *Server) HandleChatReply() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.ChatRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		// A failed audit write still answers the user.
		reply, err := s.Engine.Bot.Reply(ctx, actingUser(r), req.Message)
		if err != nil {
			s.Logger.Warn("chat turn not recorded", "error", err)
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

func (s *Server) HandleTriage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.TriageRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.Engine.Bot.Triage(req.Symptoms))
	}
}

func (s *Server) HandleTip() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.TipResponse{Tip: s.Engine.Bot.Tip()})
	}
}

// HandleEmergency dispatches an alert for the caller. A failed delivery is
// still a 200: the alert was assembled and the client must show the phone
// fallback.
func (s *Server) HandleEmergency() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.EmergencyRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		result, err := s.Engine.Emergency.DispatchFor(ctx, actingUser(r), engine.EmergencyRequest{
			Type:              models.EmergencyType(req.Type),
			Location:          req.Location,
			Description:       req.Description,
			AdditionalContact: req.AdditionalContact,
		})
		if result == nil {
			s.writeError(w, r, err)
			return
		}
		if err != nil {
			// The alert went out (or failed) but was not recorded.
			s.Logger.Error("emergency alert not recorded", "alert", result.Alert.ID, "error", err)
		}

		resp := api.EmergencyResponse{
			AlertID:    result.Alert.ID,
			Delivered:  result.Delivered,
			Recipients: result.Alert.Recipients,
			Message:    "Emergency alert sent to your contacts.",
		}
		if !result.Delivered {
			resp.Message = deliveryFailedMessage
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) HandleGetProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := s.requestContext(r)
		defer cancel()

		contact, err := s.Engine.Store.GetPatientContact(ctx, actingUser(r))
		if err != nil {
			s.writeError(w, r, utils.StoreError("get patient contact", err))
			return
		}
		writeJSON(w, http.StatusOK, contact)
	}
}

// HandlePutProfile stores the caller's contact block. The user id always
// comes from the token.
func (s *Server) HandlePutProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var contact models.PatientContact
		if err := decodeJSON(r, &contact); err != nil {
			s.writeError(w, r, err)
			return
		}
		contact.UserID = actingUser(r)
		if contact.FullName == "" {
			s.writeError(w, r, utils.NewValidationError("fullName is required"))
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		if err := s.Engine.Store.UpsertPatientContact(ctx, &contact); err != nil {
			s.writeError(w, r, utils.StoreError("upsert patient contact", err))
			return
		}
		writeJSON(w, http.StatusOK, contact)
	}
}
