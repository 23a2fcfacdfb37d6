package handlers

import (
	"net/http"
	"strconv"
	"time"

	"pillscare/internal/api"
	"pillscare/internal/engine"
	"pillscare/internal/models"
	"pillscare/internal/timeutil"
	"pillscare/internal/utils"
)

const (
	defaultDueWindow = 24 * time.Hour
	maxDueWindow     = 7 * 24 * time.Hour
)

func toReminderRequest(req api.CreateReminderRequest) (engine.ReminderRequest, error) {
	out := engine.ReminderRequest{
		SubjectID:    req.SubjectID,
		MedicineName: req.MedicineName,
		Dosage:       req.Dosage,
		Frequency:    models.Frequency(req.Frequency),
	}

	start, err := timeutil.ParseDate(req.StartDate)
	if err != nil {
		return out, utils.NewValidationError("startDate: " + err.Error())
	}
	out.StartDate = start

	if req.EndDate != "" {
		end, err := timeutil.ParseDate(req.EndDate)
		if err != nil {
			return out, utils.NewValidationError("endDate: " + err.Error())
		}
		out.EndDate = &end
	}

	for _, raw := range req.Times {
		t, err := timeutil.ParseTimeOfDay(raw)
		if err != nil {
			return out, utils.NewValidationError(err.Error())
		}
		out.Times = append(out.Times, t)
	}
	return out, nil
}

// today is the calendar day in the configured zone, as midnight UTC so it
// compares cleanly with stored dates.
func (s *Server) today() time.Time {
	y, m, d := s.Clock.Now().In(s.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Server) HandleCreateReminder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body api.CreateReminderRequest
		if err := decodeJSON(r, &body); err != nil {
			s.writeError(w, r, err)
			return
		}
		req, err := toReminderRequest(body)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		view, err := s.Engine.Reminders.Create(ctx, actingUser(r), req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

// HandleListReminders lists the caller's active reminders. ?date= picks the
// day statuses are computed for; it defaults to today.
func (s *Server) HandleListReminders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := s.today()
		if raw := r.URL.Query().Get("date"); raw != "" {
			parsed, err := timeutil.ParseDate(raw)
			if err != nil {
				s.writeError(w, r, utils.NewValidationError(err.Error()))
				return
			}
			day = parsed
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		views, err := s.Engine.Reminders.List(ctx, actingUser(r), day)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func (s *Server) HandleDeactivateReminder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		if err := s.Engine.Reminders.Deactivate(ctx, actingUser(r), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func dueWindow(r *http.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return defaultDueWindow, nil
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 || time.Duration(hours)*time.Hour > maxDueWindow {
		return 0, utils.NewValidationError("hours must be between 1 and 168")
	}
	return time.Duration(hours) * time.Hour, nil
}

// HandleDueDoses lists the caller's doses in the next ?hours= hours
func (s *Server) HandleDueDoses() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window, err := dueWindow(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		doses, err := s.Engine.Reminders.Due(ctx, actingUser(r), s.Clock.Now(), window)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doses)
	}
}

// HandleNotifyDueDoses emails the caller one reminder per upcoming dose.
// It stops at the first delivery failure.
func (s *Server) HandleNotifyDueDoses() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window, err := dueWindow(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		user := actingUser(r)
		contact, err := s.Engine.Store.GetPatientContact(ctx, user)
		if err != nil {
			s.writeError(w, r, utils.StoreError("get patient contact", err))
			return
		}
		doses, err := s.Engine.Reminders.Due(ctx, user, s.Clock.Now(), window)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		sent := 0
		for _, dose := range doses {
			if err := s.Engine.Reminders.SendDoseReminder(ctx, dose, contact); err != nil {
				s.writeError(w, r, err)
				return
			}
			sent++
		}
		writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
	}
}
