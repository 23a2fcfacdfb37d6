package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"pillscare/internal/api"
	"pillscare/internal/models"
)

var patientQuestions = []string{
	"I have a headache since this morning",
	"Is it fine to take my pills with coffee?",
	"I have a dry cough at night",
	"What should I eat before my appointment?",
	"I feel stressed about the results",
	"Can I skip a dose if I feel better?",
}

var chatbotQuestions = []string{
	"hello",
	"I cannot sleep",
	"my head hurts",
	"runny nose and sneezing",
	"what should I eat",
	"do I need more pills",
}

func (s *Simulator) SimulateActivities(ctx context.Context) {
	s.logger.Info("starting activities simulation")

	var wg sync.WaitGroup
	for _, activity := range []func(context.Context){
		s.simulatePatientMessages,
		s.simulateDoctorReplies,
		s.simulateChatbot,
		s.simulateEmergencies,
	} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(activity)
	}
	wg.Wait()
}

// chance converts a per-user hourly rate into a probability for one tick.
func (s *Simulator) chance(perHour float64) float64 {
	p := perHour / 3600.0 * s.config.TickInterval.Seconds()
	if p > 1 {
		return 1
	}
	return p
}

// eachConnected calls fn for every connected user picked with probability p.
func (s *Simulator) eachConnected(ctx context.Context, users []*SimulatedUser, p float64, fn func(*SimulatedUser)) {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			picked := make([]*SimulatedUser, 0, len(users))
			for _, u := range users {
				if u.IsConnected && rand.Float64() < p {
					picked = append(picked, u)
				}
			}
			s.mu.RUnlock()

			for _, u := range picked {
				if ctx.Err() != nil {
					return
				}
				fn(u)
			}
		}
	}
}

func (s *Simulator) simulatePatientMessages(ctx context.Context) {
	s.eachConnected(ctx, s.patients, s.chance(s.config.MessageFrequency), func(patient *SimulatedUser) {
		doctor := s.doctors[s.getZipfIndex(len(s.doctors))]
		msg := api.SendMessageRequest{
			ReceiverID: doctor.ID,
			Body:       patientQuestions[rand.Intn(len(patientQuestions))],
		}
		if _, err := s.makeRequest(ctx, patient, "POST", "/messages", msg); err != nil {
			s.logger.Debug("failed to send message", "from", patient.Name, "to", doctor.Name, "error", err)
			return
		}
		s.stats.mu.Lock()
		s.stats.TotalMessages++
		s.stats.mu.Unlock()
	})
}

// simulateDoctorReplies has doctors open every thread with unread messages
// and answer it.
func (s *Simulator) simulateDoctorReplies(ctx context.Context) {
	s.eachConnected(ctx, s.doctors, 1, func(doctor *SimulatedUser) {
		raw, err := s.makeRequest(ctx, doctor, "GET", "/messages/threads", nil)
		if err != nil {
			s.logger.Debug("failed to list threads", "doctor", doctor.Name, "error", err)
			return
		}
		var threads []*models.ThreadSummary
		if err := json.Unmarshal(raw, &threads); err != nil {
			s.logger.Debug("failed to parse threads", "doctor", doctor.Name, "error", err)
			return
		}

		for _, thread := range threads {
			if thread.Unread == 0 {
				continue
			}
			if _, err := s.makeRequest(ctx, doctor, "GET", "/conversations/"+thread.PartnerID.String(), nil); err != nil {
				s.logger.Debug("failed to open conversation", "doctor", doctor.Name, "error", err)
				continue
			}
			reply := api.SendMessageRequest{
				ReceiverID: thread.PartnerID,
				Body:       fmt.Sprintf("Thanks for the update. %s will follow up shortly.", doctor.Name),
			}
			if _, err := s.makeRequest(ctx, doctor, "POST", "/messages", reply); err != nil {
				s.logger.Debug("failed to reply", "doctor", doctor.Name, "error", err)
				continue
			}
			s.stats.mu.Lock()
			s.stats.TotalReplies++
			s.stats.mu.Unlock()
		}
	})
}

func (s *Simulator) simulateChatbot(ctx context.Context) {
	s.eachConnected(ctx, s.patients, s.chance(s.config.ChatFrequency), func(patient *SimulatedUser) {
		var err error
		if rand.Intn(4) == 0 {
			_, err = s.makeRequest(ctx, patient, "POST", "/chatbot/triage", api.TriageRequest{Symptoms: "fever and cough"})
		} else {
			q := chatbotQuestions[rand.Intn(len(chatbotQuestions))]
			_, err = s.makeRequest(ctx, patient, "POST", "/chatbot/reply", api.ChatRequest{Message: q})
		}
		if err != nil {
			s.logger.Debug("chatbot request failed", "patient", patient.Name, "error", err)
			return
		}
		s.stats.mu.Lock()
		s.stats.TotalChats++
		s.stats.mu.Unlock()
	})
}

func (s *Simulator) simulateEmergencies(ctx context.Context) {
	s.eachConnected(ctx, s.patients, s.chance(s.config.EmergencyFrequency), func(patient *SimulatedUser) {
		req := api.EmergencyRequest{
			Type:        string(models.EmergencyTypes[rand.Intn(len(models.EmergencyTypes))]),
			Location:    fmt.Sprintf("%d Elm Street", 1+rand.Intn(200)),
			Description: "Simulated alert",
		}
		raw, err := s.makeRequest(ctx, patient, "POST", "/emergency", req)
		if err != nil {
			s.logger.Debug("emergency request failed", "patient", patient.Name, "error", err)
			return
		}
		var resp api.EmergencyResponse
		if err := json.Unmarshal(raw, &resp); err == nil && !resp.Delivered {
			s.logger.Warn("emergency alert not delivered", "patient", patient.Name, "alert", resp.AlertID)
		}
		s.stats.mu.Lock()
		s.stats.TotalAlerts++
		s.stats.mu.Unlock()
	})
}
