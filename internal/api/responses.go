// Package api holds the JSON envelopes shared by the HTTP handlers and
// the simulator client.
package api

import "github.com/google/uuid"

type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

type SendMessageRequest struct {
	ReceiverID uuid.UUID `json:"receiverId"`
	Body       string    `json:"body"`
}

type MarkReadResponse struct {
	Success bool  `json:"success"`
	Marked  int64 `json:"marked"`
}

type UnreadResponse struct {
	UserID uuid.UUID `json:"userId"`
	Unread int64     `json:"unread"`
}

// CreateReminderRequest takes dates as YYYY-MM-DD and times as HH:MM.
type CreateReminderRequest struct {
	SubjectID    *uuid.UUID `json:"subjectId,omitempty"`
	MedicineName string     `json:"medicineName"`
	Dosage       string     `json:"dosage"`
	Frequency    string     `json:"frequency"`
	StartDate    string     `json:"startDate"`
	EndDate      string     `json:"endDate,omitempty"`
	Times        []string   `json:"times,omitempty"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type TriageRequest struct {
	Symptoms string `json:"symptoms"`
}

type TipResponse struct {
	Tip string `json:"tip"`
}

type EmergencyRequest struct {
	Type              string `json:"type"`
	Location          string `json:"location"`
	Description       string `json:"description"`
	AdditionalContact string `json:"additionalContact,omitempty"`
}

// EmergencyResponse tells the patient whether anyone was reached. When
// Delivered is false the client must tell them to phone emergency services.
type EmergencyResponse struct {
	AlertID    uuid.UUID `json:"alertId"`
	Delivered  bool      `json:"delivered"`
	Recipients []string  `json:"recipients"`
	Message    string    `json:"message"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	Store      string `json:"store"`
	Uptime     string `json:"uptime"`
	ServerTime string `json:"serverTime"`
}
