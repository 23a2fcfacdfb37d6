package models

import (
	"time"

	"github.com/google/uuid"
)

// PatientContact is the identity block copied into emergency alerts and
// reminder emails.
type PatientContact struct {
	UserID           uuid.UUID `json:"userId" db:"user_id"`
	FullName         string    `json:"fullName" db:"full_name"`
	Email            string    `json:"email" db:"email"`
	Phone            string    `json:"phone,omitempty" db:"phone"`
	EmergencyContact string    `json:"emergencyContact,omitempty" db:"emergency_contact"`
	EmergencyEmail   string    `json:"emergencyEmail,omitempty" db:"emergency_email"`
}

// ChatTurn is the audit record of one chatbot exchange. Never mutated.
type ChatTurn struct {
	ID       uuid.UUID `json:"id" db:"id"`
	OwnerID  uuid.UUID `json:"ownerId" db:"owner_id"`
	Input    string    `json:"input" db:"input_text"`
	Reply    string    `json:"reply" db:"reply_text"`
	Category string    `json:"category" db:"category"`
	At       time.Time `json:"at" db:"created_at"`
}
