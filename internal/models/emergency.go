package models

import (
	"time"

	"github.com/google/uuid"
)

type EmergencyType string

const (
	EmergencyMedical     EmergencyType = "Medical Emergency"
	EmergencyAccident    EmergencyType = "Accident"
	EmergencyChestPain   EmergencyType = "Chest Pain"
	EmergencyBreathing   EmergencyType = "Breathing Difficulty"
	EmergencySeverePain  EmergencyType = "Severe Pain"
	EmergencyUnconscious EmergencyType = "Loss of Consciousness"
	EmergencyOther       EmergencyType = "Other"
)

var EmergencyTypes = []EmergencyType{
	EmergencyMedical,
	EmergencyAccident,
	EmergencyChestPain,
	EmergencyBreathing,
	EmergencySeverePain,
	EmergencyUnconscious,
	EmergencyOther,
}

// EmergencyAlert is written once after an alert is assembled, whether or
// not delivery succeeded.
type EmergencyAlert struct {
	ID                uuid.UUID      `json:"id"`
	PatientID         uuid.UUID      `json:"patientId"`
	Patient           PatientContact `json:"patient"`
	Type              EmergencyType  `json:"type"`
	Location          string         `json:"location"`
	Description       string         `json:"description"`
	AdditionalContact string         `json:"additionalContact,omitempty"`
	Recipients        []string       `json:"recipients"`
	DispatchedAt      time.Time      `json:"dispatchedAt"`
	Delivered         bool           `json:"delivered"`
}
