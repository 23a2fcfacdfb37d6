package models

import (
	"time"

	"pillscare/internal/timeutil"

	"github.com/google/uuid"
)

// Frequency is how often a medicine is taken. The string values are the
// labels shown on the reminder form.
type Frequency string

const (
	FrequencyOnceDaily   Frequency = "Once daily"
	FrequencyTwiceDaily  Frequency = "Twice daily"
	FrequencyThriceDaily Frequency = "Three times daily"
	FrequencyFourDaily   Frequency = "Four times daily"
	FrequencyEvery8h     Frequency = "Every 8 hours"
	FrequencyEvery12h    Frequency = "Every 12 hours"
	FrequencyAsNeeded    Frequency = "As needed"
)

// Frequencies lists every accepted value in form order.
var Frequencies = []Frequency{
	FrequencyOnceDaily,
	FrequencyTwiceDaily,
	FrequencyThriceDaily,
	FrequencyFourDaily,
	FrequencyEvery8h,
	FrequencyEvery12h,
	FrequencyAsNeeded,
}

// ReminderStatus is computed, never stored.
type ReminderStatus string

const (
	StatusInactive  ReminderStatus = "INACTIVE"
	StatusScheduled ReminderStatus = "SCHEDULED"
	StatusOngoing   ReminderStatus = "ONGOING"
	StatusExpired   ReminderStatus = "EXPIRED"
)

// Reminder is a medicine schedule owned by a patient, for themselves
// (SubjectID nil) or for a dependent.
type Reminder struct {
	ID           uuid.UUID            `json:"id"`
	OwnerID      uuid.UUID            `json:"ownerId"`
	SubjectID    *uuid.UUID           `json:"subjectId,omitempty"`
	MedicineName string               `json:"medicineName"`
	Dosage       string               `json:"dosage"`
	Frequency    Frequency            `json:"frequency"`
	StartDate    time.Time            `json:"startDate"`
	EndDate      *time.Time           `json:"endDate,omitempty"`
	Times        []timeutil.TimeOfDay `json:"times"`
	Active       bool                 `json:"active"`
	CreatedAt    time.Time            `json:"createdAt"`
}

func (r *Reminder) Clone() *Reminder {
	c := *r
	if r.SubjectID != nil {
		id := *r.SubjectID
		c.SubjectID = &id
	}
	if r.EndDate != nil {
		t := *r.EndDate
		c.EndDate = &t
	}
	c.Times = append([]timeutil.TimeOfDay(nil), r.Times...)
	return &c
}

// ReminderView pairs a reminder with its status on a given day.
type ReminderView struct {
	*Reminder
	Status ReminderStatus `json:"status"`
}

// Dose is one concrete intake instant expanded from a reminder.
type Dose struct {
	ReminderID   uuid.UUID `json:"reminderId"`
	MedicineName string    `json:"medicineName"`
	Dosage       string    `json:"dosage"`
	At           time.Time `json:"at"`
}
