package database

import (
	"testing"
	"time"

	"pillscare/internal/models"
	"pillscare/internal/timeutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReminder() *models.Reminder {
	subject := uuid.New()
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	return &models.Reminder{
		ID:           uuid.New(),
		OwnerID:      uuid.New(),
		SubjectID:    &subject,
		MedicineName: "Amoxicillin",
		Dosage:       "250mg",
		Frequency:    models.FrequencyEvery8h,
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      &end,
		Times: []timeutil.TimeOfDay{
			timeutil.MustTimeOfDay(8, 0),
			timeutil.MustTimeOfDay(14, 0),
			timeutil.MustTimeOfDay(20, 30),
		},
		Active:    true,
		CreatedAt: time.Date(2024, 1, 1, 7, 15, 0, 0, time.UTC),
	}
}

func TestPairKeyIsUnordered(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.Equal(t, PairKey(a, b), PairKey(b, a))
	assert.NotEqual(t, PairKey(a, b), PairKey(a, uuid.New()))
}

func TestReminderRowConversion(t *testing.T) {
	r := sampleReminder()
	row := toReminderRow(r)
	assert.Equal(t, []string{"08:00", "14:00", "20:30"}, []string(row.Times))
	assert.True(t, row.SubjectID.Valid)
	assert.True(t, row.EndDate.Valid)

	back, err := row.toModel()
	require.NoError(t, err)
	assert.Equal(t, r, back)

	// Open-ended reminder for the owner themselves.
	r.SubjectID, r.EndDate = nil, nil
	row = toReminderRow(r)
	assert.False(t, row.SubjectID.Valid)
	back, err = row.toModel()
	require.NoError(t, err)
	assert.Nil(t, back.SubjectID)
	assert.Nil(t, back.EndDate)

	row.Times = append(row.Times, "25:00")
	_, err = row.toModel()
	assert.Error(t, err)
}

func TestReminderDocumentConversion(t *testing.T) {
	r := sampleReminder()
	doc := toReminderDocument(r)
	assert.Equal(t, r.SubjectID.String(), doc.SubjectID)

	back, err := doc.toModel()
	require.NoError(t, err)
	assert.Equal(t, r, back)

	doc.OwnerID = "not-a-uuid"
	_, err = doc.toModel()
	assert.Error(t, err)
}

func TestMessageDocumentCarriesPairKey(t *testing.T) {
	readAt := time.Date(2024, 1, 5, 11, 0, 0, 0, time.UTC)
	msg := &models.Message{
		ID:         uuid.New(),
		Seq:        7,
		SenderID:   uuid.New(),
		ReceiverID: uuid.New(),
		Body:       "see you Monday",
		SentAt:     time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
		Read:       true,
		ReadAt:     &readAt,
	}
	doc := toMessageDocument(msg)
	assert.Equal(t, PairKey(msg.ReceiverID, msg.SenderID), doc.PairKey)

	back, err := doc.toModel()
	require.NoError(t, err)
	assert.Equal(t, msg, back)
}
