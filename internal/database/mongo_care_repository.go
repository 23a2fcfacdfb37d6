package database

import (
	"context"
	"errors"
	"time"

	"pillscare/internal/models"
	"pillscare/internal/timeutil"
	"pillscare/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReminderDocument mirrors reminderRow for MongoDB.
type ReminderDocument struct {
	ID           string     `bson:"_id"`
	OwnerID      string     `bson:"ownerId"`
	SubjectID    string     `bson:"subjectId,omitempty"`
	MedicineName string     `bson:"medicineName"`
	Dosage       string     `bson:"dosage"`
	Frequency    string     `bson:"frequency"`
	StartDate    time.Time  `bson:"startDate"`
	EndDate      *time.Time `bson:"endDate,omitempty"`
	Times        []string   `bson:"times"`
	Active       bool       `bson:"active"`
	CreatedAt    time.Time  `bson:"createdAt"`
}

func toReminderDocument(r *models.Reminder) ReminderDocument {
	doc := ReminderDocument{
		ID:           r.ID.String(),
		OwnerID:      r.OwnerID.String(),
		MedicineName: r.MedicineName,
		Dosage:       r.Dosage,
		Frequency:    string(r.Frequency),
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		Times:        make([]string, len(r.Times)),
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
	}
	if r.SubjectID != nil {
		doc.SubjectID = r.SubjectID.String()
	}
	for i, t := range r.Times {
		doc.Times[i] = t.String()
	}
	return doc
}

func (doc ReminderDocument) toModel() (*models.Reminder, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, err
	}
	owner, err := uuid.Parse(doc.OwnerID)
	if err != nil {
		return nil, err
	}
	r := &models.Reminder{
		ID:           id,
		OwnerID:      owner,
		MedicineName: doc.MedicineName,
		Dosage:       doc.Dosage,
		Frequency:    models.Frequency(doc.Frequency),
		StartDate:    doc.StartDate.UTC(),
		Active:       doc.Active,
		CreatedAt:    doc.CreatedAt.UTC(),
		Times:        make([]timeutil.TimeOfDay, 0, len(doc.Times)),
	}
	if doc.SubjectID != "" {
		subject, err := uuid.Parse(doc.SubjectID)
		if err != nil {
			return nil, err
		}
		r.SubjectID = &subject
	}
	if doc.EndDate != nil {
		end := doc.EndDate.UTC()
		r.EndDate = &end
	}
	for _, s := range doc.Times {
		t, err := timeutil.ParseTimeOfDay(s)
		if err != nil {
			return nil, err
		}
		r.Times = append(r.Times, t)
	}
	return r, nil
}

func (m *MongoDB) UpsertReminder(ctx context.Context, r *models.Reminder) error {
	doc := toReminderDocument(r)
	_, err := m.Reminders.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return utils.StoreError("upsert reminder", err)
	}
	return nil
}

func (m *MongoDB) GetReminder(ctx context.Context, id uuid.UUID) (*models.Reminder, error) {
	var doc ReminderDocument
	err := m.Reminders.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFoundError("reminder")
	}
	if err != nil {
		return nil, utils.StoreError("get reminder", err)
	}
	r, err := doc.toModel()
	if err != nil {
		return nil, utils.StoreError("decode reminder", err)
	}
	return r, nil
}

func (m *MongoDB) ListActiveReminders(ctx context.Context, owner uuid.UUID) ([]*models.Reminder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := m.Reminders.Find(ctx, bson.M{"ownerId": owner.String(), "active": true}, opts)
	if err != nil {
		return nil, utils.StoreError("list reminders", err)
	}
	defer cursor.Close(ctx)

	var docs []ReminderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, utils.StoreError("list reminders", err)
	}
	out := make([]*models.Reminder, 0, len(docs))
	for _, doc := range docs {
		r, err := doc.toModel()
		if err != nil {
			return nil, utils.StoreError("decode reminder", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *MongoDB) DeactivateReminder(ctx context.Context, id uuid.UUID) error {
	result, err := m.Reminders.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": bson.M{"active": false}})
	if err != nil {
		return utils.StoreError("deactivate reminder", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("reminder")
	}
	return nil
}

type chatTurnDocument struct {
	ID       string    `bson:"_id"`
	OwnerID  string    `bson:"ownerId"`
	Input    string    `bson:"input"`
	Reply    string    `bson:"reply"`
	Category string    `bson:"category"`
	At       time.Time `bson:"at"`
}

func (m *MongoDB) LogChatTurn(ctx context.Context, turn *models.ChatTurn) error {
	_, err := m.ChatLogs.InsertOne(ctx, chatTurnDocument{
		ID:       turn.ID.String(),
		OwnerID:  turn.OwnerID.String(),
		Input:    turn.Input,
		Reply:    turn.Reply,
		Category: turn.Category,
		At:       turn.At,
	})
	if err != nil {
		return utils.StoreError("log chat turn", err)
	}
	return nil
}

func (m *MongoDB) SaveEmergencyAlert(ctx context.Context, alert *models.EmergencyAlert) error {
	doc := bson.M{
		"_id":               alert.ID.String(),
		"patientId":         alert.PatientID.String(),
		"patient":           mongoPatient(&alert.Patient),
		"type":              string(alert.Type),
		"location":          alert.Location,
		"description":       alert.Description,
		"additionalContact": alert.AdditionalContact,
		"recipients":        alert.Recipients,
		"dispatchedAt":      alert.DispatchedAt,
		"delivered":         alert.Delivered,
	}
	if _, err := m.Alerts.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewValidationError("emergency alert already recorded")
		}
		return utils.StoreError("save emergency alert", err)
	}
	return nil
}

type patientDocument struct {
	UserID           string `bson:"_id"`
	FullName         string `bson:"fullName"`
	Email            string `bson:"email"`
	Phone            string `bson:"phone"`
	EmergencyContact string `bson:"emergencyContact"`
	EmergencyEmail   string `bson:"emergencyEmail"`
}

func mongoPatient(c *models.PatientContact) patientDocument {
	return patientDocument{
		UserID:           c.UserID.String(),
		FullName:         c.FullName,
		Email:            c.Email,
		Phone:            c.Phone,
		EmergencyContact: c.EmergencyContact,
		EmergencyEmail:   c.EmergencyEmail,
	}
}

func (m *MongoDB) UpsertPatientContact(ctx context.Context, c *models.PatientContact) error {
	doc := mongoPatient(c)
	_, err := m.Patients.ReplaceOne(ctx, bson.M{"_id": doc.UserID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return utils.StoreError("upsert patient contact", err)
	}
	return nil
}

func (m *MongoDB) GetPatientContact(ctx context.Context, userID uuid.UUID) (*models.PatientContact, error) {
	var doc patientDocument
	err := m.Patients.FindOne(ctx, bson.M{"_id": userID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFoundError("patient")
	}
	if err != nil {
		return nil, utils.StoreError("get patient contact", err)
	}
	return &models.PatientContact{
		UserID:           userID,
		FullName:         doc.FullName,
		Email:            doc.Email,
		Phone:            doc.Phone,
		EmergencyContact: doc.EmergencyContact,
		EmergencyEmail:   doc.EmergencyEmail,
	}, nil
}
