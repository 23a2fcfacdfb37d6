package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"pillscare/internal/models"
	"pillscare/internal/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// --- Chat log, emergency alert and patient contact methods ---

func (p *PostgresDB) LogChatTurn(ctx context.Context, turn *models.ChatTurn) error {
	query := `
		INSERT INTO chat_logs (id, owner_id, input_text, reply_text, category, created_at)
		VALUES (:id, :owner_id, :input_text, :reply_text, :category, :created_at)
	`
	if _, err := p.DB.NamedExecContext(ctx, query, turn); err != nil {
		return utils.StoreError("log chat turn", err)
	}
	return nil
}

// SaveEmergencyAlert is insert-only; a duplicate id is rejected.
func (p *PostgresDB) SaveEmergencyAlert(ctx context.Context, alert *models.EmergencyAlert) error {
	patient, err := json.Marshal(alert.Patient)
	if err != nil {
		return utils.StoreError("encode alert patient", err)
	}
	query := `
		INSERT INTO emergency_alerts (id, patient_id, patient, emergency_type, location,
			description, additional_contact, recipients, dispatched_at, delivered)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = p.DB.ExecContext(ctx, query,
		alert.ID, alert.PatientID, patient, string(alert.Type), alert.Location,
		alert.Description, alert.AdditionalContact, pq.Array(alert.Recipients),
		alert.DispatchedAt, alert.Delivered,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return utils.NewValidationError("emergency alert already recorded")
		}
		return utils.StoreError("save emergency alert", err)
	}
	return nil
}

func (p *PostgresDB) UpsertPatientContact(ctx context.Context, c *models.PatientContact) error {
	query := `
		INSERT INTO patient_contacts (user_id, full_name, email, phone, emergency_contact, emergency_email)
		VALUES (:user_id, :full_name, :email, :phone, :emergency_contact, :emergency_email)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			emergency_contact = EXCLUDED.emergency_contact,
			emergency_email = EXCLUDED.emergency_email
	`
	if _, err := p.DB.NamedExecContext(ctx, query, c); err != nil {
		return utils.StoreError("upsert patient contact", err)
	}
	return nil
}

func (p *PostgresDB) GetPatientContact(ctx context.Context, userID uuid.UUID) (*models.PatientContact, error) {
	var c models.PatientContact
	query := `SELECT user_id, full_name, email, phone, emergency_contact, emergency_email
		FROM patient_contacts WHERE user_id = $1`
	err := p.DB.GetContext(ctx, &c, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NewNotFoundError("patient")
	}
	if err != nil {
		return nil, utils.StoreError("get patient contact", err)
	}
	return &c, nil
}
