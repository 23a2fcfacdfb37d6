package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pillscare/internal/models"
	"pillscare/internal/timeutil"
	"pillscare/internal/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// reminderRow is the reminders table shape. Times are kept as "HH:MM"
// strings so the column stays readable from psql.
type reminderRow struct {
	ID           uuid.UUID      `db:"id"`
	OwnerID      uuid.UUID      `db:"owner_id"`
	SubjectID    uuid.NullUUID  `db:"subject_id"`
	MedicineName string         `db:"medicine_name"`
	Dosage       string         `db:"dosage"`
	Frequency    string         `db:"frequency"`
	StartDate    time.Time      `db:"start_date"`
	EndDate      sql.NullTime   `db:"end_date"`
	Times        pq.StringArray `db:"reminder_times"`
	Active       bool           `db:"is_active"`
	CreatedAt    time.Time      `db:"created_at"`
}

func toReminderRow(r *models.Reminder) reminderRow {
	row := reminderRow{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		MedicineName: r.MedicineName,
		Dosage:       r.Dosage,
		Frequency:    string(r.Frequency),
		StartDate:    r.StartDate,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
	}
	if r.SubjectID != nil {
		row.SubjectID = uuid.NullUUID{UUID: *r.SubjectID, Valid: true}
	}
	if r.EndDate != nil {
		row.EndDate = sql.NullTime{Time: *r.EndDate, Valid: true}
	}
	row.Times = make(pq.StringArray, len(r.Times))
	for i, t := range r.Times {
		row.Times[i] = t.String()
	}
	return row
}

func (row reminderRow) toModel() (*models.Reminder, error) {
	r := &models.Reminder{
		ID:           row.ID,
		OwnerID:      row.OwnerID,
		MedicineName: row.MedicineName,
		Dosage:       row.Dosage,
		Frequency:    models.Frequency(row.Frequency),
		StartDate:    row.StartDate,
		Active:       row.Active,
		CreatedAt:    row.CreatedAt,
	}
	if row.SubjectID.Valid {
		id := row.SubjectID.UUID
		r.SubjectID = &id
	}
	if row.EndDate.Valid {
		t := row.EndDate.Time
		r.EndDate = &t
	}
	r.Times = make([]timeutil.TimeOfDay, 0, len(row.Times))
	for _, s := range row.Times {
		t, err := timeutil.ParseTimeOfDay(s)
		if err != nil {
			return nil, err
		}
		r.Times = append(r.Times, t)
	}
	return r, nil
}

// UpsertReminder inserts or replaces a reminder by id.
func (p *PostgresDB) UpsertReminder(ctx context.Context, r *models.Reminder) error {
	query := `
		INSERT INTO reminders (id, owner_id, subject_id, medicine_name, dosage, frequency,
			start_date, end_date, reminder_times, is_active, created_at)
		VALUES (:id, :owner_id, :subject_id, :medicine_name, :dosage, :frequency,
			:start_date, :end_date, :reminder_times, :is_active, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			subject_id = EXCLUDED.subject_id,
			medicine_name = EXCLUDED.medicine_name,
			dosage = EXCLUDED.dosage,
			frequency = EXCLUDED.frequency,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			reminder_times = EXCLUDED.reminder_times,
			is_active = EXCLUDED.is_active
	`
	if _, err := p.DB.NamedExecContext(ctx, query, toReminderRow(r)); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "check_violation" {
			return utils.NewValidationError("end date must not be before start date")
		}
		return utils.StoreError("upsert reminder", err)
	}
	return nil
}

const reminderColumns = `id, owner_id, subject_id, medicine_name, dosage, frequency,
	start_date, end_date, reminder_times, is_active, created_at`

func (p *PostgresDB) GetReminder(ctx context.Context, id uuid.UUID) (*models.Reminder, error) {
	var row reminderRow
	err := p.DB.GetContext(ctx, &row, `SELECT `+reminderColumns+` FROM reminders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NewNotFoundError("reminder")
	}
	if err != nil {
		return nil, utils.StoreError("get reminder", err)
	}
	r, err := row.toModel()
	if err != nil {
		return nil, utils.StoreError("decode reminder", err)
	}
	return r, nil
}

func (p *PostgresDB) ListActiveReminders(ctx context.Context, owner uuid.UUID) ([]*models.Reminder, error) {
	var rows []reminderRow
	query := `SELECT ` + reminderColumns + ` FROM reminders
		WHERE owner_id = $1 AND is_active
		ORDER BY created_at ASC, id ASC`
	if err := p.DB.SelectContext(ctx, &rows, query, owner); err != nil {
		return nil, utils.StoreError("list reminders", err)
	}
	out := make([]*models.Reminder, 0, len(rows))
	for _, row := range rows {
		r, err := row.toModel()
		if err != nil {
			return nil, utils.StoreError("decode reminder", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// DeactivateReminder clears the active flag. Deactivating twice is fine.
func (p *PostgresDB) DeactivateReminder(ctx context.Context, id uuid.UUID) error {
	result, err := p.DB.ExecContext(ctx, `UPDATE reminders SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return utils.StoreError("deactivate reminder", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return utils.NewNotFoundError("reminder")
	}
	return nil
}
