package engine

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"pillscare/internal/database"
	"pillscare/internal/models"
	"pillscare/internal/notify"
	"pillscare/internal/timeutil"
	"pillscare/internal/utils"

	"github.com/google/uuid"
)

var slotCounts = map[models.Frequency]int{
	models.FrequencyOnceDaily:   1,
	models.FrequencyTwiceDaily:  2,
	models.FrequencyEvery12h:    2,
	models.FrequencyThriceDaily: 3,
	models.FrequencyEvery8h:     3,
	models.FrequencyFourDaily:   4,
	models.FrequencyAsNeeded:    1,
}

// SlotCount is the exact number of daily times a frequency requires.
// As needed reports 1 as a reference slot only.
func SlotCount(f models.Frequency) (int, bool) {
	n, ok := slotCounts[f]
	return n, ok
}

var defaultTimes = map[int][]timeutil.TimeOfDay{
	1: {timeutil.MustTimeOfDay(8, 0)},
	2: {timeutil.MustTimeOfDay(8, 0), timeutil.MustTimeOfDay(20, 0)},
	3: {timeutil.MustTimeOfDay(8, 0), timeutil.MustTimeOfDay(14, 0), timeutil.MustTimeOfDay(20, 0)},
	4: {timeutil.MustTimeOfDay(8, 0), timeutil.MustTimeOfDay(14, 0), timeutil.MustTimeOfDay(20, 0), timeutil.MustTimeOfDay(22, 0)},
}

// DefaultTimes returns the form's prefilled times for n slots, or nil.
func DefaultTimes(n int) []timeutil.TimeOfDay {
	return append([]timeutil.TimeOfDay(nil), defaultTimes[n]...)
}

// Status is the single place reminder status is derived. Dates compare as
// calendar days. An expired reminder stays Active until its owner
// deactivates it.
func Status(r *models.Reminder, today time.Time) models.ReminderStatus {
	if !r.Active {
		return models.StatusInactive
	}
	if timeutil.DaysBetween(r.StartDate, today) < 0 {
		return models.StatusScheduled
	}
	if r.EndDate != nil && timeutil.DaysBetween(*r.EndDate, today) > 0 {
		return models.StatusExpired
	}
	return models.StatusOngoing
}

// calendarDay keeps only the y/m/d of t, as midnight UTC.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ReminderRequest is the caller's input to Create. Times may be empty, in
// which case the defaults for the frequency are used.
type ReminderRequest struct {
	SubjectID    *uuid.UUID           `json:"subjectId,omitempty"`
	MedicineName string               `json:"medicineName"`
	Dosage       string               `json:"dosage"`
	Frequency    models.Frequency     `json:"frequency"`
	StartDate    time.Time            `json:"startDate"`
	EndDate      *time.Time           `json:"endDate,omitempty"`
	Times        []timeutil.TimeOfDay `json:"times,omitempty"`
}

var leadingNumber = regexp.MustCompile(`^[-+]?\d+(\.\d+)?`)

func validateDosage(dosage string) error {
	if dosage == "" {
		return utils.NewValidationError("dosage is required")
	}
	if m := leadingNumber.FindString(dosage); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err != nil || v <= 0 {
			return utils.NewValidationError("dosage must be greater than zero")
		}
	}
	return nil
}

func normalizeTimes(freq models.Frequency, times []timeutil.TimeOfDay) ([]timeutil.TimeOfDay, error) {
	want, _ := SlotCount(freq)
	if len(times) == 0 {
		return DefaultTimes(want), nil
	}

	sorted := append([]timeutil.TimeOfDay(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return nil, utils.NewValidationError("reminder times must be distinct")
		}
	}
	if freq != models.FrequencyAsNeeded && len(sorted) != want {
		return nil, utils.NewValidationError(string(freq) + " requires exactly " + strconv.Itoa(want) + " times")
	}
	return sorted, nil
}

// ReminderScheduler owns the reminder lifecycle. It never deletes.
type ReminderScheduler struct {
	store    database.ReminderStore
	notifier notify.Notifier
	clock    timeutil.Clock
	loc      *time.Location
	metrics  *utils.MetricsCollector
	logger   *slog.Logger
}

func NewReminderScheduler(store database.ReminderStore, notifier notify.Notifier, clock timeutil.Clock, loc *time.Location, metrics *utils.MetricsCollector, logger *slog.Logger) *ReminderScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderScheduler{
		store:    store,
		notifier: notifier,
		clock:    clock,
		loc:      loc,
		metrics:  metrics,
		logger:   logger,
	}
}

// Create validates req and stores a new active reminder owned by actingUser.
func (s *ReminderScheduler) Create(ctx context.Context, actingUser uuid.UUID, req ReminderRequest) (*models.ReminderView, error) {
	if actingUser == uuid.Nil {
		return nil, utils.NewValidationError("owner is required")
	}
	name := strings.TrimSpace(req.MedicineName)
	if name == "" {
		return nil, utils.NewValidationError("medicine name is required")
	}
	dosage := strings.TrimSpace(req.Dosage)
	if err := validateDosage(dosage); err != nil {
		return nil, err
	}
	if _, ok := SlotCount(req.Frequency); !ok {
		return nil, utils.NewValidationError("unknown frequency: " + string(req.Frequency))
	}
	if req.StartDate.IsZero() {
		return nil, utils.NewValidationError("start date is required")
	}
	start := calendarDay(req.StartDate)
	var end *time.Time
	if req.EndDate != nil {
		if timeutil.DaysBetween(start, *req.EndDate) < 0 {
			return nil, utils.NewValidationError("end date cannot be before start date")
		}
		d := calendarDay(*req.EndDate)
		end = &d
	}
	times, err := normalizeTimes(req.Frequency, req.Times)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	r := &models.Reminder{
		ID:           uuid.New(),
		OwnerID:      actingUser,
		SubjectID:    req.SubjectID,
		MedicineName: name,
		Dosage:       dosage,
		Frequency:    req.Frequency,
		StartDate:    start,
		EndDate:      end,
		Times:        times,
		Active:       true,
		CreatedAt:    now,
	}
	if err := s.store.UpsertReminder(ctx, r); err != nil {
		s.logger.Error("failed to store reminder", "owner", actingUser, "error", err)
		return nil, utils.StoreError("upsert reminder", err)
	}
	if s.metrics != nil {
		s.metrics.ReminderCreated()
	}
	s.logger.Info("reminder created", "id", r.ID, "owner", actingUser, "frequency", r.Frequency)

	return &models.ReminderView{Reminder: r, Status: Status(r, now.In(s.loc))}, nil
}

// List returns owner's active reminders with their status on today.
func (s *ReminderScheduler) List(ctx context.Context, owner uuid.UUID, today time.Time) ([]*models.ReminderView, error) {
	reminders, err := s.store.ListActiveReminders(ctx, owner)
	if err != nil {
		return nil, utils.StoreError("list reminders", err)
	}
	views := make([]*models.ReminderView, 0, len(reminders))
	for _, r := range reminders {
		views = append(views, &models.ReminderView{Reminder: r, Status: Status(r, today)})
	}
	return views, nil
}

// Deactivate turns a reminder off. Only its owner may do so; repeating it
// is a no-op.
func (s *ReminderScheduler) Deactivate(ctx context.Context, actingUser, id uuid.UUID) error {
	r, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return utils.StoreError("get reminder", err)
	}
	if r.OwnerID != actingUser {
		return utils.NewForbiddenError("only the owner can deactivate a reminder")
	}
	if !r.Active {
		return nil
	}
	if err := s.store.DeactivateReminder(ctx, id); err != nil {
		return utils.StoreError("deactivate reminder", err)
	}
	s.logger.Info("reminder deactivated", "id", id, "owner", actingUser)
	return nil
}

// DoseTimes places the reminder's times on day, in loc.
func DoseTimes(r *models.Reminder, day time.Time, loc *time.Location) []time.Time {
	out := make([]time.Time, 0, len(r.Times))
	for _, t := range r.Times {
		out = append(out, t.On(day, loc))
	}
	return out
}

// Due expands owner's ongoing reminders into concrete doses in
// [from, from+window), earliest first. As needed reminders have no schedule
// and are skipped.
func (s *ReminderScheduler) Due(ctx context.Context, owner uuid.UUID, from time.Time, window time.Duration) ([]models.Dose, error) {
	if window <= 0 {
		return nil, utils.NewValidationError("window must be positive")
	}
	reminders, err := s.store.ListActiveReminders(ctx, owner)
	if err != nil {
		return nil, utils.StoreError("list reminders", err)
	}

	from = from.In(s.loc)
	until := from.Add(window)
	doses := []models.Dose{}
	for _, r := range reminders {
		if r.Frequency == models.FrequencyAsNeeded {
			continue
		}
		for day := timeutil.Date(from); day.Before(until); day = day.AddDate(0, 0, 1) {
			if Status(r, day) != models.StatusOngoing {
				continue
			}
			for _, at := range DoseTimes(r, day, s.loc) {
				if at.Before(from) || !at.Before(until) {
					continue
				}
				doses = append(doses, models.Dose{
					ReminderID:   r.ID,
					MedicineName: r.MedicineName,
					Dosage:       r.Dosage,
					At:           at,
				})
			}
		}
	}
	sort.SliceStable(doses, func(i, j int) bool {
		if doses[i].At.Equal(doses[j].At) {
			return doses[i].MedicineName < doses[j].MedicineName
		}
		return doses[i].At.Before(doses[j].At)
	})
	return doses, nil
}

var doseReminderTemplate = template.Must(template.New("dose").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
<h2>💊 Medicine Reminder</h2>
<p>Hello {{.Name}},</p>
<p>This is a reminder to take your medicine:</p>
<ul>
<li><strong>Medicine:</strong> {{.Medicine}}</li>
<li><strong>Dosage:</strong> {{.Dosage}}</li>
<li><strong>Time:</strong> {{.Time}}</li>
</ul>
<p>Please take your medicine as prescribed. Stay healthy!</p>
<p style="color: #888; font-size: 12px;">PillsCare Healthcare Management System</p>
</body>
</html>`))

// DoseReminderSubject is the email subject for a dose reminder.
func DoseReminderSubject(medicine string) string {
	return "💊 Medicine Reminder - " + medicine
}

// SendDoseReminder emails contact about one dose. Delivery is attempted once.
func (s *ReminderScheduler) SendDoseReminder(ctx context.Context, dose models.Dose, contact *models.PatientContact) error {
	if contact == nil || strings.TrimSpace(contact.Email) == "" {
		return utils.NewValidationError("patient email is required for reminders")
	}

	var body bytes.Buffer
	err := doseReminderTemplate.Execute(&body, map[string]string{
		"Name":     contact.FullName,
		"Medicine": dose.MedicineName,
		"Dosage":   dose.Dosage,
		"Time":     dose.At.In(s.loc).Format("15:04"),
	})
	if err != nil {
		return err
	}

	if err := s.notifier.SendAlert(ctx, []string{contact.Email}, DoseReminderSubject(dose.MedicineName), body.String()); err != nil {
		s.logger.Error("dose reminder not delivered", "reminder", dose.ReminderID, "error", err)
		return utils.NewNotificationError(err)
	}
	return nil
}
