package engine

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
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

// DefaultFallbackEmail receives alerts for patients with no address on file.
const DefaultFallbackEmail = "emergency@pillscare.com"

const alertTimeLayout = "2006-01-02 15:04:05"

type EmergencyRequest struct {
	Type              models.EmergencyType `json:"type"`
	Location          string               `json:"location"`
	Description       string               `json:"description"`
	AdditionalContact string               `json:"additionalContact,omitempty"`
}

// DeliveryResult reports what happened to one alert. Err is set when the
// notifier failed and carries NOTIFICATION_FAILURE.
type DeliveryResult struct {
	Alert     *models.EmergencyAlert `json:"alert"`
	Delivered bool                   `json:"delivered"`
	Err       error                  `json:"-"`
}

// Recipients picks who gets an alert: the emergency contact's email and
// the patient's own, in that order, or fallback when neither is set.
func Recipients(patient *models.PatientContact, fallback string) []string {
	var out []string
	if e := strings.TrimSpace(patient.EmergencyEmail); e != "" {
		out = append(out, e)
	}
	if e := strings.TrimSpace(patient.Email); e != "" {
		if len(out) == 0 || !strings.EqualFold(out[0], e) {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		out = []string{fallback}
	}
	return out
}

func AlertSubject(t models.EmergencyType) string {
	return "🚨 EMERGENCY ALERT - " + string(t)
}

var alertTemplate = template.Must(template.New("alert").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
<div style="background-color: #ff4444; color: white; padding: 20px; text-align: center;">
<h1>🚨 EMERGENCY MEDICAL ALERT 🚨</h1>
</div>
<div style="padding: 20px;">
<h2>Emergency Details</h2>
<p><strong>Emergency Type:</strong> {{.Alert.Type}}</p>
<p><strong>Time:</strong> {{.Time}}</p>
<p><strong>Location:</strong> {{.Alert.Location}}</p>

<h2>Patient Information</h2>
<p><strong>Name:</strong> {{.Alert.Patient.FullName}}</p>
<p><strong>Email:</strong> {{.Alert.Patient.Email}}</p>
<p><strong>Phone:</strong> {{if .Alert.Patient.Phone}}{{.Alert.Patient.Phone}}{{else}}Not provided{{end}}</p>
{{- if .Alert.Patient.EmergencyContact}}
<p><strong>Emergency Contact:</strong> {{.Alert.Patient.EmergencyContact}}</p>
{{- end}}

<h2>Emergency Description</h2>
<p>{{.Alert.Description}}</p>
{{- if .Alert.AdditionalContact}}

<h2>Additional Contact on Scene</h2>
<p>{{.Alert.AdditionalContact}}</p>
{{- end}}

<div style="background-color: #ffeeee; padding: 15px; margin-top: 20px; border-left: 4px solid #ff4444;">
<h3>IMMEDIATE ACTION REQUIRED</h3>
<p>Please contact the patient immediately or dispatch emergency services to the location above.</p>
<p><strong>Emergency: 911 | Ambulance: 102 | Police: 100</strong></p>
</div>
</div>
<div style="padding: 10px; color: #888; font-size: 12px; text-align: center;">
<p>This is an automated emergency alert from PillsCare Healthcare Management System.</p>
<p>Generated at {{.Time}}</p>
</div>
</body>
</html>`))

// RenderAlert builds the HTML body of an alert email.
func RenderAlert(alert *models.EmergencyAlert) (string, error) {
	var buf bytes.Buffer
	err := alertTemplate.Execute(&buf, struct {
		Alert *models.EmergencyAlert
		Time  string
	}{alert, alert.DispatchedAt.Format(alertTimeLayout)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Dispatcher assembles emergency alerts and hands them to a notifier.
// Alerts are never retried or queued.
type Dispatcher struct {
	alerts   database.AlertStore
	patients database.PatientStore
	notifier notify.Notifier
	clock    timeutil.Clock
	fallback string
	metrics  *utils.MetricsCollector
	logger   *slog.Logger
}

func NewDispatcher(alerts database.AlertStore, patients database.PatientStore, notifier notify.Notifier, clock timeutil.Clock, fallback string, metrics *utils.MetricsCollector, logger *slog.Logger) *Dispatcher {
	if fallback == "" {
		fallback = DefaultFallbackEmail
	}
	return &Dispatcher{
		alerts:   alerts,
		patients: patients,
		notifier: notifier,
		clock:    clock,
		fallback: fallback,
		metrics:  metrics,
		logger:   logger,
	}
}

func knownEmergencyType(t models.EmergencyType) bool {
	for _, known := range models.EmergencyTypes {
		if t == known {
			return true
		}
	}
	return false
}

func validateEmergency(patient *models.PatientContact, req EmergencyRequest) error {
	if patient == nil || patient.UserID == uuid.Nil {
		return utils.NewValidationError("patient is required")
	}
	if strings.TrimSpace(string(req.Type)) == "" {
		return utils.NewValidationError("emergency type is required")
	}
	if !knownEmergencyType(req.Type) {
		return utils.NewValidationError("unknown emergency type " + strconv.Quote(string(req.Type)))
	}
	if strings.TrimSpace(req.Location) == "" {
		return utils.NewValidationError("location is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return utils.NewValidationError("description is required")
	}
	return nil
}

// Dispatch sends an alert for patient. A delivery failure is reported in the
// result, not as an error; the returned error is for invalid input or a
// failure to record the alert, in which case the result is still returned.
func (d *Dispatcher) Dispatch(ctx context.Context, patient *models.PatientContact, req EmergencyRequest) (*DeliveryResult, error) {
	startTime := time.Now()
	if err := validateEmergency(patient, req); err != nil {
		return nil, err
	}

	alert := &models.EmergencyAlert{
		ID:                uuid.New(),
		PatientID:         patient.UserID,
		Patient:           *patient,
		Type:              req.Type,
		Location:          strings.TrimSpace(req.Location),
		Description:       strings.TrimSpace(req.Description),
		AdditionalContact: strings.TrimSpace(req.AdditionalContact),
		Recipients:        Recipients(patient, d.fallback),
		DispatchedAt:      d.clock.Now(),
	}
	body, err := RenderAlert(alert)
	if err != nil {
		return nil, err
	}

	result := &DeliveryResult{Alert: alert}
	if err := d.notifier.SendAlert(ctx, alert.Recipients, AlertSubject(alert.Type), body); err != nil {
		d.logger.Error("emergency alert not delivered",
			"alert", alert.ID,
			"patient", alert.PatientID,
			"recipients", strings.Join(alert.Recipients, ","),
			"error", err,
		)
		result.Err = utils.NewNotificationError(err)
	} else {
		alert.Delivered = true
		result.Delivered = true
		d.logger.Warn("emergency alert dispatched", "alert", alert.ID, "patient", alert.PatientID, "type", alert.Type)
	}

	if d.metrics != nil {
		d.metrics.AlertDispatched(result.Delivered)
		d.metrics.AddOperationLatency("dispatch_emergency", time.Since(startTime))
	}

	if err := d.alerts.SaveEmergencyAlert(ctx, alert); err != nil {
		d.logger.Error("failed to record emergency alert", "alert", alert.ID, "error", err)
		return result, utils.StoreError("save emergency alert", err)
	}
	return result, nil
}

// DispatchFor looks up the patient's contact details and dispatches. A
// patient with no saved profile is alerted through the fallback address.
func (d *Dispatcher) DispatchFor(ctx context.Context, patientID uuid.UUID, req EmergencyRequest) (*DeliveryResult, error) {
	patient, err := d.patients.GetPatientContact(ctx, patientID)
	if utils.IsErrorCode(err, utils.ErrNotFound) {
		d.logger.Warn("no contact details for patient, using fallback address", "patient", patientID)
		patient, err = &models.PatientContact{UserID: patientID}, nil
	}
	if err != nil {
		return nil, utils.StoreError("get patient contact", err)
	}
	return d.Dispatch(ctx, patient, req)
}
