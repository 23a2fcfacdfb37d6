package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"pillscare/internal/api"
	"pillscare/internal/middleware"
	"pillscare/internal/models"

	"github.com/google/uuid"
)

type SimConfig struct {
	NumPatients        int
	NumDoctors         int
	SimulationTime     time.Duration
	MessageFrequency   float64 // messages per patient per hour
	ChatFrequency      float64 // chatbot questions per patient per hour
	EmergencyFrequency float64 // alerts per patient per hour
	TickInterval       time.Duration
	DisconnectRate     float64
	ReconnectRate      float64
	ZipfS              float64
	EngineURL          string
	JWTSecret          string
}

type SimulationStats struct {
	mu              sync.RWMutex
	StartTime       time.Time
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	AverageLatency  time.Duration
	ActiveUsers     int
	TotalMessages   int
	TotalReplies    int
	TotalChats      int
	TotalReminders  int
	TotalAlerts     int
	totalLatency    time.Duration
}

// SimulatedUser is one patient or doctor with its bearer token.
type SimulatedUser struct {
	ID          uuid.UUID
	Name        string
	Email       string
	Doctor      bool
	Token       string
	IsConnected bool
	LastActive  time.Time
}

// Simulator drives synthetic patient and doctor traffic against a running
// engine over HTTP.
type Simulator struct {
	config   SimConfig
	stats    *SimulationStats
	auth     *middleware.Authenticator
	patients []*SimulatedUser
	doctors  []*SimulatedUser
	client   *http.Client
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewSimulator mints tokens with the engine's shared secret, so the secret
// must match the one the engine was started with.
func NewSimulator(config SimConfig, logger *slog.Logger) (*Simulator, error) {
	auth, err := middleware.NewAuthenticator(config.JWTSecret, logger)
	if err != nil {
		return nil, err
	}
	if config.TickInterval <= 0 {
		config.TickInterval = 500 * time.Millisecond
	}
	if config.ZipfS <= 1 {
		config.ZipfS = 1.07
	}
	return &Simulator{
		config: config,
		stats:  &SimulationStats{StartTime: time.Now()},
		auth:   auth,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}, nil
}

func (s *Simulator) Run(ctx context.Context) error {
	s.logger.Info("starting care simulation",
		"patients", s.config.NumPatients,
		"doctors", s.config.NumDoctors,
		"duration", s.config.SimulationTime)

	if err := s.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.SimulateActivities(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.simulateConnectivity(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.collectMetrics(ctx)
	}()

	wg.Wait()
	return nil
}

func (s *Simulator) initialize(ctx context.Context) error {
	s.logger.Info("phase 1: creating users")
	s.mu.Lock()
	for i := 0; i < s.config.NumDoctors; i++ {
		u, err := s.newUser(fmt.Sprintf("doctor_%d", i), true)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.doctors = append(s.doctors, u)
	}
	for i := 0; i < s.config.NumPatients; i++ {
		u, err := s.newUser(fmt.Sprintf("patient_%d", i), false)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.patients = append(s.patients, u)
	}
	s.mu.Unlock()
	if len(s.doctors) == 0 || len(s.patients) == 0 {
		return fmt.Errorf("need at least one doctor and one patient")
	}

	s.logger.Info("phase 2: registering patient profiles and reminders")

	// A small worker pool keeps the engine from being flooded at start-up.
	const numWorkers = 5
	jobs := make(chan *SimulatedUser)
	errs := make(chan error, len(s.patients))
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for patient := range jobs {
				if err := s.setupPatient(ctx, patient); err != nil {
					errs <- fmt.Errorf("%s: %w", patient.Name, err)
				}
			}
		}()
	}
	for _, p := range s.patients {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		failed++
		s.logger.Warn("patient setup failed", "error", err)
	}
	if failed == len(s.patients) {
		return fmt.Errorf("no patient could be set up")
	}

	s.logger.Info("initialization completed", "patients", len(s.patients), "doctors", len(s.doctors))
	return nil
}

func (s *Simulator) newUser(name string, doctor bool) (*SimulatedUser, error) {
	id := uuid.New()
	token, err := s.auth.GenerateToken(id)
	if err != nil {
		return nil, fmt.Errorf("failed to mint token for %s: %w", name, err)
	}
	return &SimulatedUser{
		ID:          id,
		Name:        name,
		Email:       name + "@test.com",
		Doctor:      doctor,
		Token:       token,
		IsConnected: true,
		LastActive:  time.Now(),
	}, nil
}

var medicines = []struct {
	name   string
	dosage string
}{
	{"Metformin", "500mg"},
	{"Lisinopril", "10mg"},
	{"Atorvastatin", "20mg"},
	{"Amoxicillin", "250mg"},
	{"Ibuprofen", "200mg"},
	{"Vitamin D", "1 tablet"},
}

func (s *Simulator) setupPatient(ctx context.Context, patient *SimulatedUser) error {
	profile := models.PatientContact{
		FullName:         patient.Name,
		Email:            patient.Email,
		Phone:            fmt.Sprintf("555-01%02d", rand.Intn(100)),
		EmergencyContact: "Next of kin",
		EmergencyEmail:   "kin_" + patient.Email,
	}
	if _, err := s.makeRequest(ctx, patient, http.MethodPut, "/profile", profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	med := medicines[rand.Intn(len(medicines))]
	freq := models.Frequencies[rand.Intn(len(models.Frequencies))]
	today := time.Now().UTC()
	reminder := api.CreateReminderRequest{
		MedicineName: med.name,
		Dosage:       med.dosage,
		Frequency:    string(freq),
		StartDate:    today.Format("2006-01-02"),
		EndDate:      today.AddDate(0, 0, 7+rand.Intn(30)).Format("2006-01-02"),
	}
	if _, err := s.makeRequest(ctx, patient, http.MethodPost, "/reminders", reminder); err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}

	s.stats.mu.Lock()
	s.stats.TotalReminders++
	s.stats.mu.Unlock()
	return nil
}

// getZipfIndex returns an index in [0, n) skewed towards the front, so a few
// doctors receive most of the traffic.
func (s *Simulator) getZipfIndex(n int) int {
	if n <= 1 {
		return 0
	}
	zipf := rand.NewZipf(rand.New(rand.NewSource(time.Now().UnixNano())),
		s.config.ZipfS, 1, uint64(n-1))
	return int(zipf.Uint64())
}

// makeRequest sends data as JSON with the user's bearer token and returns
// the raw response body.
func (s *Simulator) makeRequest(ctx context.Context, user *SimulatedUser, method, endpoint string, data interface{}) ([]byte, error) {
	var body io.Reader
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.EngineURL+endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+user.Token)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.recordRequestMetrics(start, err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err == nil && resp.StatusCode >= 400 {
		var apiErr api.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Code != "" {
			err = fmt.Errorf("request failed with status %d: %s (%s)", resp.StatusCode, apiErr.Error, apiErr.Code)
		} else {
			err = fmt.Errorf("request failed with status: %d", resp.StatusCode)
		}
	}
	s.recordRequestMetrics(start, err)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Simulator) simulateConnectivity(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			for _, users := range [][]*SimulatedUser{s.patients, s.doctors} {
				for _, user := range users {
					if user.IsConnected && rand.Float64() < s.config.DisconnectRate {
						user.IsConnected = false
						s.logger.Debug("user disconnected", "user", user.Name)
					} else if !user.IsConnected && rand.Float64() < s.config.ReconnectRate {
						user.IsConnected = true
						user.LastActive = time.Now()
						s.logger.Debug("user reconnected", "user", user.Name)
					}
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *Simulator) recordRequestMetrics(start time.Time, err error) {
	latency := time.Since(start)

	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()

	s.stats.TotalRequests++
	if err != nil {
		s.stats.FailedRequests++
	} else {
		s.stats.SuccessRequests++
	}
	s.stats.totalLatency += latency
	s.stats.AverageLatency = s.stats.totalLatency / time.Duration(s.stats.TotalRequests)
}

func (s *Simulator) connectedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, users := range [][]*SimulatedUser{s.patients, s.doctors} {
		for _, u := range users {
			if u.IsConnected {
				n++
			}
		}
	}
	return n
}

func (s *Simulator) collectMetrics(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			active := s.connectedCount()
			m := s.GetMetrics()
			s.logger.Info("simulation metrics",
				"elapsed", time.Since(s.stats.StartTime).Round(time.Second),
				"req_per_sec", fmt.Sprintf("%.2f", m.RequestsPerSecond),
				"avg_latency", m.AverageLatency,
				"active_users", active,
				"messages", m.TotalMessages,
				"replies", m.TotalReplies,
				"chats", m.TotalChats,
				"alerts", m.TotalAlerts,
				"failed", m.ErrorCount)
		}
	}
}

// SimulationMetrics holds the metrics of the simulation
type SimulationMetrics struct {
	TotalUsers        int
	ActiveUsers       int
	TotalMessages     int
	TotalReplies      int
	TotalChats        int
	TotalReminders    int
	TotalAlerts       int
	AverageLatency    time.Duration
	ErrorCount        int
	RequestsPerSecond float64
}

// GetMetrics returns the current simulation metrics
func (s *Simulator) GetMetrics() SimulationMetrics {
	active := s.connectedCount()

	s.mu.RLock()
	totalUsers := len(s.patients) + len(s.doctors)
	s.mu.RUnlock()

	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()
	s.stats.ActiveUsers = active

	elapsed := time.Since(s.stats.StartTime)
	return SimulationMetrics{
		TotalUsers:        totalUsers,
		ActiveUsers:       active,
		TotalMessages:     s.stats.TotalMessages,
		TotalReplies:      s.stats.TotalReplies,
		TotalChats:        s.stats.TotalChats,
		TotalReminders:    s.stats.TotalReminders,
		TotalAlerts:       s.stats.TotalAlerts,
		AverageLatency:    s.stats.AverageLatency,
		ErrorCount:        int(s.stats.FailedRequests),
		RequestsPerSecond: float64(s.stats.TotalRequests) / elapsed.Seconds(),
	}
}
