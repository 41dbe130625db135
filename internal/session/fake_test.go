package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/raphaelgruber/medilink-console/internal/models"
	"github.com/raphaelgruber/medilink-console/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errNetwork = errors.New("network unreachable")

// fakeAPI is a scriptable MediLink collaborator.
type fakeAPI struct {
	mu sync.Mutex

	hospitals []models.Hospital
	patients  []models.Patient

	identify  func(ctx context.Context, desc []float64) (*models.Identification, error)
	chat      func(ctx context.Context, text string) (*models.ChatResponse, error)
	translate func(ctx context.Context, text string) (*models.JargonResult, error)
	share     func(ctx context.Context, patientID, hospitalID models.ID) (*models.ShareResult, error)

	chatQueries []string
	translated  []string
	shares      [][2]models.ID
	identified  int
}

func (f *fakeAPI) ListHospitals(ctx context.Context) ([]models.Hospital, error) {
	return f.hospitals, nil
}

func (f *fakeAPI) ListPatients(ctx context.Context) ([]models.Patient, error) {
	return f.patients, nil
}

func (f *fakeAPI) IdentifyPatient(ctx context.Context, desc []float64) (*models.Identification, error) {
	f.mu.Lock()
	f.identified++
	fn := f.identify
	f.mu.Unlock()
	if fn == nil {
		return &models.Identification{MatchFound: false}, nil
	}
	return fn(ctx, desc)
}

func (f *fakeAPI) SendChatQuery(ctx context.Context, text string) (*models.ChatResponse, error) {
	f.mu.Lock()
	f.chatQueries = append(f.chatQueries, text)
	fn := f.chat
	f.mu.Unlock()
	if fn == nil {
		return &models.ChatResponse{}, nil
	}
	return fn(ctx, text)
}

func (f *fakeAPI) TranslateJargon(ctx context.Context, text string) (*models.JargonResult, error) {
	f.mu.Lock()
	f.translated = append(f.translated, text)
	fn := f.translate
	f.mu.Unlock()
	if fn == nil {
		return nil, errNetwork
	}
	return fn(ctx, text)
}

func (f *fakeAPI) ShareMedicalHistory(ctx context.Context, patientID, hospitalID models.ID) (*models.ShareResult, error) {
	f.mu.Lock()
	f.shares = append(f.shares, [2]models.ID{patientID, hospitalID})
	fn := f.share
	f.mu.Unlock()
	if fn == nil {
		return &models.ShareResult{Success: true, Shared: &models.SharedRecord{Hospital: "Rashid Hospital"}}, nil
	}
	return fn(ctx, patientID, hospitalID)
}

func (f *fakeAPI) shareCalls() [][2]models.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]models.ID(nil), f.shares...)
}

func (f *fakeAPI) chatCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.chatQueries...)
}

func (f *fakeAPI) translateCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.translated...)
}

// Canned responses.

func ahmad() *models.Patient {
	return &models.Patient{
		ID:        "5",
		Name:      "Ahmad Hassan",
		Age:       45,
		BloodType: "O+",
		MedicalHistory: map[string]any{
			"allergies":          []any{"Penicillin"},
			"chronic_conditions": []any{"Hypertension"},
			"emergency_contact":  map[string]any{"name": "Fatima Hassan", "relationship": "Wife", "phone": "+971-50-123-4567"},
		},
	}
}

func matchAhmad(ctx context.Context, desc []float64) (*models.Identification, error) {
	return &models.Identification{MatchFound: true, Confidence: 0.953, Patient: ahmad(), Method: "demo_mode"}, nil
}

func rashidResponse(ctx context.Context, text string) (*models.ChatResponse, error) {
	return &models.ChatResponse{
		NaturalResponse: "Routing to Rashid Hospital",
		Understood:      models.Understanding{"severity": "critical", "needs_blood": true, "blood_type": "O+"},
		Allocation: &models.Allocation{
			AllocatedHospital: &models.AllocatedHospital{Hospital: models.Hospital{ID: "1", Name: "Rashid Hospital"}},
			DistanceKm:        models.Ptr(4.2),
			EtaMinutes:        models.Ptr(9.0),
		},
	}, nil
}

func simpleJargon(ctx context.Context, text string) (*models.JargonResult, error) {
	return &models.JargonResult{Original: text, Simple: "Severe blood loss and bleeding on the brain."}, nil
}

// testOptions disables pacing and the settle delay.
func testOptions() session.Options {
	return session.Options{
		CallTimeout: 2 * time.Second,
		ToastTTL:    time.Minute,
	}
}

func newSession(t *testing.T, api session.API, opts session.Options) *session.Session {
	t.Helper()
	s := session.New(api, opts)
	t.Cleanup(s.Close)
	return s
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish")
	}
}

func contents(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func toastsOfKind(s *session.Session, kind session.ToastKind) []session.Toast {
	var out []session.Toast
	for _, t := range s.Toasts() {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}
