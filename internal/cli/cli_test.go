package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/medilink-console/internal/descriptor"
	"github.com/raphaelgruber/medilink-console/internal/metrics"
	"github.com/raphaelgruber/medilink-console/internal/models"
	"github.com/raphaelgruber/medilink-console/internal/session"
)

// fakeAPI answers with canned data and records shares.
type fakeAPI struct {
	mu      sync.Mutex
	chatErr error
	shares  [][2]models.ID
}

func (a *fakeAPI) ListHospitals(ctx context.Context) ([]models.Hospital, error) {
	return []models.Hospital{
		{ID: "1", Name: "Rashid Hospital", ICUBedsAvailable: "12", HasTrauma: true,
			BloodStock: map[string]models.Count{"O+": "8", "A+": "4"}},
		{ID: "2", Name: "Dubai Hospital", ICUBedsAvailable: "8"},
	}, nil
}

func (a *fakeAPI) ListPatients(ctx context.Context) ([]models.Patient, error) {
	return []models.Patient{{ID: "5", Name: "Ahmad Hassan", BloodType: "O+"}}, nil
}

func (a *fakeAPI) IdentifyPatient(ctx context.Context, desc []float64) (*models.Identification, error) {
	return &models.Identification{
		MatchFound: true,
		Confidence: 0.95,
		Patient: &models.Patient{ID: "5", Name: "Ahmad Hassan", BloodType: "O+",
			MedicalHistory: map[string]any{"allergies": []any{"Penicillin"}}},
	}, nil
}

func (a *fakeAPI) SendChatQuery(ctx context.Context, text string) (*models.ChatResponse, error) {
	if a.chatErr != nil {
		return nil, a.chatErr
	}
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

func (a *fakeAPI) TranslateJargon(ctx context.Context, text string) (*models.JargonResult, error) {
	return &models.JargonResult{Simple: "plain"}, nil
}

func (a *fakeAPI) ShareMedicalHistory(ctx context.Context, patientID, hospitalID models.ID) (*models.ShareResult, error) {
	a.mu.Lock()
	a.shares = append(a.shares, [2]models.ID{patientID, hospitalID})
	a.mu.Unlock()
	return &models.ShareResult{Success: true, Shared: &models.SharedRecord{Hospital: "Rashid Hospital"}}, nil
}

func newTestSession(t *testing.T, api session.API) *session.Session {
	t.Helper()
	sess := session.New(api, session.Options{CallTimeout: 2 * time.Second, ToastTTL: time.Minute})
	t.Cleanup(sess.Close)
	return sess
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		line string
		want input
	}{
		{"", input{kind: inputEmpty}},
		{"   ", input{kind: inputEmpty}},
		{"  patient bleeding ", input{kind: inputQuery, arg: "  patient bleeding "}},
		{"/demo", input{kind: inputDemo}},
		{"/DEMO", input{kind: inputDemo}},
		{"/identify 5", input{kind: inputIdentify, arg: "5"}},
		{"/id   7 ", input{kind: inputIdentify, arg: "7"}},
		{"/identify", input{kind: inputIdentify}},
		{"/share", input{kind: inputShare}},
		{"/refresh", input{kind: inputRefresh}},
		{"/help", input{kind: inputHelp}},
		{"/q", input{kind: inputQuit}},
		{"/launch", input{kind: inputUnknown, arg: "launch"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseInput(tt.line), "line %q", tt.line)
	}
}

func TestFormatStructuredMessage(t *testing.T) {
	msg := models.Message{
		Role:       models.RoleAssistant,
		Understood: models.Understanding{"severity": "critical", "needs_blood": true, "blood_type": "O-"},
		Allocation: &models.Allocation{
			AllocatedHospital: &models.AllocatedHospital{
				Hospital: models.Hospital{ID: "1", Name: "Rashid Hospital"},
				Distance: models.Ptr(6.0),
				ETA:      "14 min",
			},
			DistanceKm:    models.Ptr(4.2),
			DonorsAlerted: 3,
		},
		JargonTranslation: &models.JargonResult{Simple: "Heavy bleeding"},
	}

	got := formatMessage(msg)
	assert.Equal(t, "Understood: severity critical, needs O- blood\n"+
		"Allocation: Rashid Hospital, 4.2 km, ETA 14 min, 3 donors alerted\n"+
		"Plain language: Heavy bleeding", got)

	assert.Equal(t, "hello", formatMessage(models.Message{Role: models.RoleUser, Content: "hello"}))
	assert.Equal(t, "no hospital available", formatAllocation(&models.Allocation{}))
	assert.Equal(t, "no hospital available", formatAllocation(&models.Allocation{
		AllocatedHospital: &models.AllocatedHospital{ETA: "0 min"},
	}))
}

func TestFormatState(t *testing.T) {
	assert.Equal(t, "idle", formatState(session.State{}))

	st := session.State{
		Loading:           true,
		SharingHistory:    true,
		IdentifiedPatient: &models.Patient{Name: "Ahmad Hassan", BloodType: "O+"},
		SelectedHospital: &models.SelectedHospital{
			HospitalRef: models.HospitalRef{ID: "1", Name: "Rashid Hospital"},
			ETA:         "9 min",
		},
	}
	assert.Equal(t, "Patient: Ahmad Hassan (O+) | Hospital: Rashid Hospital, 9 min | processing, sharing history", formatState(st))
}

func TestFormatEvent(t *testing.T) {
	line, ok := formatEvent(session.Event{Kind: session.EventMessage,
		Message: &models.Message{Role: models.RoleSystem, Content: "Scanning"}}, false)
	assert.True(t, ok)
	assert.Equal(t, "System: Scanning", line)

	line, ok = formatEvent(session.Event{Kind: session.EventToast,
		Toast: &session.Toast{Kind: session.ToastError, Text: "Identification failed"}}, false)
	assert.True(t, ok)
	assert.Equal(t, "  [error] Identification failed", line)

	_, ok = formatEvent(session.Event{Kind: session.EventToastExpired, ToastID: "1"}, true)
	assert.False(t, ok)

	st := session.State{DemoRunning: true}
	_, ok = formatEvent(session.Event{Kind: session.EventState, State: &st}, false)
	assert.False(t, ok)
	line, ok = formatEvent(session.Event{Kind: session.EventState, State: &st}, true)
	assert.True(t, ok)
	assert.Equal(t, "  (demo running)", line)
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	printStats(&buf, metrics.Snapshot{})
	assert.Contains(t, buf.String(), "No API calls made.")

	c := metrics.NewCollector()
	c.RecordTiming(metrics.OpChatQuery, 120*time.Millisecond, false)
	c.RecordTiming(metrics.OpChatQuery, 80*time.Millisecond, true)

	buf.Reset()
	printStats(&buf, c.Snapshot())
	out := buf.String()
	assert.Contains(t, out, "Chat Query:")
	assert.Contains(t, out, "  Calls: 2, Total: 200ms")
	assert.Contains(t, out, "  Time: avg 100.0ms, min 80ms, max 120ms")
	assert.Contains(t, out, "  Failures: 1")
}

func TestPrintHospitals(t *testing.T) {
	hospitals, _ := (&fakeAPI{}).ListHospitals(context.Background())

	var buf bytes.Buffer
	printHospitals(&buf, hospitals, true)
	out := buf.String()
	assert.Contains(t, out, "Hospitals (2):")
	assert.Contains(t, out, "- Rashid Hospital (id 1) [trauma]")
	assert.Contains(t, out, "  Blood: A+ 4, O+ 8")
	assert.Contains(t, out, "Totals: 2 hospitals, 1 trauma centers, 20 ICU beds, 12 blood units")

	buf.Reset()
	printHospitals(&buf, nil, false)
	assert.Equal(t, "No hospitals found.\n", buf.String())
}

func TestPrintIdentification(t *testing.T) {
	id, _ := (&fakeAPI{}).IdentifyPatient(context.Background(), nil)

	var buf bytes.Buffer
	printIdentification(&buf, id)
	assert.Equal(t, "Patient identified: Ahmad Hassan (95% confidence)\n"+
		"  ID: 5, blood type O+\n"+
		"  Allergies: Penicillin\n", buf.String())

	buf.Reset()
	printIdentification(&buf, &models.Identification{Message: "No match above threshold"})
	assert.Equal(t, "No matching patient found.\n  No match above threshold\n", buf.String())
}

func TestRegistration(t *testing.T) {
	reg := newRegistration(" Sara Ali ", 29, "A-", []string{"Latex"}, "42")
	assert.Equal(t, "Sara Ali", reg.Name)
	assert.Equal(t, "A-", reg.BloodType)
	assert.Equal(t, map[string]any{"allergies": []string{"Latex"}}, reg.MedicalHistory)
	assert.Equal(t, descriptor.ForPatient("42"), reg.FaceDescriptor)

	bare := newRegistration("Omar", 0, "", nil, "")
	assert.Nil(t, bare.MedicalHistory)
	assert.Nil(t, bare.FaceDescriptor, "the API generates a descriptor when none is sent")

	var buf bytes.Buffer
	printRegistration(&buf, &models.RegistrationResult{Success: true,
		Patient: &models.Patient{ID: "11", Name: "Sara Ali", BloodType: "A-", Age: 29}})
	assert.Equal(t, "Patient registered: Sara Ali (id 11) A-, age 29\n", buf.String())

	buf.Reset()
	printRegistration(&buf, &models.RegistrationResult{Success: true, Updated: true})
	assert.Equal(t, "Patient updated.\n", buf.String())
}

func TestFeedURL(t *testing.T) {
	assert.Equal(t, "ws://127.0.0.1:8585/ws", feedURL("127.0.0.1:8585"))
}

func TestRunLinesQuery(t *testing.T) {
	sess := newTestSession(t, &fakeAPI{})

	var out bytes.Buffer
	err := runLines(context.Background(), sess, strings.NewReader("Critical patient needs O+ blood\n"), &out)
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "You: Critical patient needs O+ blood\n")
	assert.Contains(t, got, "MediLink: Routing to Rashid Hospital\n")
	assert.Contains(t, got, "  [success] Allocated to Rashid Hospital\n")
	assert.Contains(t, got, "MediLink: Understood: severity critical, needs O+ blood\n")
	assert.Less(t, strings.Index(got, "You:"), strings.Index(got, "MediLink: Routing"))
}

func TestRunLinesIdentifyThenQuerySharesHistory(t *testing.T) {
	api := &fakeAPI{}
	sess := newTestSession(t, api)

	var out bytes.Buffer
	script := "/identify 5\nPatient collapsed at the mall\n"
	require.NoError(t, runLines(context.Background(), sess, strings.NewReader(script), &out))

	got := out.String()
	assert.Contains(t, got, "System: Patient identified: Ahmad Hassan (95% confidence)\n")
	assert.Contains(t, got, "Medical history shared with Rashid Hospital")

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.shares, 1, "runLines waits for the scheduled share")
	assert.Equal(t, [2]models.ID{"5", "1"}, api.shares[0])
}

func TestRunLinesNotes(t *testing.T) {
	sess := newTestSession(t, &fakeAPI{chatErr: errors.New("connection refused")})

	var out bytes.Buffer
	script := "/launch\n/share\n/refresh\nhelp me\n/quit\nignored\n"
	require.NoError(t, runLines(context.Background(), sess, strings.NewReader(script), &out))

	got := out.String()
	assert.Contains(t, got, "Unknown command /launch. Type /help for commands.\n")
	assert.Contains(t, got, "Identify a patient and allocate a hospital first.\n")
	assert.Contains(t, got, "Directory: 2 hospitals, 1 trauma centers, 20 ICU beds, 12 blood units\n")
	assert.Contains(t, got, "MediLink: Error: connection refused\n")
	assert.NotContains(t, got, "ignored")
}

func TestRunLinesStopsOnCancel(t *testing.T) {
	sess := newTestSession(t, &fakeAPI{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A reader that never ends must not keep runLines alive.
	pr, pw := io.Pipe()
	defer pw.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- runLines(ctx, sess, pr, &bytes.Buffer{}) }()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runLines did not return after cancellation")
	}
}

func TestConsoleModelAppliesEvents(t *testing.T) {
	sess := newTestSession(t, &fakeAPI{})
	events := make(chan session.Event)
	m := newConsoleModel(context.Background(), sess, events, false, 10*time.Second)

	m.apply(session.Event{Kind: session.EventMessage, Index: 0,
		Message: &models.Message{Role: models.RoleUser, Content: "first"}})
	m.apply(session.Event{Kind: session.EventMessage, Index: 0,
		Message: &models.Message{Role: models.RoleUser, Content: "duplicate"}})
	require.Len(t, m.messages, 1)
	assert.Equal(t, "first", m.messages[0].Content)

	toast := session.Toast{ID: "1-abc", Kind: session.ToastSuccess, Text: "Allocated to Rashid Hospital"}
	m.apply(session.Event{Kind: session.EventToast, Toast: &toast})
	assert.Contains(t, m.renderContent(), "Allocated to Rashid Hospital")

	m.apply(session.Event{Kind: session.EventToastExpired, ToastID: "1-abc"})
	assert.Empty(t, m.toasts)

	st := session.State{DemoRunning: true}
	assert.NotNil(t, m.apply(session.Event{Kind: session.EventState, State: &st}), "demo start begins ticking")
	assert.False(t, m.demoStarted.IsZero())

	m.apply(session.Event{Kind: session.EventReset})
	assert.Empty(t, m.messages)

	st.DemoRunning = false
	m.apply(session.Event{Kind: session.EventState, State: &st})
	assert.True(t, m.demoStarted.IsZero())
}

func TestConsoleModelDemoProgress(t *testing.T) {
	sess := newTestSession(t, &fakeAPI{})
	m := newConsoleModel(context.Background(), sess, nil, false, 0)
	assert.Zero(t, m.demoProgress())

	m.demoTotal = time.Second
	m.demoStarted = time.Now().Add(-time.Hour)
	assert.Equal(t, 0.99, m.demoProgress(), "progress never reaches 100% while running")
}

func TestConsoleModelVisibleMessages(t *testing.T) {
	sess := newTestSession(t, &fakeAPI{})
	m := newConsoleModel(context.Background(), sess, nil, false, 0)
	for i := range 30 {
		m.messages = append(m.messages, models.Message{Role: models.RoleSystem, Content: strings.Repeat("x", i)})
	}

	assert.Len(t, m.visibleMessages(), defaultLogLines)

	m.height = 15
	visible := m.visibleMessages()
	assert.Len(t, visible, 5)
	assert.Equal(t, m.messages[29], visible[4])
}
