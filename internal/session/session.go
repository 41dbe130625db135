// Package session implements the incident console's orchestration engine.
//
// A Session owns the conversation log, the active toasts and the session
// flags. Each entry point (Submit, ShareHistory, RunDemo, Identify) takes its
// guard synchronously, runs the work in its own goroutine and returns a done
// channel that closes when the work has finished.
//
// Pipelines started independently, such as a chat query submitted while the
// demo is running, append to the log concurrently. Appends within one
// pipeline keep their order; the interleaving across pipelines is
// unspecified.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/raphaelgruber/medilink-console/internal/client"
	"github.com/raphaelgruber/medilink-console/internal/metrics"
	"github.com/raphaelgruber/medilink-console/internal/models"
)

// API is the set of MediLink collaborator calls the session makes.
// *client.Client implements it.
type API interface {
	ListHospitals(ctx context.Context) ([]models.Hospital, error)
	ListPatients(ctx context.Context) ([]models.Patient, error)
	IdentifyPatient(ctx context.Context, desc []float64) (*models.Identification, error)
	SendChatQuery(ctx context.Context, text string) (*models.ChatResponse, error)
	TranslateJargon(ctx context.Context, text string) (*models.JargonResult, error)
	ShareMedicalHistory(ctx context.Context, patientID, hospitalID models.ID) (*models.ShareResult, error)
}

var _ API = (*client.Client)(nil)

// Options configures a Session.
type Options struct {
	Pacing Pacing
	// SettleDelay is the pause between a successful allocation and the
	// automatic medical-history share.
	SettleDelay time.Duration
	ToastTTL    time.Duration
	// CallTimeout bounds every collaborator call.
	CallTimeout   time.Duration
	DemoPatientID string
	Logger        *slog.Logger
}

// DefaultOptions returns the console defaults.
func DefaultOptions() Options {
	return Options{
		Pacing:        DefaultPacing(),
		SettleDelay:   time.Second,
		ToastTTL:      DefaultToastTTL,
		CallTimeout:   15 * time.Second,
		DemoPatientID: "5",
	}
}

// State is a snapshot of the session flags and selections.
type State struct {
	Loading           bool                     `json:"loading"`
	DemoRunning       bool                     `json:"demo_running"`
	SharingHistory    bool                     `json:"sharing_history"`
	IdentifiedPatient *models.Patient          `json:"identified_patient,omitempty"`
	SelectedHospital  *models.SelectedHospital `json:"selected_hospital,omitempty"`
	Capacity          metrics.Capacity         `json:"capacity"`
	Messages          int                      `json:"messages"`
}

// closedDone is returned by rejected entry points.
var closedDone = func() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Session is one console session.
type Session struct {
	api    API
	opts   Options
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log      *Log
	notifier *Notifier
	bus      *bus

	mu        sync.RWMutex
	closed    bool
	loading   bool
	demo      bool
	sharing   bool
	patient   *models.Patient
	hospital  *models.SelectedHospital
	hospitals []models.Hospital
	patients  []models.Patient
	capacity  metrics.Capacity
}

// New creates a session that calls api. Zero ToastTTL, CallTimeout and
// DemoPatientID take their defaults; zero pacing and settle delay mean no pause.
func New(api API, opts Options) *Session {
	def := DefaultOptions()
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.ToastTTL <= 0 {
		opts.ToastTTL = def.ToastTTL
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = def.CallTimeout
	}
	if opts.DemoPatientID == "" {
		opts.DemoPatientID = def.DemoPatientID
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := newBus()
	return &Session{
		api:      api,
		opts:     opts,
		logger:   opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
		log:      NewLog(b.publish),
		notifier: NewNotifier(opts.ToastTTL, b.publish),
		bus:      b,
	}
}

// Close tears the session down: pending demo pauses and scheduled shares are
// cancelled, the log stops accepting entries and Close waits for in-flight
// work. Chat queries and started shares run to completion, bounded by the
// call timeout. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.log.Freeze()
	s.wg.Wait()
	s.notifier.Close()
	s.bus.close()
	s.logger.Debug("session closed")
}

// Wait blocks until all in-flight work, including scheduled shares, is done.
// Entry points must not be called concurrently with Wait.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Subscribe returns a channel of session events and a function that ends
// the subscription. The channel is closed by Close or by the cancel function.
func (s *Session) Subscribe() (<-chan Event, func()) {
	return s.bus.subscribe()
}

// Messages returns a copy of the conversation log.
func (s *Session) Messages() []models.Message {
	return s.log.Snapshot()
}

// Toasts returns the active toasts, oldest first.
func (s *Session) Toasts() []Toast {
	return s.notifier.Active()
}

// Dismiss removes a toast early.
func (s *Session) Dismiss(id string) {
	s.notifier.Dismiss(id)
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// State returns the current flags and selections.
func (s *Session) State() State {
	s.mu.RLock()
	st := s.stateLocked()
	s.mu.RUnlock()
	st.Messages = s.log.Len()
	return st
}

func (s *Session) stateLocked() State {
	st := State{
		Loading:        s.loading,
		DemoRunning:    s.demo,
		SharingHistory: s.sharing,
		Capacity:       s.capacity,
	}
	if s.patient != nil {
		p := *s.patient
		st.IdentifiedPatient = &p
	}
	if s.hospital != nil {
		h := *s.hospital
		st.SelectedHospital = &h
	}
	return st
}

// update applies fn under the session lock and publishes the new state.
func (s *Session) update(fn func()) {
	s.mu.Lock()
	fn()
	st := s.stateLocked()
	s.mu.Unlock()
	st.Messages = s.log.Len()
	s.bus.publish(Event{Kind: EventState, State: &st})
}

// startLocked registers a unit of background work. It fails once the session is
// closed. s.mu must be held.
func (s *Session) startLocked() bool {
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

// goTracked runs fn in a goroutine accounted for by Wait. The caller must
// have registered it with startLocked.
func (s *Session) goTracked(name string, done chan struct{}, fn func()) {
	go func() {
		defer s.wg.Done()
		if done != nil {
			defer close(done)
		}
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("session pipeline panicked", "pipeline", name, "panic", r)
			}
		}()
		fn()
	}()
}

// callContext bounds one collaborator call. Calls made from chat and share
// pipelines are detached from session teardown.
func (s *Session) callContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.opts.CallTimeout)
}

func (s *Session) detachedCallContext() (context.Context, context.CancelFunc) {
	return s.callContext(context.WithoutCancel(s.ctx))
}

// selectHospital records the selection and returns the identified patient's id.
func (s *Session) selectHospital(sel *models.SelectedHospital) models.ID {
	var patientID models.ID
	s.update(func() {
		s.hospital = sel
		if s.patient != nil {
			patientID = s.patient.ID
		}
	})
	return patientID
}

func (s *Session) appendMessage(role models.Role, format string, args ...any) {
	content := format
	if len(args) > 0 {
		content = fmt.Sprintf(format, args...)
	}
	s.log.Append(models.Message{Role: role, Content: content})
}
