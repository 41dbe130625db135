package session_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/medilink-console/internal/descriptor"
	"github.com/raphaelgruber/medilink-console/internal/models"
	"github.com/raphaelgruber/medilink-console/internal/session"
)

const (
	timeout = 5 * time.Second
	tick    = 5 * time.Millisecond
)

func TestRunDemoScript(t *testing.T) {
	var gotDesc []float64
	api := &fakeAPI{
		identify: func(ctx context.Context, desc []float64) (*models.Identification, error) {
			gotDesc = desc
			return matchAhmad(ctx, desc)
		},
		translate: simpleJargon,
		chat:      rashidResponse,
	}
	s := newSession(t, api, testOptions())

	done, accepted := s.RunDemo()
	require.True(t, accepted)
	waitDone(t, done)
	s.Wait()

	assert.Equal(t, descriptor.ForPatient("5"), gotDesc, "the demo patient's seeded descriptor")

	msgs := s.Messages()
	texts := contents(msgs)
	require.GreaterOrEqual(t, len(msgs), 10)

	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Contains(t, texts[0], "Dubai Mall")
	assert.Contains(t, texts[1], "Scanning biometrics")
	assert.Equal(t, "Patient identified: Ahmad Hassan (95% confidence)", texts[2])
	assert.Equal(t, "Medical history:\n"+
		"Allergies: Penicillin\n"+
		"Chronic conditions: Hypertension\n"+
		"Emergency contact: Fatima Hassan (Wife) +971-50-123-4567", texts[3])
	assert.Contains(t, texts[4], "Translating medical jargon")
	assert.Contains(t, texts[5], "Plain language: Severe blood loss")
	assert.Contains(t, texts[5], "hemorrhagic shock, subdural hematoma", "default terms when none are returned")
	require.NotNil(t, msgs[5].JargonTranslation)

	assert.Equal(t, models.RoleUser, msgs[6].Role)
	assert.Contains(t, texts[6], "Needs O+ blood", "uses the identified blood type")
	assert.Contains(t, texts[7], "Processing")
	assert.Equal(t, "Routing to Rashid Hospital", texts[8])
	assert.True(t, msgs[9].Structured())
	assert.Nil(t, msgs[9].JargonTranslation)

	// The share and the completion message come from different goroutines.
	assert.Contains(t, texts, "Medical history shared with Rashid Hospital")
	assert.Contains(t, strings.Join(texts[10:], "\n"), "Demo complete: emergency processed in")

	st := s.State()
	assert.False(t, st.DemoRunning)
	require.NotNil(t, st.IdentifiedPatient)
	assert.Equal(t, models.ID("5"), st.IdentifiedPatient.ID)
	require.NotNil(t, st.SelectedHospital)
	assert.Equal(t, "9 min", st.SelectedHospital.ETA)
	assert.Len(t, toastsOfKind(s, session.ToastInfo), 1)
}

func TestRunDemoResetsSession(t *testing.T) {
	api := &fakeAPI{chat: rashidResponse}
	s := newSession(t, api, testOptions())

	done, _ := s.Submit("earlier query")
	waitDone(t, done)
	require.NotNil(t, s.State().SelectedHospital)

	release := make(chan struct{})
	api.mu.Lock()
	api.identify = func(ctx context.Context, desc []float64) (*models.Identification, error) {
		<-release
		return &models.Identification{}, nil
	}
	api.mu.Unlock()

	done, accepted := s.RunDemo()
	require.True(t, accepted)

	assert.Nil(t, s.State().SelectedHospital)
	require.Eventually(t, func() bool { return len(s.Messages()) == 2 }, timeout, tick)
	assert.NotContains(t, contents(s.Messages()), "earlier query")

	close(release)
	waitDone(t, done)
}

func TestRunDemoRejectedWhileRunning(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAPI{identify: func(ctx context.Context, desc []float64) (*models.Identification, error) {
		<-release
		return matchAhmad(ctx, desc)
	}}
	s := newSession(t, api, testOptions())

	done, accepted := s.RunDemo()
	require.True(t, accepted)
	require.Eventually(t, func() bool { return len(s.Messages()) == 2 }, timeout, tick)
	before := s.Messages()

	_, accepted = s.RunDemo()
	assert.False(t, accepted)
	assert.Equal(t, before, s.Messages(), "a rejected run does not reset the log")
	assert.True(t, s.State().DemoRunning)

	close(release)
	waitDone(t, done)
	s.Wait()

	assert.False(t, s.State().DemoRunning)
	assert.Len(t, api.chatCalls(), 1, "only one script ran")
}

func TestRunDemoContinuesAfterIdentificationFailure(t *testing.T) {
	api := &fakeAPI{
		identify: func(ctx context.Context, desc []float64) (*models.Identification, error) {
			return nil, errNetwork
		},
		translate: simpleJargon,
		chat:      rashidResponse,
	}
	s := newSession(t, api, testOptions())

	done, _ := s.RunDemo()
	waitDone(t, done)
	s.Wait()

	texts := contents(s.Messages())
	assert.Contains(t, texts[2], "Biometric identification failed: network unreachable")
	assert.Len(t, api.translateCalls(), 1, "step 4 ran")
	require.Len(t, api.chatCalls(), 1, "step 7 ran")
	assert.Contains(t, api.chatCalls()[0], "Needs O- blood", "default blood type without a patient")
	assert.Empty(t, api.shareCalls(), "no patient, no share")
	assert.Contains(t, texts[len(texts)-1], "Demo complete")
	assert.False(t, s.State().DemoRunning)
	assert.NotEmpty(t, toastsOfKind(s, session.ToastError))
}

func TestRunDemoNoMatch(t *testing.T) {
	api := &fakeAPI{translate: simpleJargon}
	s := newSession(t, api, testOptions())

	done, _ := s.RunDemo()
	waitDone(t, done)

	texts := contents(s.Messages())
	assert.Contains(t, texts[2], "No matching patient found")
	assert.Nil(t, s.State().IdentifiedPatient)
}

func TestRunDemoJargonFallback(t *testing.T) {
	api := &fakeAPI{identify: matchAhmad, chat: rashidResponse}
	s := newSession(t, api, testOptions())

	done, _ := s.RunDemo()
	waitDone(t, done)
	s.Wait()

	assert.Contains(t, contents(s.Messages()), session.JargonFallback)
	assert.Len(t, api.chatCalls(), 1, "the script carries on after the fallback")
}

func TestRunDemoChatFailure(t *testing.T) {
	api := &fakeAPI{
		identify:  matchAhmad,
		translate: simpleJargon,
		chat: func(ctx context.Context, text string) (*models.ChatResponse, error) {
			return nil, errNetwork
		},
	}
	s := newSession(t, api, testOptions())

	done, _ := s.RunDemo()
	waitDone(t, done)
	s.Wait()

	texts := contents(s.Messages())
	assert.Equal(t, "Error: network unreachable", texts[len(texts)-1])
	assert.False(t, s.State().DemoRunning)
	assert.Empty(t, api.shareCalls())
}

func TestCloseCancelsDemoPacing(t *testing.T) {
	opts := testOptions()
	opts.Pacing = session.DefaultPacing().Scaled(3600)
	api := &fakeAPI{}
	s := session.New(api, opts)

	done, accepted := s.RunDemo()
	require.True(t, accepted)
	require.Eventually(t, func() bool { return len(s.Messages()) == 1 }, timeout, tick)

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	waitDone(t, closed)
	waitDone(t, done)

	assert.Len(t, s.Messages(), 1, "nothing is appended after teardown")
	assert.False(t, s.State().DemoRunning)
	assert.Empty(t, api.chatCalls())

	_, accepted = s.RunDemo()
	assert.False(t, accepted, "a closed session rejects new work")
}

func TestPacingApplied(t *testing.T) {
	opts := testOptions()
	opts.Pacing = session.Pacing{Incident: 150 * time.Millisecond}
	s := newSession(t, &fakeAPI{}, opts)

	done, _ := s.RunDemo()
	require.Eventually(t, func() bool { return len(s.Messages()) == 1 }, timeout, tick)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, s.Messages(), 1, "second step waits for the pause")

	waitDone(t, done)
	assert.Greater(t, len(s.Messages()), 1)
}

func TestPacingScaled(t *testing.T) {
	p := session.DefaultPacing()
	assert.Equal(t, 2*time.Second, p.Incident)
	assert.Equal(t, time.Second, p.TranslateStatus)

	half := p.Scaled(0.5)
	assert.Equal(t, time.Second, half.Incident)
	assert.Equal(t, 750*time.Millisecond, half.Scanning)
	assert.Zero(t, p.Scaled(0).Response)
}

func TestPacingTotal(t *testing.T) {
	assert.Equal(t, 13500*time.Millisecond, session.DefaultPacing().Total())
	assert.Zero(t, session.Pacing{}.Total())
}
