package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raphaelgruber/medilink-console/internal/client"
	"github.com/raphaelgruber/medilink-console/internal/descriptor"
	"github.com/raphaelgruber/medilink-console/internal/models"
)

const (
	demoIncident = "Emergency at Dubai Mall! A man has collapsed near the fountain. " +
		"He is unconscious and bleeding heavily from a head wound."

	demoJargon = "Patient presents with hemorrhagic shock secondary to subdural hematoma " +
		"with midline shift. Type and cross-match stat."

	// JargonFallback is shown when the jargon translator is unavailable.
	JargonFallback = "The patient has lost a lot of blood and there is bleeding pressing on the brain. " +
		"Doctors need to test the patient's blood type right away so they can give a transfusion."

	defaultBloodType = "O-"
)

var defaultJargonTerms = []string{
	"hemorrhagic shock",
	"subdural hematoma",
	"midline shift",
	"type and cross-match",
}

// RunDemo resets the session and plays the scripted incident. It is
// rejected while a demo is already running. Close cancels the remaining
// steps.
func (s *Session) RunDemo() (<-chan struct{}, bool) {
	s.mu.Lock()
	if s.demo || !s.startLocked() {
		s.mu.Unlock()
		return closedDone, false
	}
	s.demo = true
	s.patient = nil
	s.hospital = nil
	s.log.Reset()
	ctx, cancel := context.WithCancel(s.ctx)
	s.mu.Unlock()
	s.update(func() {})

	s.logger.Info("demo started", "patient_id", s.opts.DemoPatientID)

	done := make(chan struct{})
	s.goTracked("demo", done, func() {
		defer s.update(func() { s.demo = false })
		defer cancel()

		if err := s.runDemo(ctx); err != nil {
			s.logger.Info("demo cancelled", "error", err)
			return
		}
		s.logger.Info("demo finished")
	})
	return done, true
}

// runDemo plays the script. Collaborator failures are recorded and the
// script carries on; only cancellation ends it early.
func (s *Session) runDemo(ctx context.Context) error {
	p := pacer{ctx: ctx}
	pace := s.opts.Pacing

	// 1. Incident.
	s.log.Append(models.Message{Role: models.RoleUser, Content: demoIncident})
	if err := p.wait(pace.Incident); err != nil {
		return err
	}

	// 2. Biometrics.
	s.appendMessage(models.RoleSystem, "Scanning biometrics to identify the patient...")
	if err := p.wait(pace.Scanning); err != nil {
		return err
	}

	// 3. Identification.
	s.identify(ctx, descriptor.ForPatient(s.opts.DemoPatientID))
	if err := p.wait(pace.Identified); err != nil {
		return err
	}

	// 4. Jargon.
	s.appendMessage(models.RoleSystem, "Translating medical jargon for the family...")
	if err := p.wait(pace.TranslateStatus); err != nil {
		return err
	}
	if err := s.translateDemoJargon(ctx); err != nil {
		return err
	}
	if err := p.wait(pace.Translated); err != nil {
		return err
	}

	// 5. Synthetic query.
	query := demoQuery(s.identifiedBloodType())
	s.log.Append(models.Message{Role: models.RoleUser, Content: query})
	if err := p.wait(pace.Query); err != nil {
		return err
	}

	// 6. Processing.
	s.appendMessage(models.RoleSystem, "Processing: understanding the request, allocating a hospital and alerting donors...")
	if err := p.wait(pace.Processing); err != nil {
		return err
	}

	// 7. Allocation.
	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	start := time.Now()
	resp, err := s.api.SendChatQuery(callCtx, query)
	elapsed := time.Since(start).Milliseconds()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		msg := client.ErrorMessage(err)
		s.logger.Warn("demo query failed", "error", err)
		s.appendMessage(models.RoleAssistant, "Error: %s", msg)
		s.notifier.Notify(ToastError, msg)
		return nil
	}

	s.applyResponse(resp, false)
	if err := p.wait(pace.Response); err != nil {
		return err
	}
	s.appendMessage(models.RoleSystem, "Demo complete: emergency processed in %d ms.", elapsed)
	s.notifier.Notify(ToastInfo, fmt.Sprintf("Demo completed in %d ms", elapsed))
	return nil
}

// translateDemoJargon records the plain-language version of the demo's
// clinical note, or the fallback text when translation fails.
func (s *Session) translateDemoJargon(ctx context.Context) error {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	res, err := s.api.TranslateJargon(callCtx, demoJargon)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		s.logger.Warn("jargon translation failed", "error", err)
		s.log.Append(models.Message{Role: models.RoleAssistant, Content: JargonFallback})
		s.notifier.Notify(ToastError, "Jargon translation unavailable")
		return nil
	}

	terms := res.Terms
	if len(terms) == 0 {
		terms = defaultJargonTerms
	}
	s.log.Append(models.Message{
		Role: models.RoleAssistant,
		Content: fmt.Sprintf("Medical: %s\n\nPlain language: %s\n\nTerms explained: %s",
			demoJargon, res.Simple, strings.Join(terms, ", ")),
		JargonTranslation: res,
	})
	return nil
}

func (s *Session) identifiedBloodType() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.patient != nil && s.patient.BloodType != "" {
		return s.patient.BloodType
	}
	return defaultBloodType
}

func demoQuery(bloodType string) string {
	return fmt.Sprintf("Critical emergency at Dubai Mall: unconscious adult with a severe head injury "+
		"and heavy bleeding. Needs %s blood urgently. Find the nearest trauma center.", bloodType)
}
