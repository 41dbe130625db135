package session

import (
	"context"
	"strings"

	"github.com/raphaelgruber/medilink-console/internal/client"
	"github.com/raphaelgruber/medilink-console/internal/descriptor"
	"github.com/raphaelgruber/medilink-console/internal/models"
)

// Identify looks up a registered patient by the descriptor seeded from
// patientID, as a capture of that patient's face would.
func (s *Session) Identify(patientID string) (<-chan struct{}, bool) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return closedDone, false
	}
	return s.IdentifyDescriptor(descriptor.ForPatient(patientID))
}

// IdentifyDescriptor looks up a patient by face descriptor. An empty
// descriptor is a valid probe.
func (s *Session) IdentifyDescriptor(desc []float64) (<-chan struct{}, bool) {
	if len(desc) != 0 && len(desc) != descriptor.Length {
		return closedDone, false
	}

	s.mu.Lock()
	ok := s.startLocked()
	s.mu.Unlock()
	if !ok {
		return closedDone, false
	}

	done := make(chan struct{})
	s.goTracked("identify", done, func() {
		s.identify(s.ctx, desc)
	})
	return done, true
}

// identify runs one biometric lookup and records its outcome. It reports
// whether a patient was identified.
func (s *Session) identify(ctx context.Context, desc []float64) bool {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	res, err := s.api.IdentifyPatient(callCtx, desc)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		msg := client.ErrorMessage(err)
		s.logger.Warn("patient identification failed", "error", err)
		s.appendMessage(models.RoleSystem, "Biometric identification failed: %s. Continuing without medical history.", msg)
		s.notifier.Notify(ToastError, "Identification failed")
		return false
	}
	if !res.MatchFound || res.Patient == nil {
		s.appendMessage(models.RoleSystem, "No matching patient found. Continuing without medical history.")
		s.notifier.Notify(ToastError, "Patient not identified")
		return false
	}

	patient := *res.Patient
	s.update(func() { s.patient = &patient })
	s.logger.Info("patient identified", "patient_id", patient.ID, "confidence", res.Confidence, "method", res.Method)

	s.appendMessage(models.RoleSystem, "Patient identified: %s (%d%% confidence)", patient.Name, res.ConfidencePercent())
	s.notifier.Notify(ToastSuccess, "Patient identified: "+patient.Name)

	if lines := patient.HistoryLines(); len(lines) > 0 {
		s.log.Append(models.Message{
			Role:    models.RoleSystem,
			Content: "Medical history:\n" + strings.Join(lines, "\n"),
		})
	}
	return true
}
