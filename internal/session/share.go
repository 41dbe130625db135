package session

import (
	"time"

	"github.com/raphaelgruber/medilink-console/internal/client"
	"github.com/raphaelgruber/medilink-console/internal/models"
)

// ShareHistory discloses a patient's medical history to a hospital. It is
// rejected when either id is empty. Once started the share runs to
// completion.
func (s *Session) ShareHistory(patientID, hospitalID models.ID) (<-chan struct{}, bool) {
	if patientID.Empty() || hospitalID.Empty() {
		return closedDone, false
	}

	s.mu.Lock()
	ok := s.startLocked()
	s.mu.Unlock()
	if !ok {
		return closedDone, false
	}

	done := make(chan struct{})
	s.goTracked("share", done, func() {
		s.shareHistory(patientID, hospitalID)
	})
	return done, true
}

// scheduleShare runs the share after the settling delay. A session closed
// during the delay skips it.
func (s *Session) scheduleShare(patientID, hospitalID models.ID) {
	s.mu.Lock()
	ok := s.startLocked()
	s.mu.Unlock()
	if !ok {
		return
	}

	s.logger.Debug("medical history share scheduled",
		"patient_id", patientID, "hospital_id", hospitalID, "delay", s.opts.SettleDelay)

	s.goTracked("auto-share", nil, func() {
		timer := time.NewTimer(s.opts.SettleDelay)
		defer timer.Stop()
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}
		s.shareHistory(patientID, hospitalID)
	})
}

func (s *Session) shareHistory(patientID, hospitalID models.ID) {
	s.update(func() { s.sharing = true })
	defer s.update(func() { s.sharing = false })

	s.appendMessage(models.RoleSystem, "Sharing medical history of patient %s with hospital %s...", patientID, hospitalID)

	ctx, cancel := s.detachedCallContext()
	defer cancel()

	res, err := s.api.ShareMedicalHistory(ctx, patientID, hospitalID)
	if err != nil {
		msg := client.ErrorMessage(err)
		s.logger.Warn("medical history share failed", "patient_id", patientID, "hospital_id", hospitalID, "error", err)
		s.appendMessage(models.RoleSystem, "Failed to share medical history: %s", msg)
		s.notifier.Notify(ToastError, "Failed to share medical history")
		return
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = client.UnknownError
		}
		s.logger.Warn("medical history share rejected", "patient_id", patientID, "hospital_id", hospitalID, "error", msg)
		s.appendMessage(models.RoleSystem, "Failed to share medical history: %s", msg)
		s.notifier.Notify(ToastError, "Failed to share medical history")
		return
	}

	hospital := hospitalID.String()
	if res.Shared != nil && res.Shared.Hospital != "" {
		hospital = res.Shared.Hospital
	}
	text := "Medical history shared with " + hospital
	s.log.Append(models.Message{Role: models.RoleSystem, Content: text})
	s.notifier.Notify(ToastSuccess, text)
}
