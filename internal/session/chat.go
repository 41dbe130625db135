package session

import (
	"strings"

	"github.com/raphaelgruber/medilink-console/internal/client"
	"github.com/raphaelgruber/medilink-console/internal/models"
)

// NoResponse replaces an empty natural-language answer.
const NoResponse = "No response."

// Submit sends a free-text emergency description. It is rejected when text
// is blank or another query is in flight. Once accepted the query runs to
// completion; Close does not cancel it.
func (s *Session) Submit(text string) (<-chan struct{}, bool) {
	query := strings.TrimSpace(text)
	if query == "" {
		return closedDone, false
	}

	s.mu.Lock()
	if s.loading || !s.startLocked() {
		s.mu.Unlock()
		return closedDone, false
	}
	s.loading = true
	s.mu.Unlock()

	s.log.Append(models.Message{Role: models.RoleUser, Content: text})
	s.update(func() {})

	done := make(chan struct{})
	s.goTracked("chat", done, func() {
		defer s.update(func() { s.loading = false })
		s.runChat(query)
	})
	return done, true
}

func (s *Session) runChat(query string) {
	ctx, cancel := s.detachedCallContext()
	defer cancel()

	resp, err := s.api.SendChatQuery(ctx, query)
	if err != nil {
		msg := client.ErrorMessage(err)
		s.logger.Warn("chat query failed", "error", err)
		s.appendMessage(models.RoleAssistant, "Error: %s", msg)
		s.notifier.Notify(ToastError, msg)
		return
	}

	s.applyResponse(resp, true)
}

// applyResponse records a chat answer: the response text, the hospital
// selection with its share follow-up and the structured payload message.
func (s *Session) applyResponse(resp *models.ChatResponse, withJargon bool) {
	s.log.Append(models.Message{Role: models.RoleAssistant, Content: responseText(resp)})

	var patientID, hospitalID models.ID
	if sel := models.SelectFromAllocation(resp.Allocation); sel != nil {
		patientID = s.selectHospital(sel)
		hospitalID = sel.ID
		s.notifier.Notify(ToastSuccess, "Allocated to "+sel.Name)
	}

	structured := models.Message{
		Role:       models.RoleAssistant,
		Understood: resp.Understood,
		Allocation: resp.Allocation,
	}
	if withJargon {
		structured.JargonTranslation = resp.JargonTranslation
	}
	if structured.Structured() {
		s.log.Append(structured)
	}

	// The share is scheduled only after this pipeline's own appends.
	if !patientID.Empty() && !hospitalID.Empty() {
		s.scheduleShare(patientID, hospitalID)
	}
}

func responseText(resp *models.ChatResponse) string {
	if strings.TrimSpace(resp.NaturalResponse) == "" {
		return NoResponse
	}
	return resp.NaturalResponse
}
