package cli

import (
	"fmt"
	"strings"

	"github.com/raphaelgruber/medilink-console/internal/metrics"
	"github.com/raphaelgruber/medilink-console/internal/models"
	"github.com/raphaelgruber/medilink-console/internal/session"
)

func roleLabel(role models.Role) string {
	switch role {
	case models.RoleUser:
		return "You"
	case models.RoleAssistant:
		return "MediLink"
	default:
		return "System"
	}
}

// formatMessage renders a log entry as plain text. Structured entries with
// no content are summarised from their payloads.
func formatMessage(m models.Message) string {
	if m.Content == "" && m.Structured() {
		return formatStructured(m)
	}
	return m.Content
}

func formatStructured(m models.Message) string {
	var lines []string
	if u := m.Understood; u != nil {
		var parts []string
		if s := u.Severity(); s != "" {
			parts = append(parts, "severity "+s)
		}
		if needs, ok := u.NeedsBlood(); ok && needs {
			blood := "blood"
			if bt := u.BloodType(); bt != "" {
				blood = bt + " blood"
			}
			parts = append(parts, "needs "+blood)
		}
		if len(parts) == 0 {
			parts = append(parts, fmt.Sprintf("%d fields", len(u)))
		}
		lines = append(lines, "Understood: "+strings.Join(parts, ", "))
	}
	if a := m.Allocation; a != nil {
		lines = append(lines, "Allocation: "+formatAllocation(a))
	}
	if j := m.JargonTranslation; j != nil && j.Simple != "" {
		lines = append(lines, "Plain language: "+j.Simple)
	}
	return strings.Join(lines, "\n")
}

// formatAllocation renders the chosen hospital with distance and eta.
func formatAllocation(a *models.Allocation) string {
	sel := models.SelectFromAllocation(a)
	if sel == nil {
		return "no hospital available"
	}
	parts := []string{sel.Name}
	if sel.Distance != nil {
		parts = append(parts, fmt.Sprintf("%.1f km", *sel.Distance))
	}
	if sel.ETA != "" {
		parts = append(parts, "ETA "+sel.ETA)
	}
	if a.DonorsAlerted > 0 {
		parts = append(parts, fmt.Sprintf("%d donors alerted", a.DonorsAlerted))
	}
	return strings.Join(parts, ", ")
}

// formatCapacity renders the directory totals on one line.
func formatCapacity(c metrics.Capacity) string {
	return fmt.Sprintf("%d hospitals, %d trauma centers, %.0f ICU beds, %.0f blood units",
		c.Hospitals, c.TraumaCenters, c.TotalBeds, c.TotalBloodUnits)
}

// formatState renders the session selections and flags on one line.
func formatState(st session.State) string {
	parts := []string{}
	if p := st.IdentifiedPatient; p != nil {
		patient := "Patient: " + p.Name
		if p.BloodType != "" {
			patient += " (" + p.BloodType + ")"
		}
		parts = append(parts, patient)
	}
	if h := st.SelectedHospital; h != nil {
		hospital := "Hospital: " + h.Name
		if h.ETA != "" {
			hospital += ", " + h.ETA
		}
		parts = append(parts, hospital)
	}

	var flags []string
	if st.Loading {
		flags = append(flags, "processing")
	}
	if st.DemoRunning {
		flags = append(flags, "demo running")
	}
	if st.SharingHistory {
		flags = append(flags, "sharing history")
	}
	if len(flags) > 0 {
		parts = append(parts, strings.Join(flags, ", "))
	}
	if len(parts) == 0 {
		return "idle"
	}
	return strings.Join(parts, " | ")
}

// formatToast renders a toast as "[kind] text".
func formatToast(t session.Toast) string {
	return fmt.Sprintf("[%s] %s", t.Kind, t.Text)
}

// formatEvent renders a session event for line output. Toast expiry is never
// shown; state changes only with withState.
func formatEvent(ev session.Event, withState bool) (string, bool) {
	switch ev.Kind {
	case session.EventMessage:
		if ev.Message == nil {
			return "", false
		}
		return roleLabel(ev.Message.Role) + ": " + formatMessage(*ev.Message), true
	case session.EventReset:
		return "--- session reset ---", true
	case session.EventToast:
		if ev.Toast == nil {
			return "", false
		}
		return "  " + formatToast(*ev.Toast), true
	case session.EventState:
		if !withState || ev.State == nil {
			return "", false
		}
		return "  (" + formatState(*ev.State) + ")", true
	}
	return "", false
}
