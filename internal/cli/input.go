package cli

import (
	"context"
	"strings"

	"github.com/raphaelgruber/medilink-console/internal/client"
	"github.com/raphaelgruber/medilink-console/internal/session"
)

const helpText = `Type an emergency description and press Enter, or use a command:
  /demo            run the scripted demonstration
  /identify <id>   identify a patient by id
  /share           share the identified patient's history with the selected hospital
  /refresh         reload the hospital directory
  /quit            leave the console`

type inputKind int

const (
	inputQuery inputKind = iota
	inputDemo
	inputIdentify
	inputShare
	inputRefresh
	inputHelp
	inputQuit
	inputUnknown
	inputEmpty
)

// input is one parsed console line.
type input struct {
	kind inputKind
	arg  string
}

// parseInput interprets a console line. Lines starting with "/" are commands,
// anything else is a query.
func parseInput(line string) input {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return input{kind: inputEmpty}
	}
	if !strings.HasPrefix(trimmed, "/") {
		return input{kind: inputQuery, arg: line}
	}

	name, arg, _ := strings.Cut(trimmed[1:], " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(name) {
	case "demo":
		return input{kind: inputDemo}
	case "identify", "id":
		return input{kind: inputIdentify, arg: arg}
	case "share":
		return input{kind: inputShare}
	case "refresh":
		return input{kind: inputRefresh}
	case "help", "?":
		return input{kind: inputHelp}
	case "quit", "exit", "q":
		return input{kind: inputQuit}
	}
	return input{kind: inputUnknown, arg: name}
}

// dispatch starts the work for in. It returns the done channel of the
// started pipeline (nil if nothing was started) and a note for the user when
// the input was rejected or answered directly.
func dispatch(ctx context.Context, sess *session.Session, in input) (<-chan struct{}, string) {
	var (
		done     <-chan struct{}
		accepted bool
	)
	switch in.kind {
	case inputEmpty:
		return nil, ""
	case inputHelp:
		return nil, helpText
	case inputUnknown:
		return nil, "Unknown command /" + in.arg + ". Type /help for commands."
	case inputRefresh:
		if err := sess.Refresh(ctx); err != nil {
			return nil, "Refresh failed: " + client.ErrorMessage(err)
		}
		return nil, "Directory: " + formatCapacity(sess.Capacity())

	case inputQuery:
		done, accepted = sess.Submit(in.arg)
		if !accepted {
			return nil, "Still processing the previous query."
		}
	case inputDemo:
		done, accepted = sess.RunDemo()
		if !accepted {
			return nil, "The demo is already running."
		}
	case inputIdentify:
		if in.arg == "" {
			return nil, "Usage: /identify <patient id>"
		}
		done, accepted = sess.Identify(in.arg)
		if !accepted {
			return nil, "The session is closed."
		}
	case inputShare:
		st := sess.State()
		if st.IdentifiedPatient == nil || st.SelectedHospital == nil {
			return nil, "Identify a patient and allocate a hospital first."
		}
		done, accepted = sess.ShareHistory(st.IdentifiedPatient.ID, st.SelectedHospital.ID)
		if !accepted {
			return nil, "Nothing to share."
		}
	case inputQuit:
		return nil, ""
	}
	return done, ""
}
