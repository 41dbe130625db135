package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/raphaelgruber/medilink-console/internal/client"
	"github.com/raphaelgruber/medilink-console/internal/metrics"
	"github.com/raphaelgruber/medilink-console/internal/models"
	"github.com/raphaelgruber/medilink-console/internal/session"
)

// sessionView is the full console state.
type sessionView struct {
	State    session.State    `json:"state"`
	Messages []models.Message `json:"messages"`
	Toasts   []session.Toast  `json:"toasts"`
}

type acceptedResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) view() sessionView {
	msgs := s.session.Messages()
	if msgs == nil {
		msgs = []models.Message{}
	}
	toasts := s.session.Toasts()
	if toasts == nil {
		toasts = []session.Toast{}
	}
	return sessionView{State: s.session.State(), Messages: msgs, Toasts: toasts}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.view())
}

// handleStats returns the API call statistics. A server without a
// collector reports no operations.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.collector.Snapshot()
	if snap.Operations == nil {
		snap.Operations = []metrics.OperationSnapshot{}
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Capacity())
}

// respondStarted answers an entry point call. With ?wait=true the response
// is held until the pipeline finishes and carries the resulting session.
func (s *Server) respondStarted(w http.ResponseWriter, r *http.Request, done <-chan struct{}, accepted bool, reason string) {
	if !accepted {
		if s.session.Closed() {
			reason = "the session is closed"
		}
		writeJSON(w, http.StatusConflict, acceptedResponse{Accepted: false, Reason: reason})
		return
	}
	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, acceptedResponse{Accepted: true})
		return
	}

	select {
	case <-done:
		writeJSON(w, http.StatusOK, s.view())
	case <-r.Context().Done():
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	done, accepted := s.session.Submit(req.Text)
	s.respondStarted(w, r, done, accepted, "a query is already in flight")
}

func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	done, accepted := s.session.RunDemo()
	s.respondStarted(w, r, done, accepted, "the demo is already running")
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PatientID      models.ID `json:"patient_id"`
		FaceDescriptor []float64 `json:"face_descriptor"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		done     <-chan struct{}
		accepted bool
	)
	switch {
	case !req.PatientID.Empty():
		done, accepted = s.session.Identify(req.PatientID.String())
	case req.FaceDescriptor != nil:
		done, accepted = s.session.IdentifyDescriptor(req.FaceDescriptor)
		if !accepted && len(req.FaceDescriptor) != 0 {
			writeError(w, http.StatusBadRequest, client.ErrDescriptorLength.Error())
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "patient_id or face_descriptor is required")
		return
	}
	s.respondStarted(w, r, done, accepted, "the session is closed")
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PatientID  models.ID `json:"patient_id"`
		HospitalID models.ID `json:"hospital_id"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PatientID.Empty() || req.HospitalID.Empty() {
		writeError(w, http.StatusBadRequest, client.ErrMissingID.Error())
		return
	}

	done, accepted := s.session.ShareHistory(req.PatientID, req.HospitalID)
	s.respondStarted(w, r, done, accepted, "the session is closed")
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, client.ErrorMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, s.session.Capacity())
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.session.Dismiss(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
