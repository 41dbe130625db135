package session

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/raphaelgruber/medilink-console/internal/metrics"
	"github.com/raphaelgruber/medilink-console/internal/models"
)

// Refresh reloads the hospital and patient directories concurrently and
// recomputes the capacity totals. On error the previous directories are kept.
func (s *Session) Refresh(ctx context.Context) error {
	var (
		hospitals []models.Hospital
		patients  []models.Patient
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		callCtx, cancel := s.callContext(gctx)
		defer cancel()
		var err error
		hospitals, err = s.api.ListHospitals(callCtx)
		if err != nil {
			return fmt.Errorf("list hospitals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		callCtx, cancel := s.callContext(gctx)
		defer cancel()
		var err error
		patients, err = s.api.ListPatients(callCtx)
		if err != nil {
			return fmt.Errorf("list patients: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("directory refresh failed", "error", err)
		return err
	}

	s.SetHospitals(hospitals)
	s.update(func() { s.patients = patients })
	s.logger.Debug("directory refreshed", "hospitals", len(hospitals), "patients", len(patients))
	return nil
}

// SetHospitals replaces the hospital directory and recomputes capacity.
func (s *Session) SetHospitals(hospitals []models.Hospital) {
	capacity := metrics.Summarize(hospitals)
	s.update(func() {
		s.hospitals = hospitals
		s.capacity = capacity
	})
}

// Hospitals returns the hospital directory.
func (s *Session) Hospitals() []models.Hospital {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.hospitals)
}

// Patients returns the patient directory.
func (s *Session) Patients() []models.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.patients)
}

// Capacity returns the totals for the current hospital directory.
func (s *Session) Capacity() metrics.Capacity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capacity
}
