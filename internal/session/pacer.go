package session

import (
	"context"
	"time"
)

// Pacing holds the pauses between demo steps.
type Pacing struct {
	Incident        time.Duration // after the incident description
	Scanning        time.Duration // after the biometrics status
	Identified      time.Duration // after identification, whatever the outcome
	TranslateStatus time.Duration // before the jargon call
	Translated      time.Duration // after the jargon result
	Query           time.Duration // after the synthetic query
	Processing      time.Duration // before the chat call
	Response        time.Duration // before the completion message
}

// DefaultPacing is the pacing used by the console demo.
func DefaultPacing() Pacing {
	return Pacing{
		Incident:        2000 * time.Millisecond,
		Scanning:        1500 * time.Millisecond,
		Identified:      2000 * time.Millisecond,
		TranslateStatus: 1000 * time.Millisecond,
		Translated:      2000 * time.Millisecond,
		Query:           1500 * time.Millisecond,
		Processing:      1500 * time.Millisecond,
		Response:        2000 * time.Millisecond,
	}
}

// Scaled multiplies every pause by factor. Zero disables pacing.
func (p Pacing) Scaled(factor float64) Pacing {
	scale := func(d time.Duration) time.Duration {
		return time.Duration(float64(d) * factor)
	}
	return Pacing{
		Incident:        scale(p.Incident),
		Scanning:        scale(p.Scanning),
		Identified:      scale(p.Identified),
		TranslateStatus: scale(p.TranslateStatus),
		Translated:      scale(p.Translated),
		Query:           scale(p.Query),
		Processing:      scale(p.Processing),
		Response:        scale(p.Response),
	}
}

// Total is the sum of all pauses of one demo run.
func (p Pacing) Total() time.Duration {
	return p.Incident + p.Scanning + p.Identified + p.TranslateStatus +
		p.Translated + p.Query + p.Processing + p.Response
}

// pacer waits between the steps of one demo run. All its waits end as soon
// as the run context is cancelled.
type pacer struct {
	ctx context.Context
}

// wait pauses for d and reports the run's cancellation, if any.
func (p pacer) wait(d time.Duration) error {
	if d <= 0 {
		return p.ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-timer.C:
		return nil
	}
}
