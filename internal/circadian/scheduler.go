package circadian

import (
	"context"
	"log/slog"
	"time"
)

// Source supplies the current day-cycle percentage.
type Source interface {
	Percentage() float64
}

// Sink receives percentage pushes. Out-of-range values are clamped before
// delivery; the zone manager implements this.
type Sink interface {
	UpdateFromPercentage(pct float64)
}

// Scheduler periodically reads the source and pushes the (clamped) value to
// the sink. One push happens immediately on Start so zones converge without
// waiting a full interval.
type Scheduler struct {
	logger   *slog.Logger
	source   Source
	sink     Sink
	interval time.Duration
}

// NewScheduler creates a scheduler pushing every interval.
func NewScheduler(logger *slog.Logger, source Source, sink Sink, interval time.Duration) *Scheduler {
	return &Scheduler{
		logger:   logger,
		source:   source,
		sink:     sink,
		interval: interval,
	}
}

// Start runs the push loop until the context is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.logger.Info("circadian: scheduler started", "interval", s.interval)

		s.push()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("circadian: scheduler stopped")
				return
			case <-ticker.C:
				s.push()
			}
		}
	}()
}

// Push reads the source once and delivers the value to the sink.
func (s *Scheduler) Push() { s.push() }

func (s *Scheduler) push() {
	pct := clamp(s.source.Percentage())
	s.logger.Debug("circadian: pushing percentage", "percentage", pct)
	s.sink.UpdateFromPercentage(pct)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
