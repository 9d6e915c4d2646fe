package uplink

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/sound-monitor/internal/loudness"
	"github.com/sweeney/sound-monitor/internal/network"
)

// Transport turns a reading into a Plan for one delivery.
type Transport interface {
	Name() string
	Plan(r loudness.Reading) Plan
}

// Outcome describes a job that reached a terminal stage.
type Outcome struct {
	Transport string
	Reading   loudness.Reading
	Stage     Stage
	Err       error
}

// Stats counts jobs issued by a Scheduler.
type Stats struct {
	Issued    int
	Delivered int
	Failed    int
	LastError string
}

// Scheduler issues at most one job per interval and never runs two jobs at
// once. Delivery is best effort: failures are logged and dropped.
type Scheduler struct {
	transport Transport
	interval  time.Duration
	timeout   time.Duration
	log       zerolog.Logger

	// OnOutcome, if set, is called from Poll when a job finishes.
	OnOutcome func(Outcome)

	job      *Job
	reading  loudness.Reading
	lastSent time.Time
	stats    Stats
}

// DefaultJobTimeout bounds a whole job so a hung peer cannot block later
// uploads forever.
const DefaultJobTimeout = 15 * time.Second

// NewScheduler creates a Scheduler for the given transport.
func NewScheduler(t Transport, interval time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		transport: t,
		interval:  interval,
		timeout:   DefaultJobTimeout,
		log:       log,
	}
}

// SetJobTimeout overrides DefaultJobTimeout. Zero disables the bound.
func (s *Scheduler) SetJobTimeout(d time.Duration) {
	s.timeout = d
}

// Interval returns the minimum time between issued jobs.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Check issues a job for r when the network is up, the interval has elapsed
// since the last issued job and no job is in flight. It reports whether a job
// was issued. The interval restarts at issue time, whatever the outcome.
func (s *Scheduler) Check(r loudness.Reading, st network.Status, now time.Time) bool {
	if !st.Connected {
		return false
	}
	if !s.lastSent.IsZero() && now.Sub(s.lastSent) < s.interval {
		return false
	}
	if s.job != nil {
		return false
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	plan := s.transport.Plan(r)
	if cancel != nil {
		release := plan.Release
		plan.Release = func() {
			cancel()
			if release != nil {
				release()
			}
		}
	}

	s.job = newJob(ctx, plan)
	s.reading = r
	s.lastSent = now
	s.stats.Issued++
	s.log.Debug().
		Str("transport", s.transport.Name()).
		Float64("db", r.Decibels).
		Msg("uplink job issued")
	s.job.start()
	s.settle()
	return true
}

// Poll advances the in-flight job by at most one stage.
func (s *Scheduler) Poll() {
	if s.job == nil {
		return
	}
	s.job.Poll()
	s.settle()
}

// InFlight reports whether a job has been issued and not yet finished.
func (s *Scheduler) InFlight() bool {
	return s.job != nil
}

// Abort cancels the in-flight job, if any.
func (s *Scheduler) Abort() {
	if s.job == nil {
		return
	}
	s.job.Abort()
	s.log.Info().Str("transport", s.transport.Name()).Msg("uplink job aborted")
	s.settle()
}

// Stats returns the job counters.
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// settle retires a job that reached a terminal stage.
func (s *Scheduler) settle() {
	if s.job == nil || !s.job.Stage().Terminal() {
		return
	}
	out := Outcome{
		Transport: s.transport.Name(),
		Reading:   s.reading,
		Stage:     s.job.Stage(),
		Err:       s.job.Err(),
	}
	s.job = nil

	if out.Stage == StageDone {
		s.stats.Delivered++
		s.log.Debug().
			Str("transport", out.Transport).
			Float64("db", out.Reading.Decibels).
			Msg("uplink delivered")
	} else {
		s.stats.Failed++
		s.stats.LastError = out.Err.Error()
		s.log.Warn().
			Err(out.Err).
			Str("transport", out.Transport).
			Msg("uplink failed, dropping reading")
	}
	if s.OnOutcome != nil {
		s.OnOutcome(out)
	}
}
