// Package uplink periodically pushes the latest reading to a remote telemetry
// sink. Network work runs in short-lived goroutines; the owning loop only
// observes progress through Poll, so no stage advances between polls.
package uplink

import (
	"context"
	"errors"
	"fmt"
)

// Stage is the position of a Job in its lifecycle.
type Stage int

const (
	StagePending Stage = iota
	StageResolving
	StageConnecting
	StageSending
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "PENDING"
	case StageResolving:
		return "RESOLVING"
	case StageConnecting:
		return "CONNECTING"
	case StageSending:
		return "SENDING"
	case StageDone:
		return "DONE"
	case StageFailed:
		return "FAILED"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Terminal reports whether no further progress is possible.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// ErrAborted is the failure recorded for a job cancelled by Abort.
var ErrAborted = errors.New("uplink job aborted")

// Step is one asynchronous unit of a Plan.
type Step struct {
	Stage Stage
	Run   func(ctx context.Context) error
}

// Plan is the ordered work needed to deliver one reading. Release, if set,
// runs exactly once after the job reaches a terminal stage and no step is
// running.
type Plan struct {
	Steps   []Step
	Release func()
}

// Job runs a Plan one step at a time.
type Job struct {
	plan    Plan
	next    int
	stage   Stage
	err     error
	running bool
	results chan error
	ctx     context.Context
	cancel  context.CancelFunc
}

func newJob(ctx context.Context, plan Plan) *Job {
	ctx, cancel := context.WithCancel(ctx)
	return &Job{
		plan:    plan,
		stage:   StagePending,
		results: make(chan error, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Stage returns the job's current stage.
func (j *Job) Stage() Stage { return j.stage }

// Err returns the failure cause once the job has failed.
func (j *Job) Err() error { return j.err }

// start launches the first step. A plan with no steps is done immediately.
func (j *Job) start() {
	j.launch()
}

func (j *Job) launch() {
	if j.next >= len(j.plan.Steps) {
		j.finish(StageDone, nil)
		return
	}
	step := j.plan.Steps[j.next]
	j.next++
	j.stage = step.Stage
	j.running = true
	go func(ctx context.Context) {
		j.results <- step.Run(ctx)
	}(j.ctx)
}

// Poll consumes the result of the running step, if it has finished, and
// starts the following one. It never blocks.
func (j *Job) Poll() Stage {
	if j.stage.Terminal() || !j.running {
		return j.stage
	}
	select {
	case err := <-j.results:
		j.advance(err)
	default:
	}
	return j.stage
}

// wait blocks until the running step finishes and advances the job.
func (j *Job) wait() Stage {
	if j.stage.Terminal() || !j.running {
		return j.stage
	}
	j.advance(<-j.results)
	return j.stage
}

func (j *Job) advance(err error) {
	j.running = false
	if err != nil {
		j.finish(StageFailed, fmt.Errorf("%s: %w", j.stage, err))
		return
	}
	j.launch()
}

// Abort cancels the job. A step still running is left to observe the
// cancellation; Release runs once it has returned.
func (j *Job) Abort() {
	if j.stage.Terminal() {
		return
	}
	j.cancel()
	if j.running {
		j.running = false
		j.stage = StageFailed
		j.err = ErrAborted
		release := j.plan.Release
		results := j.results
		go func() {
			<-results
			if release != nil {
				release()
			}
		}()
		return
	}
	j.finish(StageFailed, ErrAborted)
}

func (j *Job) finish(stage Stage, err error) {
	j.stage = stage
	j.err = err
	j.cancel()
	if j.plan.Release != nil {
		j.plan.Release()
	}
}
