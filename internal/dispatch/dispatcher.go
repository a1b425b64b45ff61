package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/smart-dial/internal/actuator"
	"github.com/oshokin/smart-dial/internal/domain/dial"
	"github.com/oshokin/smart-dial/internal/logger"
)

const (
	// laneBuffer is how many jobs may queue per target before drops.
	laneBuffer = 16
	// resultsBuffer decouples lane reporting from the loop's pace.
	resultsBuffer = 64
)

// Job pairs an intent with its resolved target.
type Job struct {
	Target dial.Target
	Intent dial.Intent
}

// Result reports one executed job back to the loop.
type Result struct {
	Job Job
	Err error
	At  time.Time
}

// Succeeded reports whether the call went through.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Options configure a Dispatcher. A nil Audio or Lighting makes every
// call for that device family a not-found, which keeps an unpaired or
// undiscovered setup running quietly.
type Options struct {
	Audio    actuator.Audio
	Lighting actuator.Lighting

	// Throttle is the per-target cooldown between coalescible calls.
	Throttle time.Duration
	// CallTimeout bounds a single actuator call.
	CallTimeout time.Duration
	// RetryBackoff is the pause before the single retry of a failed
	// discrete command.
	RetryBackoff time.Duration
}

// Dispatcher fans jobs out to per-target lanes.
//
// Dispatch must only be called from one goroutine (the daemon loop); the
// lanes map is unguarded on purpose. Results are consumed from Results.
type Dispatcher struct {
	opts    Options
	results chan Result

	lanes map[string]*lane
	wg    sync.WaitGroup
}

// NewDispatcher returns a dispatcher with no lanes yet; lanes spawn on
// first use per target.
func NewDispatcher(opts Options) *Dispatcher {
	return &Dispatcher{
		opts:    opts,
		results: make(chan Result, resultsBuffer),
		lanes:   make(map[string]*lane),
	}
}

// Results is the channel execution outcomes arrive on.
func (d *Dispatcher) Results() <-chan Result {
	return d.results
}

// Dispatch hands a job to its target's lane, creating the lane on first
// use. A full lane drops the job with a warning rather than blocking the
// caller: under sustained pressure the freshest intent wins anyway.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) {
	key := job.Target.Key()

	ln, ok := d.lanes[key]
	if !ok {
		ln = d.newLane(ctx, key)
		d.lanes[key] = ln
	}

	select {
	case ln.in <- job:
	default:
		logger.WarnKV(ctx, "dispatch queue full, dropping command",
			"target", key, "intent", job.Intent.String())
	}
}

// Wait blocks until every lane has flushed its trailing work and exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) newLane(ctx context.Context, key string) *lane {
	ln := &lane{
		dispatcher: d,
		key:        key,
		in:         make(chan Job, laneBuffer),
	}

	d.wg.Add(1)

	go func() {
		defer d.wg.Done()
		ln.run(ctx)
	}()

	return ln
}

// perform makes the single actuator call a job stands for.
func (d *Dispatcher) perform(ctx context.Context, job Job) error {
	switch intent := job.Intent.(type) {
	case dial.VolumeDelta:
		return d.audio().AdjustVolume(ctx, job.Target.Name, intent.Step)
	case dial.PlayPause:
		return d.audio().PlayPause(ctx, job.Target.Name)
	case dial.TrackSkip:
		return d.audio().Skip(ctx, job.Target.Name, intent.Direction)
	case dial.BrightnessDelta:
		return d.lighting().AdjustBrightness(ctx, job.Target.Name, intent.Step)
	case dial.PowerToggle:
		return d.lighting().TogglePower(ctx, job.Target.Name)
	case dial.ZoneCycle, dial.Flash:
		// Both are one flash on the target zone. For a zone cycle the
		// flash doubles as the existence check the loop commits on.
		return d.lighting().Flash(ctx, job.Target.Name)
	default:
		return fmt.Errorf("no actuator call for intent %s", job.Intent)
	}
}

func (d *Dispatcher) audio() actuator.Audio {
	if d.opts.Audio == nil {
		return unavailableActuator{}
	}

	return d.opts.Audio
}

func (d *Dispatcher) lighting() actuator.Lighting {
	if d.opts.Lighting == nil {
		return unavailableActuator{}
	}

	return d.opts.Lighting
}

// unavailableActuator stands in for a device family that is not set up.
type unavailableActuator struct{}

func (unavailableActuator) AdjustVolume(context.Context, string, int) error {
	return actuator.ErrTargetNotFound
}

func (unavailableActuator) PlayPause(context.Context, string) error {
	return actuator.ErrTargetNotFound
}

func (unavailableActuator) Skip(context.Context, string, int) error {
	return actuator.ErrTargetNotFound
}

func (unavailableActuator) AdjustBrightness(context.Context, string, int) error {
	return actuator.ErrTargetNotFound
}

func (unavailableActuator) TogglePower(context.Context, string) error {
	return actuator.ErrTargetNotFound
}

func (unavailableActuator) Flash(context.Context, string) error {
	return actuator.ErrTargetNotFound
}
