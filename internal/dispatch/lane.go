package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/oshokin/smart-dial/internal/actuator"
	"github.com/oshokin/smart-dial/internal/domain/dial"
	"github.com/oshokin/smart-dial/internal/logger"
)

// lane owns all outbound traffic for one target. A single goroutine runs
// it, so calls to the same target never overlap and no field needs a lock.
type lane struct {
	dispatcher *Dispatcher
	key        string
	in         chan Job

	// pending is the merged coalescible backlog of the open cooldown.
	pending    *Job
	inCooldown bool
}

func (l *lane) run(ctx context.Context) {
	// The cooldown timer starts disarmed; the stop-and-drain idiom
	// guards every re-arm.
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.flushTrailing(ctx)
			return
		case job := <-l.in:
			l.accept(ctx, timer, job)
		case <-timer.C:
			l.inCooldown = false

			if l.pending != nil {
				job := *l.pending
				l.pending = nil

				l.execute(ctx, job)
				l.armCooldown(timer)
			}
		}
	}
}

func (l *lane) accept(ctx context.Context, timer *time.Timer, job Job) {
	// Discrete commands bypass the throttle entirely.
	if !job.Intent.Coalescible() {
		l.execute(ctx, job)
		return
	}

	// Every accepted coalescible intent slides the window, merged or not.
	if l.inCooldown {
		l.merge(job)
		l.armCooldown(timer)

		return
	}

	l.execute(ctx, job)
	l.armCooldown(timer)
}

func (l *lane) merge(job Job) {
	if l.pending == nil {
		l.pending = &job
		return
	}

	merged, _ := dial.Coalesce(l.pending.Intent, job.Intent)
	l.pending = &Job{Target: job.Target, Intent: merged}
}

func (l *lane) armCooldown(timer *time.Timer) {
	l.inCooldown = true

	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}

	timer.Reset(l.dispatcher.opts.Throttle)
}

// execute makes the actuator call for a job, retrying a failed discrete
// command once. Deltas are never retried: the next twist of the dial
// supersedes a lost one, while a lost click is a lost user action.
func (l *lane) execute(ctx context.Context, job Job) {
	err := l.call(ctx, job)

	if err != nil && !errors.Is(err, actuator.ErrTargetNotFound) &&
		!job.Intent.Coalescible() && ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case <-time.After(l.dispatcher.opts.RetryBackoff):
			err = l.call(ctx, job)
		}
	}

	l.report(ctx, job, err)
}

func (l *lane) call(ctx context.Context, job Job) error {
	callCtx, cancel := context.WithTimeout(ctx, l.dispatcher.opts.CallTimeout)
	defer cancel()

	return l.dispatcher.perform(callCtx, job)
}

func (l *lane) report(ctx context.Context, job Job, err error) {
	switch {
	case err == nil:
	case errors.Is(err, actuator.ErrTargetNotFound):
		// Expected while nothing is playing or a zone is missing.
		logger.DebugKV(ctx, "command target not found",
			"target", l.key, "intent", job.Intent.String())
	default:
		logger.WarnKV(ctx, "actuator call failed",
			"target", l.key, "intent", job.Intent.String(), "error", err)
	}

	select {
	case l.dispatcher.results <- Result{Job: job, Err: err, At: time.Now()}:
	default:
		// The loop fell far behind; losing a result only delays a
		// status update, never a command.
	}
}

// flushTrailing delivers the pending backlog during shutdown, detached
// from the canceled loop context but still bounded by the call timeout.
func (l *lane) flushTrailing(ctx context.Context) {
	if l.pending == nil {
		return
	}

	job := *l.pending
	l.pending = nil

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.dispatcher.opts.CallTimeout)
	defer cancel()

	if err := l.dispatcher.perform(flushCtx, job); err != nil {
		logger.DebugKV(ctx, "trailing command failed during shutdown",
			"target", l.key, "intent", job.Intent.String(), "error", err)
	}
}
