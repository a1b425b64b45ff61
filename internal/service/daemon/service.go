package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/smart-dial/internal/actuator"
	"github.com/oshokin/smart-dial/internal/actuator/hue"
	"github.com/oshokin/smart-dial/internal/api/ipc"
	"github.com/oshokin/smart-dial/internal/api/ws"
	"github.com/oshokin/smart-dial/internal/config"
	"github.com/oshokin/smart-dial/internal/dispatch"
	"github.com/oshokin/smart-dial/internal/domain/dial"
	"github.com/oshokin/smart-dial/internal/input"
	"github.com/oshokin/smart-dial/internal/logger"
	repo "github.com/oshokin/smart-dial/internal/repository/state"
)

const (
	// eventBuffer absorbs input bursts between loop iterations.
	eventBuffer = 64
	// statusBuffer smooths status pushes towards the observation feed.
	statusBuffer = 16
)

// service owns the interpretation pipeline. All fields except the status
// mirror are touched only by the event loop goroutine.
type service struct {
	cfg  *config.Config
	repo repo.Repository

	classifier *dial.ClickClassifier
	routing    dial.Routing

	// state is the persisted portion, loaded at startup.
	// It stays authoritative in memory when a save fails.
	state *dial.State

	// zones is the hue cycle order, from the settings or the bridge.
	zones []string
	// sonosGroup is the current audio target, kept fresh by the poller.
	sonosGroup string
	lastIntent string
	lastError  string
	updatedAt  time.Time

	source     input.Source
	groups     actuator.GroupFinder
	lighting   actuator.Lighting
	dispatcher *dispatch.Dispatcher

	events  chan dial.InputEvent
	groupCh chan string
	updates chan dial.Status

	// statusMu guards the snapshot read by observers, the loop only
	// writes it.
	statusMu sync.RWMutex
	status   dial.Status
}

// newService loads persisted state and wires the pipeline together.
// Nil actuators in opts stay nil; intents for them resolve to not-found.
func newService(ctx context.Context, cfg *config.Config, opts *Options) (*service, error) {
	s := &service{
		cfg:        cfg,
		repo:       opts.Repository,
		classifier: dial.NewClickClassifier(cfg.Clicks.Debounce(), cfg.Clicks.MaxClicks),
		routing: dial.Routing{
			VolumeStep:     cfg.Sonos.VolumeStep,
			BrightnessStep: cfg.Hue.BrightnessStep,
		},
		state:     &dial.State{Mode: dial.ModeSonos},
		zones:     cfg.Hue.Zones,
		source:    opts.Source,
		groups:    opts.Groups,
		lighting:  opts.Lighting,
		updatedAt: time.Now(),
		events:    make(chan dial.InputEvent, eventBuffer),
		groupCh:   make(chan string, 1),
		updates:   make(chan dial.Status, statusBuffer),
	}

	if s.repo != nil {
		loaded, err := s.repo.Load(ctx)

		switch {
		case err == nil:
			if loaded != nil {
				s.state = loaded
			}
		case errors.Is(err, repo.ErrNotFound):
			logger.Info(ctx, "No saved state found, starting fresh")
		default:
			// A corrupt state file must not keep the daemon down.
			logger.Errorf(ctx, "Failed to load state, starting fresh: %v", err)
		}
	}

	s.state.EnsureDefaults(cfg.Hue.Zones)

	// The last active speaker is the audio target until the poller finds
	// a playing group.
	s.sonosGroup = s.state.LastSpeaker

	if s.lighting == nil && s.state.HueCredentials != nil {
		client := hue.NewClient(s.state.HueCredentials)
		s.lighting = client

		if len(s.zones) == 0 {
			zones, err := client.ZoneNames(ctx)
			if err != nil {
				logger.Warnf(ctx, "Failed to list hue zones: %v", err)
			} else {
				s.zones = zones
				s.state.EnsureDefaults(zones)
			}
		}
	}

	s.dispatcher = dispatch.NewDispatcher(dispatch.Options{
		Audio:        opts.Audio,
		Lighting:     s.lighting,
		Throttle:     cfg.Dispatch.Throttle(),
		CallTimeout:  cfg.Dispatch.CallTimeout(),
		RetryBackoff: cfg.Dispatch.RetryBackoff(),
	})

	return s, nil
}

// run starts the supporting goroutines and blocks in the event loop until
// the context ends or the input source fails.
func (s *service) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	srcErr := make(chan error, 1)

	wg.Add(1)

	go func() {
		defer wg.Done()

		err := s.source.Run(ctx, s.events)
		if ctx.Err() != nil {
			return
		}

		// A source that stops while the daemon is up leaves it deaf,
		// with or without an error to show for it.
		if err == nil {
			err = errors.New("input source stopped")
		}

		srcErr <- err
	}()

	wg.Add(1)

	go func() {
		defer wg.Done()
		s.pollGroups(ctx)
	}()

	wg.Add(1)

	go func() {
		defer wg.Done()

		if err := ipc.NewServer(s.cfg.IPC.SocketPath, s).Run(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf(ctx, "Control socket failed: %v", err)
		}
	}()

	if s.cfg.WS.Enabled {
		feed := ws.NewFeed(func() dial.Status {
			status, _ := s.Status(context.Background())

			return status
		})

		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := feed.Run(ctx, s.cfg.WS.ListenAddress, s.updates); err != nil && ctx.Err() == nil {
				logger.Errorf(ctx, "Observation feed failed: %v", err)
			}
		}()
	}

	err := s.loop(ctx, srcErr)

	cancel()
	s.dispatcher.Wait()
	wg.Wait()

	return err
}

// loop is the single owner of all interpretation state.
func (s *service) loop(ctx context.Context, srcErr <-chan error) error {
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}

	defer debounce.Stop()

	s.publishStatus()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-srcErr:
			// The device is gone, a supervisor restart is the only cure.
			return fmt.Errorf("input source failed: %w", err)
		case event := <-s.events:
			s.handleEvent(ctx, event)
			s.rearmDebounce(debounce)
		case <-debounce.C:
			if click, ok := s.classifier.Expire(time.Now()); ok {
				s.handleClick(ctx, click)
			}

			s.rearmDebounce(debounce)
		case group := <-s.groupCh:
			s.handleGroup(ctx, group)
		case result := <-s.dispatcher.Results():
			s.handleResult(ctx, result)
		}
	}
}

// rearmDebounce tracks the classifier's pending deadline, the timer fires
// exactly when a click burst should resolve.
func (s *service) rearmDebounce(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}

	if deadline, ok := s.classifier.Deadline(); ok {
		timer.Reset(time.Until(deadline))
	}
}

func (s *service) handleEvent(ctx context.Context, event dial.InputEvent) {
	switch e := event.(type) {
	case dial.Rotate:
		s.handleRotate(ctx, e)
	case dial.ButtonEdge:
		if click, ok := s.classifier.Edge(e); ok {
			s.handleClick(ctx, click)
		}
	}
}

func (s *service) handleRotate(ctx context.Context, e dial.Rotate) {
	intent, ok := dial.Route(s.state.Mode, e, s.routing)
	if !ok {
		return
	}

	s.dispatchIntent(ctx, intent)
}

func (s *service) handleClick(ctx context.Context, click dial.ResolvedClick) {
	if click.Count >= s.cfg.Clicks.MaxClicks {
		s.toggleMode(ctx)

		return
	}

	intent, ok := dial.Route(s.state.Mode, click, s.routing)
	if !ok {
		logger.Debugf(ctx, "no binding for %d clicks in %s mode", click.Count, s.state.Mode)

		return
	}

	s.dispatchIntent(ctx, intent)
}

// toggleMode flips between sonos and hue control, persists the choice and
// confirms a switch into hue mode with a flash on the selected zone.
func (s *service) toggleMode(ctx context.Context) {
	s.state.Mode = s.state.Mode.Toggled()

	logger.InfoKV(ctx, "Control mode switched", "mode", s.state.Mode)

	s.persistState(ctx)

	if s.state.Mode == dial.ModeHue && s.lighting != nil && s.state.HueZone != "" {
		target := dial.Target{Kind: dial.TargetHue, Name: s.state.HueZone}

		s.noteIntent(dial.Flash{}, target)
		s.dispatcher.Dispatch(ctx, dispatch.Job{Target: target, Intent: dial.Flash{}})
	}

	s.publishStatus()
}

func (s *service) dispatchIntent(ctx context.Context, intent dial.Intent) {
	target, ok := s.resolveTarget(ctx, intent)
	if !ok {
		return
	}

	s.noteIntent(intent, target)
	s.dispatcher.Dispatch(ctx, dispatch.Job{Target: target, Intent: intent})
	s.publishStatus()
}

// resolveTarget names the device a routed intent lands on. Intents whose
// device cannot be determined are dropped with a recorded reason, never
// queued.
func (s *service) resolveTarget(ctx context.Context, intent dial.Intent) (dial.Target, bool) {
	switch s.state.Mode {
	case dial.ModeSonos:
		if s.sonosGroup == "" {
			s.noteFailure(ctx, "no sonos group has been seen yet")

			return dial.Target{}, false
		}

		return dial.Target{Kind: dial.TargetSonos, Name: s.sonosGroup}, true
	case dial.ModeHue:
		if s.lighting == nil {
			s.noteFailure(ctx, "hue bridge is not paired")

			return dial.Target{}, false
		}

		zone := s.state.HueZone

		// Cycling targets the next zone in the order; the current zone
		// only advances once the dispatcher confirms the switch.
		if _, cycling := intent.(dial.ZoneCycle); cycling {
			next, ok := dial.NextZone(s.zones, s.state.HueZone)
			if !ok {
				s.noteFailure(ctx, "no hue zones are configured")

				return dial.Target{}, false
			}

			zone = next
		}

		if zone == "" {
			s.noteFailure(ctx, "no hue zone is selected")

			return dial.Target{}, false
		}

		return dial.Target{Kind: dial.TargetHue, Name: zone}, true
	}

	return dial.Target{}, false
}

// handleGroup adopts a newly discovered active sonos group and remembers
// it as the fallback for the next start.
func (s *service) handleGroup(ctx context.Context, group string) {
	if group == "" || group == s.sonosGroup {
		return
	}

	logger.InfoKV(ctx, "Active sonos group changed", "group", group)

	s.sonosGroup = group
	s.state.LastSpeaker = group
	s.persistState(ctx)
	s.publishStatus()
}

// handleResult folds a dispatcher outcome back into the loop state. A
// confirmed zone cycle is the only result that mutates interpretation
// state: the hue zone advances exactly when the flash on the next zone
// succeeded.
func (s *service) handleResult(ctx context.Context, result dispatch.Result) {
	if result.Succeeded() {
		s.lastError = ""

		if _, cycled := result.Job.Intent.(dial.ZoneCycle); cycled {
			s.commitZone(ctx, result.Job.Target.Name)
		}
	} else {
		s.lastError = result.Err.Error()
	}

	s.updatedAt = result.At
	s.publishStatus()
}

func (s *service) commitZone(ctx context.Context, zone string) {
	if zone == s.state.HueZone {
		return
	}

	s.state.HueZone = zone

	logger.InfoKV(ctx, "Hue zone switched", "zone", zone)

	s.persistState(ctx)
}

func (s *service) persistState(ctx context.Context) {
	if s.repo == nil {
		return
	}

	if err := s.repo.Save(ctx, s.state); err != nil {
		logger.Errorf(ctx, "Failed to persist state: %v", err)

		s.lastError = fmt.Sprintf("persist state: %v", err)
	}
}

func (s *service) noteIntent(intent dial.Intent, target dial.Target) {
	s.lastIntent = fmt.Sprintf("%s on %s", intent, target.Name)
	s.updatedAt = time.Now()
}

func (s *service) noteFailure(ctx context.Context, reason string) {
	logger.Warn(ctx, reason)

	s.lastError = reason
	s.updatedAt = time.Now()
	s.publishStatus()
}

// publishStatus refreshes the observer snapshot and feeds the observation
// stream. The stream send never blocks the loop.
func (s *service) publishStatus() {
	status := dial.Status{
		Mode:       s.state.Mode,
		HueZone:    s.state.HueZone,
		SonosGroup: s.sonosGroup,
		Paired:     s.lighting != nil,
		LastIntent: s.lastIntent,
		LastError:  s.lastError,
		UpdatedAt:  s.updatedAt,
	}

	s.statusMu.Lock()
	s.status = status
	s.statusMu.Unlock()

	select {
	case s.updates <- status:
	default:
	}
}

// pollGroups keeps the active sonos group fresh. One poll runs at startup
// so a freshly started daemon is usable before the first tick.
func (s *service) pollGroups(ctx context.Context) {
	if s.groups == nil {
		return
	}

	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Sonos.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *service) pollOnce(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, s.cfg.Dispatch.CallTimeout())
	defer cancel()

	group, err := s.groups.FindActiveGroup(pollCtx)
	if err != nil {
		if errors.Is(err, actuator.ErrTargetNotFound) {
			// Nothing is playing, the last known group stays the target.
			return
		}

		logger.Warnf(ctx, "Failed to discover the active sonos group: %v", err)

		return
	}

	select {
	case s.groupCh <- group:
	default:
	}
}

// InjectInput feeds synthetic events into the loop. They take exactly the
// same path as hardware events.
func (s *service) InjectInput(ctx context.Context, events []dial.InputEvent) error {
	for _, event := range events {
		select {
		case s.events <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Status returns the latest published snapshot.
// Safe to call from any goroutine.
func (s *service) Status(context.Context) (dial.Status, error) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	return s.status, nil
}
