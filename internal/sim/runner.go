package sim

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ridesim/internal/ride"
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

// LayoutSource supplies the current track of every ride. A ride whose revision
// changes is reloaded and swapped in between ticks.
type LayoutSource interface {
	LayoutRevisions(ctx context.Context) (map[ride.ID]int64, error)
	LoadLayout(ctx context.Context, id ride.ID) (*track.Layout, error)
}

// Publisher forwards the event feed and position snapshots.
type Publisher interface {
	PublishEvent(ev Event) error
	PublishPositions(tick uint64, train TrainView, cars []CarPosition) error
}

// Journal persists events.
type Journal interface {
	AppendEvents(ctx context.Context, events []Event) error
}

// RunnerMetrics receives per-tick measurements.
type RunnerMetrics interface {
	ObserveTick(d time.Duration)
	SetStatusCounts(counts map[string]int)
	LayoutReloaded(id ride.ID)
}

type RunnerOptions struct {
	Log             zerolog.Logger
	Interval        time.Duration // wall time per tick
	PublishEvery    uint64        // publish positions every n ticks, 0 disables
	RefreshInterval time.Duration // layout revision polling, 0 disables
	Layouts         LayoutSource
	Publisher       Publisher
	Journal         Journal
	Metrics         RunnerMetrics
}

// Runner drives an Engine from a ticker and serialises every other access to
// it. Queries and edits go through Do so they never overlap a tick.
type Runner struct {
	eng  *Engine
	opts RunnerOptions
	log  zerolog.Logger

	mu        sync.Mutex
	tick      uint64
	revisions map[ride.ID]int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(eng *Engine, opts RunnerOptions) *Runner {
	if opts.Interval <= 0 {
		opts.Interval = 25 * time.Millisecond
	}
	return &Runner{
		eng:       eng,
		opts:      opts,
		log:       opts.Log.With().Str("component", "runner").Logger(),
		revisions: make(map[ride.ID]int64),
	}
}

// Start launches the tick loop and, when configured, the layout refresher.
func (r *Runner) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Step(ctx)
			}
		}
	}()

	if r.opts.Layouts == nil || r.opts.RefreshInterval <= 0 {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.opts.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.RefreshLayouts(ctx); err != nil {
					r.log.Error().Err(err).Msg("refresh layouts")
				}
			}
		}
	}()
}

// Stop cancels the loops and waits for them to exit.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// Do runs fn with exclusive access to the engine.
func (r *Runner) Do(fn func(*Engine) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.eng)
}

// Tick returns the last tick advanced.
func (r *Runner) Tick() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tick
}

type snapshot struct {
	train TrainView
	cars  []CarPosition
}

// Step advances one tick, then publishes outside the lock.
func (r *Runner) Step(ctx context.Context) {
	start := time.Now()
	r.mu.Lock()
	r.tick++
	tick := r.tick
	r.eng.AdvanceAllTrains(tick)
	events := r.eng.Events()
	var snaps []snapshot
	if r.opts.Publisher != nil && r.opts.PublishEvery > 0 && tick%r.opts.PublishEvery == 0 {
		for _, id := range r.eng.Trains() {
			view, err := r.eng.TrainStatus(id)
			if err != nil {
				continue
			}
			cars, err := r.eng.TrainPositions(id)
			if err != nil {
				continue
			}
			snaps = append(snaps, snapshot{train: view, cars: cars})
		}
	}
	counts := r.eng.StatusCounts()
	r.mu.Unlock()

	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveTick(time.Since(start))
		r.opts.Metrics.SetStatusCounts(statusNames(counts))
	}
	r.publish(ctx, tick, events, snaps)
}

func statusNames(counts map[vehicle.Status]int) map[string]int {
	out := make(map[string]int, len(counts))
	for s, n := range counts {
		out[s.String()] = n
	}
	return out
}

func (r *Runner) publish(ctx context.Context, tick uint64, events []Event, snaps []snapshot) {
	if p := r.opts.Publisher; p != nil {
		for _, ev := range events {
			if err := p.PublishEvent(ev); err != nil {
				r.log.Error().Err(err).Str("event", ev.Kind.String()).Msg("publish event")
			}
		}
		for _, s := range snaps {
			if err := p.PublishPositions(tick, s.train, s.cars); err != nil {
				r.log.Error().Err(err).Int32("train", s.train.ID).Msg("publish positions")
			}
		}
	}
	if j := r.opts.Journal; j != nil && len(events) > 0 {
		if err := j.AppendEvents(ctx, events); err != nil {
			r.log.Error().Err(err).Int("events", len(events)).Msg("journal events")
		}
	}
}

// RefreshLayouts reloads every ride whose track revision changed since the
// last refresh. The first refresh only records revisions.
func (r *Runner) RefreshLayouts(ctx context.Context) error {
	src := r.opts.Layouts
	if src == nil {
		return nil
	}
	revs, err := src.LayoutRevisions(ctx)
	if err != nil {
		return err
	}
	for id, rev := range revs {
		r.mu.Lock()
		old, seen := r.revisions[id]
		r.revisions[id] = rev
		r.mu.Unlock()
		if !seen || old == rev {
			continue
		}
		l, err := src.LoadLayout(ctx, id)
		if err != nil {
			r.log.Error().Err(err).Int32("ride", int32(id)).Msg("load layout")
			continue
		}
		if err := r.Do(func(e *Engine) error { return e.ReplaceLayout(id, l) }); err != nil {
			r.log.Error().Err(err).Int32("ride", int32(id)).Msg("replace layout")
			continue
		}
		r.log.Info().Int32("ride", int32(id)).Int64("revision", rev).Msg("layout reloaded")
		if r.opts.Metrics != nil {
			r.opts.Metrics.LayoutReloaded(id)
		}
	}
	return nil
}
