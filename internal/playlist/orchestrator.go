package playlist

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Element-Re/crossblade/api"
	"github.com/Element-Re/crossblade/internal/engine"
	"github.com/Element-Re/crossblade/internal/game"
	"github.com/Element-Re/crossblade/internal/layers"
	"github.com/Element-Re/crossblade/pkg/events"
)

// DurationFunc probes an audio file's play length. Injectable for tests.
type DurationFunc func(path string) (time.Duration, error)

// Orchestrator owns the per-sound runtimes and reacts to game signals:
// every state change triggers a crossfade pass over the playing sounds,
// track ends advance the queue, and the tail of the current track preloads
// the next one's handles.
type Orchestrator struct {
	engine  *engine.Engine
	state   *game.State
	custom  *game.CustomEvent
	bus     *events.Bus
	signals <-chan api.Signal
	opts    game.Options
	factory engine.SoundFactory

	queue       *Queue
	autoPreload time.Duration
	durationFn  DurationFunc

	mu           sync.Mutex
	runtimes     map[string]*engine.Runtime
	preloadTimer *time.Timer
}

// NewOrchestrator wires the crossfade engine to game state. autoPreload is
// how long before a track's end the next track starts loading; zero
// disables the preload window.
func NewOrchestrator(eng *engine.Engine, state *game.State, custom *game.CustomEvent, bus *events.Bus, opts game.Options, factory engine.SoundFactory, autoPreload time.Duration, durationFn DurationFunc) *Orchestrator {
	return &Orchestrator{
		engine:      eng,
		state:       state,
		custom:      custom,
		bus:         bus,
		signals:     bus.SubscribeAll(),
		opts:        opts,
		factory:     factory,
		queue:       NewQueue(),
		autoPreload: autoPreload,
		durationFn:  durationFn,
		runtimes:    make(map[string]*engine.Runtime),
	}
}

// Queue exposes the playback queue for UI navigation.
func (o *Orchestrator) Queue() *Queue {
	return o.queue
}

// Runtime returns the runtime for a sound definition, creating it on first
// use. The start hook re-syncs the sound so layers pick up the base's
// position, and the base handle's end advances the queue via the bus.
func (o *Orchestrator) Runtime(def *api.PlayableSound) *engine.Runtime {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runtimeLocked(def)
}

func (o *Orchestrator) runtimeLocked(def *api.PlayableSound) *engine.Runtime {
	if rt, ok := o.runtimes[def.ID]; ok {
		return rt
	}

	id := def.ID
	rt := engine.NewRuntime(def, o.factory, func(h api.Sound) {
		o.handleStart(id, h)
	})
	rt.OnBaseEnd(func(api.Sound) {
		o.bus.Publish(api.Signal{Type: api.SignalSoundEnded, Payload: id})
	})
	o.runtimes[id] = rt
	return rt
}

// handleStart runs when any handle of a sound begins playback. A base start
// needs a follow-up sync so waiting layers play from the base's position,
// and opens the auto-preload window for the next queued track.
func (o *Orchestrator) handleStart(id string, h api.Sound) {
	o.mu.Lock()
	rt, ok := o.runtimes[id]
	o.mu.Unlock()
	if !ok {
		return
	}

	o.bus.Publish(api.Signal{Type: api.SignalSoundStarted, Payload: id})

	if h == rt.Base() {
		// Waiting layers pick up the base's position on this second pass.
		go o.engine.Sync(context.Background(), rt, o.snapshot())
		o.schedulePreload(rt)
	}
}

// Play marks the sound as playing and syncs its handles.
func (o *Orchestrator) Play(ctx context.Context, def *api.PlayableSound) <-chan struct{} {
	rt := o.Runtime(def)
	rt.SetPlaying(true)
	return o.engine.Sync(ctx, rt, o.snapshot())
}

// Stop marks the sound as stopped and syncs, fading its handles out.
func (o *Orchestrator) Stop(ctx context.Context, def *api.PlayableSound) <-chan struct{} {
	rt := o.Runtime(def)
	rt.SetPlaying(false)
	return o.engine.Sync(ctx, rt, o.snapshot())
}

// Sync brings one sound's handles in line with the current game state.
func (o *Orchestrator) Sync(ctx context.Context, def *api.PlayableSound) <-chan struct{} {
	return o.engine.Sync(ctx, o.Runtime(def), o.snapshot())
}

// CrossfadeAll re-syncs every sound that is playing and has layers. Sounds
// without layers have nothing to crossfade; their volume only changes with
// their own definition.
func (o *Orchestrator) CrossfadeAll(ctx context.Context) <-chan struct{} {
	snap := o.snapshot()

	o.mu.Lock()
	var targets []*engine.Runtime
	for _, rt := range o.runtimes {
		def := rt.Def()
		if def.Playing && len(def.Layers) > 0 {
			targets = append(targets, rt)
		}
	}
	o.mu.Unlock()

	done := make(chan struct{})
	var wg sync.WaitGroup
	for _, rt := range targets {
		wg.Add(1)
		go func(rt *engine.Runtime) {
			defer wg.Done()
			<-o.engine.Sync(ctx, rt, snap)
		}(rt)
	}
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// HandleUpdate swaps in an edited sound definition and re-syncs so removed
// layers stop and added ones join at the base's position.
func (o *Orchestrator) HandleUpdate(ctx context.Context, def *api.PlayableSound) {
	o.mu.Lock()
	rt, ok := o.runtimes[def.ID]
	o.mu.Unlock()
	if !ok {
		return
	}
	rt.Update(def)
	o.engine.Sync(ctx, rt, o.snapshot())
}

// HandleDelete stops every handle of a removed sound and drops its runtime.
func (o *Orchestrator) HandleDelete(id string) {
	o.mu.Lock()
	rt, ok := o.runtimes[id]
	if ok {
		delete(o.runtimes, id)
	}
	o.mu.Unlock()
	if ok {
		rt.StopAll()
	}
}

// PlayPlaylist loads a playlist into the queue and starts it. Simultaneous
// playlists start every sound at once; the others start the first queued
// track.
func (o *Orchestrator) PlayPlaylist(ctx context.Context, pl *api.Playlist) {
	sounds := make([]*api.PlayableSound, len(pl.Sounds))
	for i := range pl.Sounds {
		sounds[i] = &pl.Sounds[i]
	}
	o.queue.Set(sounds, pl.Mode)

	if pl.Mode == api.ModeSimultaneous {
		for _, def := range sounds {
			o.Play(ctx, def)
		}
		return
	}
	if def := o.queue.Current(); def != nil {
		o.Play(ctx, def)
	}
}

// StopAll stops every known runtime and clears the queue.
func (o *Orchestrator) StopAll(ctx context.Context) {
	o.mu.Lock()
	if o.preloadTimer != nil {
		o.preloadTimer.Stop()
		o.preloadTimer = nil
	}
	targets := make([]*engine.Runtime, 0, len(o.runtimes))
	for _, rt := range o.runtimes {
		targets = append(targets, rt)
	}
	o.mu.Unlock()

	for _, rt := range targets {
		rt.SetPlaying(false)
		o.engine.Sync(ctx, rt, o.snapshot())
	}
	o.queue.Clear()
}

// PreloadPlaylist begins loading every handle of every sound in a playlist
// without playing anything.
func (o *Orchestrator) PreloadPlaylist(ctx context.Context, pl *api.Playlist) {
	for i := range pl.Sounds {
		o.Runtime(&pl.Sounds[i]).Preload(ctx)
	}
}

// PlayingCustomEvents returns the sorted distinct CUSTOM event values
// declared by currently playing sounds, for the live event picker.
func (o *Orchestrator) PlayingCustomEvents() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	seen := make(map[string]bool)
	var values []string
	for _, rt := range o.runtimes {
		def := rt.Def()
		if !def.Playing {
			continue
		}
		for _, value := range layers.CustomEvents(def.Layers) {
			if !seen[value] {
				seen[value] = true
				values = append(values, value)
			}
		}
	}
	sort.Strings(values)
	return values
}

// Run processes bus signals until ctx is cancelled. Game-state signals
// trigger a crossfade pass; a track end advances the queue. The subscription
// is taken at construction, so signals published before Run starts draining
// sit in the channel buffer instead of being dropped.
func (o *Orchestrator) Run(ctx context.Context) {
	defer o.bus.Unsubscribe(o.signals)

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-o.signals:
			if !ok {
				return
			}
			o.handleSignal(ctx, sig)
		}
	}
}

func (o *Orchestrator) handleSignal(ctx context.Context, sig api.Signal) {
	switch sig.Type {
	case api.SignalCombatUpdated, api.SignalCombatEnded, api.SignalPauseToggled,
		api.SignalGlobalVolume, api.SignalCustomEvent:
		o.CrossfadeAll(ctx)
	case api.SignalSoundEnded:
		id, _ := sig.Payload.(string)
		o.advance(ctx, id)
	case api.SignalSoundUpdated:
		if def, ok := sig.Payload.(*api.PlayableSound); ok {
			o.HandleUpdate(ctx, def)
		}
	case api.SignalSoundDeleted:
		if id, ok := sig.Payload.(string); ok {
			o.HandleDelete(id)
		}
	}
}

// advance moves the queue past the ended sound and starts the next track.
// Only the current queue track advances; a stray end from an old handle is
// ignored.
func (o *Orchestrator) advance(ctx context.Context, endedID string) {
	current := o.queue.Current()
	if current == nil || current.ID != endedID {
		return
	}

	o.Runtime(current).SetPlaying(false)

	next := o.queue.Next()
	if next == nil {
		slog.Debug("playlist: queue finished", "sound", endedID)
		return
	}
	slog.Debug("playlist: advancing", "from", endedID, "to", next.ID)
	o.Play(ctx, next)
}

// schedulePreload arms a timer that fires autoPreload before the current
// track's end and loads the next queued track's handles. The guard at fire
// time re-checks that the track is still playing and still current, so a
// skip or stop in between cancels the preload.
func (o *Orchestrator) schedulePreload(rt *engine.Runtime) {
	if o.autoPreload <= 0 || o.durationFn == nil {
		return
	}
	def := rt.Def()
	if def.Repeat {
		return
	}

	duration, err := o.durationFn(def.Path)
	if err != nil {
		slog.Debug("playlist: duration probe failed", "src", def.Path, "err", err)
		return
	}
	delay := duration - o.autoPreload
	if delay < 0 {
		delay = 0
	}

	id := def.ID
	o.mu.Lock()
	if o.preloadTimer != nil {
		o.preloadTimer.Stop()
	}
	o.preloadTimer = time.AfterFunc(delay, func() {
		o.firePreload(id)
	})
	o.mu.Unlock()
}

func (o *Orchestrator) firePreload(id string) {
	o.mu.Lock()
	rt, ok := o.runtimes[id]
	o.mu.Unlock()
	if !ok {
		return
	}

	current := o.queue.Current()
	if current == nil || current.ID != id {
		return
	}
	base := rt.Base()
	if base == nil || !base.Playing() {
		return
	}

	next := o.queue.PeekNext(id)
	if next == nil {
		return
	}
	slog.Debug("playlist: preloading next track", "sound", next.ID)
	o.Runtime(next).Preload(context.Background())
}

// snapshot captures the game state for one crossfade pass.
func (o *Orchestrator) snapshot() game.Snapshot {
	return game.TakeSnapshot(o.state, o.custom, o.opts)
}
