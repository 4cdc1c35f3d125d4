package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Element-Re/crossblade/api"
	"github.com/Element-Re/crossblade/internal/game"
)

// fakeSound records every command issued to it. Loads complete instantly
// unless latent is set, in which case FinishLoad completes them.
type fakeSound struct {
	mu       sync.Mutex
	src      string
	latent   bool
	failNext bool

	loaded  bool
	playing bool
	failed  bool
	loop    bool
	volume  float64
	current float64

	pendingAutoplay *api.PlayOptions
	onStart         []func(api.Sound)
	onEnd           []func(api.Sound)

	loadCalls int
	playCalls int
	stopCalls int
	fades     []float64
}

func (f *fakeSound) Src() string { return f.src }

func (f *fakeSound) Load(ctx context.Context, opts api.LoadOptions) {
	f.mu.Lock()
	f.loadCalls++
	if f.failNext {
		f.failed = true
		f.mu.Unlock()
		return
	}
	if f.latent {
		if opts.Autoplay {
			f.pendingAutoplay = opts.AutoplayOptions
		}
		f.mu.Unlock()
		return
	}
	f.loaded = true
	f.mu.Unlock()
	if opts.Autoplay {
		var play api.PlayOptions
		if opts.AutoplayOptions != nil {
			play = *opts.AutoplayOptions
		}
		f.Play(play)
	}
}

// FinishLoad completes a latent load, starting playback if it was requested
// with autoplay.
func (f *fakeSound) FinishLoad() {
	f.mu.Lock()
	f.loaded = true
	pending := f.pendingAutoplay
	f.pendingAutoplay = nil
	f.mu.Unlock()
	if pending != nil {
		f.Play(*pending)
	}
}

func (f *fakeSound) Play(opts api.PlayOptions) {
	f.mu.Lock()
	f.loaded = true
	f.playing = true
	f.volume = opts.Volume
	f.loop = opts.Loop
	f.current = opts.Offset
	f.playCalls++
	callbacks := append([]func(api.Sound){}, f.onStart...)
	f.mu.Unlock()
	for _, fn := range callbacks {
		fn(f)
	}
}

func (f *fakeSound) Fade(target float64, duration time.Duration) <-chan struct{} {
	f.mu.Lock()
	f.volume = target
	f.fades = append(f.fades, target)
	f.mu.Unlock()
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (f *fakeSound) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	f.playing = false
}

func (f *fakeSound) OnStart(fn func(api.Sound)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onStart = append(f.onStart, fn)
}

func (f *fakeSound) OnEnd(fn func(api.Sound)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onEnd = append(f.onEnd, fn)
}

// FinishPlayback simulates the track reaching its natural end.
func (f *fakeSound) FinishPlayback() {
	f.mu.Lock()
	f.playing = false
	callbacks := append([]func(api.Sound){}, f.onEnd...)
	f.mu.Unlock()
	for _, fn := range callbacks {
		fn(f)
	}
}

func (f *fakeSound) Loaded() bool  { f.mu.Lock(); defer f.mu.Unlock(); return f.loaded }
func (f *fakeSound) Playing() bool { f.mu.Lock(); defer f.mu.Unlock(); return f.playing }
func (f *fakeSound) Failed() bool  { f.mu.Lock(); defer f.mu.Unlock(); return f.failed }
func (f *fakeSound) Loop() bool    { f.mu.Lock(); defer f.mu.Unlock(); return f.loop }

func (f *fakeSound) Volume() float64      { f.mu.Lock(); defer f.mu.Unlock(); return f.volume }
func (f *fakeSound) CurrentTime() float64 { f.mu.Lock(); defer f.mu.Unlock(); return f.current }

// fakeFactory hands out one fake per source path.
type fakeFactory struct {
	mu     sync.Mutex
	sounds map[string]*fakeSound
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{sounds: make(map[string]*fakeSound)}
}

func (ff *fakeFactory) create(src string) api.Sound {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	if s, ok := ff.sounds[src]; ok {
		return s
	}
	s := &fakeSound{src: src}
	ff.sounds[src] = s
	return s
}

func (ff *fakeFactory) get(src string) *fakeSound {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return ff.sounds[src]
}

func testSound() *api.PlayableSound {
	return &api.PlayableSound{
		ID:      "snd-1",
		Name:    "Battle Theme",
		Path:    "base.ogg",
		Volume:  0.8,
		Playing: true,
		Layers: []api.SoundLayer{
			{Src: "a.ogg", VolumeAdjustment: 1, Events: []api.EventTag{api.EventCombatantHostile}},
			{Src: "b.ogg", VolumeAdjustment: 1, Events: []api.EventTag{"CUSTOM: BOSSFIGHT"}},
		},
	}
}

func snapshot(event, custom api.EventTag) game.Snapshot {
	return game.Snapshot{Event: event, Custom: custom, GlobalVolume: 1}
}

func syncAndWait(t *testing.T, e *Engine, rt *Runtime, snap game.Snapshot) {
	t.Helper()
	select {
	case <-e.Sync(context.Background(), rt, snap):
	case <-time.After(time.Second):
		t.Fatal("sync did not complete")
	}
}

func TestSync_DefaultEventOnlyBaseAudible(t *testing.T) {
	ff := newFakeFactory()
	rt := NewRuntime(testSound(), ff.create, nil)
	e := New(true)

	syncAndWait(t, e, rt, snapshot(api.EventDefault, ""))

	if got := ff.get("base.ogg").Volume(); got != 0.8 {
		t.Errorf("base volume = %f, want 0.8", got)
	}
	for _, src := range []string{"a.ogg", "b.ogg"} {
		if got := ff.get(src).Volume(); got != 0 {
			t.Errorf("%s volume = %f, want 0", src, got)
		}
	}
}

func TestSync_EventPrecedence(t *testing.T) {
	ff := newFakeFactory()
	rt := NewRuntime(testSound(), ff.create, nil)
	e := New(true)

	// Hostile combatant: only the hostile-tagged layer plays.
	syncAndWait(t, e, rt, snapshot(api.EventCombatantHostile, ""))

	if got := ff.get("a.ogg").Volume(); got != 0.8 {
		t.Errorf("hostile layer volume = %f, want 0.8", got)
	}
	if got := ff.get("base.ogg").Volume(); got != 0 {
		t.Errorf("base volume = %f, want 0", got)
	}
	if got := ff.get("b.ogg").Volume(); got != 0 {
		t.Errorf("custom layer volume = %f, want 0", got)
	}

	// A declared custom event wins over the computed event.
	syncAndWait(t, e, rt, snapshot(api.EventCombatantHostile, "CUSTOM: BOSSFIGHT"))

	if got := ff.get("b.ogg").Volume(); got != 0.8 {
		t.Errorf("custom layer volume = %f, want 0.8", got)
	}
	if got := ff.get("a.ogg").Volume(); got != 0 {
		t.Errorf("hostile layer volume = %f, want 0", got)
	}
}

func TestSync_UndeclaredCustomEventIgnored(t *testing.T) {
	ff := newFakeFactory()
	rt := NewRuntime(testSound(), ff.create, nil)
	e := New(true)

	syncAndWait(t, e, rt, snapshot(api.EventCombatantHostile, "CUSTOM: NOBODY"))

	if got := ff.get("a.ogg").Volume(); got != 0.8 {
		t.Errorf("hostile layer volume = %f, want 0.8", got)
	}
	if got := ff.get("b.ogg").Volume(); got != 0 {
		t.Errorf("custom layer volume = %f, want 0", got)
	}
}

func TestSync_FallbackOnEmptyMatch(t *testing.T) {
	def := &api.PlayableSound{
		ID:      "snd-2",
		Path:    "base.ogg",
		Volume:  0.8,
		Playing: true,
		Layers: []api.SoundLayer{
			{Src: "a.ogg", VolumeAdjustment: 1, Events: []api.EventTag{api.EventCombatantHostile}},
			{Src: "b.ogg", VolumeAdjustment: 1, Events: []api.EventTag{api.EventGamePaused}},
		},
	}
	ff := newFakeFactory()
	rt := NewRuntime(def, ff.create, nil)
	e := New(true)

	// Nothing matches FRIENDLY and nothing declares DEFAULT: base only.
	syncAndWait(t, e, rt, snapshot(api.EventCombatantFriendly, ""))

	if got := ff.get("base.ogg").Volume(); got != 0.8 {
		t.Errorf("base volume = %f, want 0.8", got)
	}
	for _, src := range []string{"a.ogg", "b.ogg"} {
		if got := ff.get(src).Volume(); got != 0 {
			t.Errorf("%s volume = %f, want 0", src, got)
		}
	}
}

func TestSync_VolumeAdjustmentClamped(t *testing.T) {
	def := &api.PlayableSound{
		ID:      "snd-3",
		Path:    "base.ogg",
		Volume:  0.5,
		Playing: true,
		Layers: []api.SoundLayer{
			{Src: "loud.ogg", VolumeAdjustment: 1.5, Events: []api.EventTag{api.EventCombatantHostile}},
			{Src: "quiet.ogg", VolumeAdjustment: -0.2, Events: []api.EventTag{api.EventGamePaused}},
		},
	}
	ff := newFakeFactory()
	rt := NewRuntime(def, ff.create, nil)
	e := New(true)

	syncAndWait(t, e, rt, snapshot(api.EventCombatantHostile, ""))
	if got := ff.get("loud.ogg").Volume(); got != 0.5 {
		t.Errorf("clamped-up layer volume = %f, want 0.5", got)
	}

	syncAndWait(t, e, rt, snapshot(api.EventGamePaused, ""))
	if got := ff.get("quiet.ogg").Volume(); got != 0 {
		t.Errorf("clamped-down layer volume = %f, want 0", got)
	}
}

func TestSync_Idempotent(t *testing.T) {
	ff := newFakeFactory()
	rt := NewRuntime(testSound(), ff.create, nil)
	e := New(true)

	snap := snapshot(api.EventCombatantHostile, "")
	syncAndWait(t, e, rt, snap)

	base, a, b := ff.get("base.ogg"), ff.get("a.ogg"), ff.get("b.ogg")
	playCalls := []int{base.playCalls, a.playCalls, b.playCalls}
	volumes := []float64{base.Volume(), a.Volume(), b.Volume()}

	syncAndWait(t, e, rt, snap)

	for i, f := range []*fakeSound{base, a, b} {
		if f.playCalls != playCalls[i] {
			t.Errorf("%s: play re-issued on unchanged sync (%d -> %d)", f.src, playCalls[i], f.playCalls)
		}
		if f.Volume() != volumes[i] {
			t.Errorf("%s: volume changed on unchanged sync (%f -> %f)", f.src, volumes[i], f.Volume())
		}
	}
}

func TestSync_FailedHandleExcluded(t *testing.T) {
	ff := newFakeFactory()
	broken := &fakeSound{src: "a.ogg", failed: true}
	ff.sounds["a.ogg"] = broken

	rt := NewRuntime(testSound(), ff.create, nil)
	e := New(true)

	syncAndWait(t, e, rt, snapshot(api.EventCombatantHostile, ""))

	if len(broken.fades) != 0 || broken.playCalls != 0 {
		t.Errorf("failed handle received commands: %d fades, %d plays", len(broken.fades), broken.playCalls)
	}
	// No layer declares HOSTILE anymore, so the event resolution falls back
	// and the base carries the sound.
	if got := ff.get("base.ogg").Volume(); got != 0.8 {
		t.Errorf("base volume = %f, want 0.8", got)
	}
}

func TestSync_HandleFailingAfterBuildStopsMatching(t *testing.T) {
	ff := newFakeFactory()
	rt := NewRuntime(testSound(), ff.create, nil)
	e := New(true)

	syncAndWait(t, e, rt, snapshot(api.EventDefault, ""))

	// The hostile layer's handle dies mid-session, after the layer map
	// was built.
	a := ff.get("a.ogg")
	a.mu.Lock()
	a.failed = true
	a.mu.Unlock()

	syncAndWait(t, e, rt, snapshot(api.EventCombatantHostile, ""))

	// Its tags no longer count: nothing declares HOSTILE, resolution
	// falls back and the base carries the sound instead of going silent.
	if got := ff.get("base.ogg").Volume(); got != 0.8 {
		t.Errorf("base volume = %f, want 0.8", got)
	}
	if got := ff.get("b.ogg").Volume(); got != 0 {
		t.Errorf("custom layer volume = %f, want 0", got)
	}
	if a.stopCalls == 0 {
		t.Error("dead handle was not stopped when the map rebuilt")
	}
}

func TestSync_ResumesFromPausedOffset(t *testing.T) {
	ff := newFakeFactory()
	def := testSound()
	def.Playing = false
	offset := 12.5
	def.PausedTime = &offset
	rt := NewRuntime(def, ff.create, nil)
	e := New(true)

	rt.SetPlaying(true)
	syncAndWait(t, e, rt, snapshot(api.EventDefault, ""))

	base := ff.get("base.ogg")
	if got := base.CurrentTime(); got != 12.5 {
		t.Errorf("base offset = %f, want 12.5", got)
	}
	if def.PausedTime != nil {
		t.Error("resume offset still set after the sync consumed it")
	}
}

func TestSync_FailedBasePreventsAllAudio(t *testing.T) {
	ff := newFakeFactory()
	ff.sounds["base.ogg"] = &fakeSound{src: "base.ogg", failed: true}

	rt := NewRuntime(testSound(), ff.create, nil)
	e := New(true)

	syncAndWait(t, e, rt, snapshot(api.EventCombatantHostile, ""))

	if a := ff.get("a.ogg"); a != nil && (a.playCalls > 0 || a.loadCalls > 0) {
		t.Error("layer handle driven despite failed base")
	}
}

func TestSync_StopWithFade(t *testing.T) {
	ff := newFakeFactory()
	def := testSound()
	def.FadeDuration = time.Second
	rt := NewRuntime(def, ff.create, nil)
	e := New(true)

	syncAndWait(t, e, rt, snapshot(api.EventCombatantHostile, ""))

	rt.SetPlaying(false)
	syncAndWait(t, e, rt, snapshot(api.EventCombatantHostile, ""))

	for _, src := range []string{"base.ogg", "a.ogg", "b.ogg"} {
		f := ff.get(src)
		if f.Playing() {
			t.Errorf("%s still playing after stop sync", src)
		}
		if f.stopCalls == 0 {
			t.Errorf("%s never received stop", src)
		}
	}
	// Handles that were audibly playing fade to zero before stopping.
	base := ff.get("base.ogg")
	if n := len(base.fades); n == 0 || base.fades[n-1] != 0 {
		t.Errorf("base fades = %v, want trailing fade to 0", base.fades)
	}
}

func TestSync_StopImmediateWithPausedOffset(t *testing.T) {
	ff := newFakeFactory()
	def := testSound()
	def.FadeDuration = time.Second
	rt := NewRuntime(def, ff.create, nil)
	e := New(true)

	syncAndWait(t, e, rt, snapshot(api.EventDefault, ""))

	base := ff.get("base.ogg")
	fadesBefore := len(base.fades)

	offset := 12.5
	def.Playing = false
	def.PausedTime = &offset
	syncAndWait(t, e, rt, snapshot(api.EventDefault, ""))

	if base.Playing() {
		t.Error("base still playing after paused stop")
	}
	if len(base.fades) != fadesBefore {
		t.Error("paused stop should not fade")
	}
}

func TestSync_LayerStartOrderedAfterBase(t *testing.T) {
	ff := newFakeFactory()
	base := &fakeSound{src: "base.ogg", latent: true}
	layer := &fakeSound{src: "a.ogg", latent: true}
	ff.sounds["base.ogg"] = base
	ff.sounds["a.ogg"] = layer

	rt := NewRuntime(testSound(), ff.create, nil)
	e := New(true)

	syncAndWait(t, e, rt, snapshot(api.EventCombatantHostile, ""))

	// Base was asked to load with autoplay; the layer only preloads.
	if base.loadCalls != 1 {
		t.Fatalf("base loadCalls = %d, want 1", base.loadCalls)
	}
	if layer.playCalls != 0 {
		t.Fatal("layer started before base")
	}
	if layer.loadCalls == 0 {
		t.Error("layer was not preloaded while waiting for base")
	}

	// Decoding finishes, base starts; the follow-up sync starts the layer.
	base.FinishLoad()
	layer.FinishLoad()
	if !base.Playing() {
		t.Fatal("base not playing after load completed")
	}
	syncAndWait(t, e, rt, snapshot(api.EventCombatantHostile, ""))

	if !layer.Playing() {
		t.Error("layer not started after base start")
	}
	if got := layer.Volume(); got != 0.8 {
		t.Errorf("layer volume = %f, want 0.8", got)
	}
}

func TestSync_DisabledCrossfadeKeepsBase(t *testing.T) {
	ff := newFakeFactory()
	rt := NewRuntime(testSound(), ff.create, nil)
	e := New(false)

	syncAndWait(t, e, rt, snapshot(api.EventCombatantHostile, ""))

	if got := ff.get("base.ogg").Volume(); got != 0.8 {
		t.Errorf("base volume = %f, want 0.8", got)
	}
	if got := ff.get("a.ogg").Volume(); got != 0 {
		t.Errorf("hostile layer volume = %f, want 0", got)
	}
}

func TestSync_GlobalVolumeApplied(t *testing.T) {
	ff := newFakeFactory()
	rt := NewRuntime(testSound(), ff.create, nil)
	e := New(true)

	snap := game.Snapshot{Event: api.EventDefault, GlobalVolume: 0.5}
	syncAndWait(t, e, rt, snap)

	if got := ff.get("base.ogg").Volume(); got != 0.4 {
		t.Errorf("base volume = %f, want 0.4", got)
	}
}

func TestRuntime_SharedBaseHandle(t *testing.T) {
	def := &api.PlayableSound{
		ID:      "snd-4",
		Path:    "base.ogg",
		Volume:  1,
		Playing: true,
		Layers: []api.SoundLayer{
			{Src: "base.ogg", VolumeAdjustment: 1, Events: []api.EventTag{api.EventGamePaused}},
		},
	}
	ff := newFakeFactory()
	rt := NewRuntime(def, ff.create, nil)

	sounds := rt.UniqueSounds(true)
	if len(sounds) != 1 {
		t.Fatalf("expected the layer to collapse onto the base handle, got %d handles", len(sounds))
	}
	if sounds[0] != rt.Base() {
		t.Error("unique handle is not the base handle")
	}
}

func TestRuntime_UpdateStopsStaleHandles(t *testing.T) {
	ff := newFakeFactory()
	rt := NewRuntime(testSound(), ff.create, nil)
	e := New(true)

	syncAndWait(t, e, rt, snapshot(api.EventCombatantHostile, ""))
	old := ff.get("a.ogg")

	updated := testSound()
	updated.Layers = []api.SoundLayer{
		{Src: "c.ogg", VolumeAdjustment: 1, Events: []api.EventTag{api.EventCombatantHostile}},
	}
	rt.Update(updated)

	if old.stopCalls == 0 {
		t.Error("stale layer handle was not stopped on update")
	}
	if ff.get("c.ogg") == nil {
		t.Error("new layer handle was not created eagerly")
	}
}

func TestSync_E2EScenario(t *testing.T) {
	def := &api.PlayableSound{
		ID:           "snd-e2e",
		Path:         "base.ogg",
		Volume:       0.8,
		FadeDuration: time.Second,
		Playing:      true,
		Layers: []api.SoundLayer{
			{Src: "a.ogg", VolumeAdjustment: 1, Events: []api.EventTag{api.EventCombatantHostile}},
			{Src: "b.ogg", VolumeAdjustment: 1, Events: []api.EventTag{"CUSTOM: BOSS"}},
		},
	}
	ff := newFakeFactory()
	rt := NewRuntime(def, ff.create, nil)
	e := New(true)

	base, a, b := "base.ogg", "a.ogg", "b.ogg"
	steps := []struct {
		name string
		snap game.Snapshot
		want map[string]float64
	}{
		{
			"default", snapshot(api.EventDefault, ""),
			map[string]float64{base: 0.8, a: 0, b: 0},
		},
		{
			"combat turns hostile", snapshot(api.EventCombatantHostile, ""),
			map[string]float64{base: 0, a: 0.8, b: 0},
		},
		{
			"custom boss event", snapshot(api.EventCombatantHostile, "CUSTOM: BOSS"),
			map[string]float64{base: 0, a: 0, b: 0.8},
		},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			syncAndWait(t, e, rt, step.snap)
			for src, want := range step.want {
				if got := ff.get(src).Volume(); got != want {
					t.Errorf("%s volume = %f, want %f", src, got, want)
				}
			}
		})
	}
}
