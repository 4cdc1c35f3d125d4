package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Element-Re/crossblade/api"
)

// SoundFactory creates a playback handle for an audio source path.
type SoundFactory func(src string) api.Sound

// LayerData is the runtime form of one sound layer, keyed by its handle.
type LayerData struct {
	Events           []api.EventTag
	VolumeAdjustment float64
}

// Runtime binds a PlayableSound definition to its playback handles: the base
// handle plus one lazily-created handle per distinct layer source. A layer
// whose source equals the base path shares the base handle.
//
// The derived handle-to-layer map is cached against a definition version
// stamp; Invalidate bumps the stamp and the map is rebuilt on next access.
type Runtime struct {
	mu      sync.Mutex
	def     *api.PlayableSound
	base    api.Sound
	factory SoundFactory
	onStart func(api.Sound)
	onEnd   []func(api.Sound)

	handles  map[string]api.Sound // layer handles by source path
	layerMap map[api.Sound]*LayerData
	gen      uint64 // definition version stamp
	builtGen uint64
}

// NewRuntime creates the runtime for a sound definition. onStart is
// registered on the base handle and every layer handle it creates, so layer
// handles get the same start scheduling as the base.
func NewRuntime(def *api.PlayableSound, factory SoundFactory, onStart func(api.Sound)) *Runtime {
	rt := &Runtime{
		def:     def,
		factory: factory,
		onStart: onStart,
		handles: make(map[string]api.Sound),
		gen:     1,
	}
	rt.base = factory(def.Path)
	if rt.base != nil && onStart != nil {
		rt.base.OnStart(onStart)
	}
	return rt
}

// Def returns the current sound definition.
func (rt *Runtime) Def() *api.PlayableSound {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.def
}

// Base returns the base track's handle.
func (rt *Runtime) Base() api.Sound {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.base
}

// OnBaseEnd registers fn for the base track reaching its natural end. The
// registration survives base handle replacement on a path change.
func (rt *Runtime) OnBaseEnd(fn func(api.Sound)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.onEnd = append(rt.onEnd, fn)
	if rt.base != nil {
		rt.base.OnEnd(fn)
	}
}

// SetPlaying flips the definition's intended-playing flag. A stored paused
// offset stays put; the sync that resumes playback consumes it.
func (rt *Runtime) SetPlaying(playing bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.def.Playing = playing
}

// ClearPausedTime drops the resume offset once a play command has used it.
func (rt *Runtime) ClearPausedTime() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.def.PausedTime = nil
}

// Invalidate marks the cached layer map stale. The next access rebuilds it,
// stopping any handle that is no longer part of the definition.
func (rt *Runtime) Invalidate() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.gen++
}

// Update replaces the sound definition and eagerly rebuilds the layer map so
// a following sync is not racing stale handles. Every previously created
// layer handle is stopped and discarded; a changed base path also stops and
// replaces the base handle.
func (rt *Runtime) Update(def *api.PlayableSound) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	for _, h := range rt.handles {
		h.Stop()
	}
	rt.handles = make(map[string]api.Sound)

	if def.Path != rt.def.Path {
		if rt.base != nil {
			rt.base.Stop()
		}
		rt.base = rt.factory(def.Path)
		if rt.base != nil {
			if rt.onStart != nil {
				rt.base.OnStart(rt.onStart)
			}
			for _, fn := range rt.onEnd {
				rt.base.OnEnd(fn)
			}
		}
	}
	rt.def = def
	rt.gen++
	rt.rebuildLocked()
}

// LayerMap returns the handle-to-layer mapping, rebuilding it if the
// definition changed since the last build.
func (rt *Runtime) LayerMap() map[api.Sound]*LayerData {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.builtGen != rt.gen {
		rt.rebuildLocked()
	}
	return rt.layerMap
}

// rebuildLocked recreates the layer map from the definition. Handles whose
// source dropped out of the definition receive a stop; failed handles are
// excluded so they never participate in volume targeting.
func (rt *Runtime) rebuildLocked() {
	built := make(map[api.Sound]*LayerData, len(rt.def.Layers))
	for _, layer := range rt.def.Layers {
		if layer.Src == "" {
			continue
		}
		h := rt.soundForLocked(layer.Src)
		if h == nil || h.Failed() {
			slog.Debug("layers: excluding failed handle", "sound", rt.def.ID, "src", layer.Src)
			continue
		}
		adjustment := layer.VolumeAdjustment
		if adjustment == 0 {
			adjustment = 1
		}
		// A handle shared by several layers keeps the last layer's data;
		// volume targeting works on handle identity.
		built[h] = &LayerData{
			Events:           append([]api.EventTag(nil), layer.Events...),
			VolumeAdjustment: adjustment,
		}
	}

	for src, h := range rt.handles {
		if _, ok := built[h]; !ok {
			h.Stop()
			delete(rt.handles, src)
		}
	}

	rt.layerMap = built
	rt.builtGen = rt.gen
}

// soundForLocked returns the handle for src: the base handle if the source
// matches the base track, an already-created layer handle otherwise, or a
// freshly created one registered with the start hook.
func (rt *Runtime) soundForLocked(src string) api.Sound {
	if rt.base != nil && src == rt.def.Path {
		return rt.base
	}
	if h, ok := rt.handles[src]; ok {
		return h
	}
	h := rt.factory(src)
	if h == nil {
		return nil
	}
	if rt.onStart != nil {
		h.OnStart(rt.onStart)
	}
	rt.handles[src] = h
	return h
}

// UniqueSounds returns the distinct handles of this sound's layers, plus the
// base handle when includeBase is set.
func (rt *Runtime) UniqueSounds(includeBase bool) []api.Sound {
	lm := rt.LayerMap()

	rt.mu.Lock()
	defer rt.mu.Unlock()

	seen := make(map[api.Sound]bool, len(lm)+1)
	var sounds []api.Sound
	if includeBase && rt.base != nil {
		seen[rt.base] = true
		sounds = append(sounds, rt.base)
	}
	for h := range lm {
		if !seen[h] {
			seen[h] = true
			sounds = append(sounds, h)
		}
	}
	return sounds
}

// Preload begins loading every unique handle without starting playback.
func (rt *Runtime) Preload(ctx context.Context) {
	for _, h := range rt.UniqueSounds(true) {
		if !h.Loaded() && !h.Failed() {
			h.Load(ctx, api.LoadOptions{})
		}
	}
}

// StopAll stops every unique handle immediately.
func (rt *Runtime) StopAll() {
	for _, h := range rt.UniqueSounds(true) {
		h.Stop()
	}
}
