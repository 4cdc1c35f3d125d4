// Package engine drives a PlayableSound's handles toward the volumes the
// active event calls for: load-before-play ordering, crossfades between
// competing layers, and fade-then-stop teardown.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Element-Re/crossblade/api"
	"github.com/Element-Re/crossblade/internal/game"
)

// Engine computes per-handle target volumes and issues the playback commands
// that realize them. It holds no per-sound state; that lives on each Runtime.
type Engine struct {
	enabled atomic.Bool
}

// New creates an engine. enabled is the global crossfade toggle: when off,
// only base tracks are audible.
func New(enabled bool) *Engine {
	e := &Engine{}
	e.enabled.Store(enabled)
	return e
}

func (e *Engine) Enabled() bool {
	return e.enabled.Load()
}

func (e *Engine) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
}

// Sync brings every unique handle of the sound into agreement with the
// intended-playing flag and the snapshot's active event. It returns as soon
// as every handle's command has been issued; the returned channel closes
// once all fades scheduled by this call have completed.
//
// Sync is idempotent: re-running it with unchanged state re-issues at most
// a fade to the volume a handle already has, never a playback restart.
func (e *Engine) Sync(ctx context.Context, rt *Runtime, snap game.Snapshot) <-chan struct{} {
	done := make(chan struct{})

	base := rt.Base()
	if base == nil || base.Failed() {
		// A sound without a playable base produces no audio at all.
		slog.Debug("sync: no playable base handle", "sound", rt.Def().ID)
		close(done)
		return done
	}

	lm := rt.LayerMap()
	for h := range lm {
		if h.Failed() {
			// A handle that died after the map was built must not keep
			// its tags in event matching; a rebuild drops it.
			rt.Invalidate()
			lm = rt.LayerMap()
			break
		}
	}
	def := rt.Def()

	var wg sync.WaitGroup
	for _, h := range rt.UniqueSounds(true) {
		e.syncSound(ctx, def, lm, base, h, snap, &wg)
	}
	if def.Playing && def.PausedTime != nil {
		// The play command above consumed the resume offset; a later stop
		// must not mistake it for a pending resume.
		rt.ClearPausedTime()
	}
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// syncSound issues the command that moves one handle toward its target:
// stop or fade-out when the sound should not play, otherwise load, play or
// fade depending on the handle's current state.
func (e *Engine) syncSound(ctx context.Context, def *api.PlayableSound, lm map[api.Sound]*LayerData, base, h api.Sound, snap game.Snapshot, wg *sync.WaitGroup) {
	if h.Failed() {
		slog.Debug("sync: skipping failed handle", "sound", def.ID, "src", h.Src())
		return
	}

	fade := def.FadeDuration

	if !def.Playing {
		// A paused offset means the track resumes later; fading would
		// drift the stored position, so stop immediately.
		if fade > 0 && def.PausedTime == nil && h.Playing() {
			faded := h.Fade(0, fade)
			wg.Add(1)
			go func() {
				<-faded
				h.Stop()
				wg.Done()
			}()
		} else {
			h.Stop()
		}
		return
	}

	volume := e.targetVolume(def, lm, base, h, snap)
	opts := api.PlayOptions{
		Volume: volume,
		Loop:   def.Repeat,
		Fade:   fade,
	}

	switch {
	case !h.Playing():
		if h != base {
			if !base.Playing() {
				// Layer starts are ordered after the base handle's first
				// start; preload now, play on the base's start signal.
				if !h.Loaded() {
					h.Load(ctx, api.LoadOptions{})
				}
				return
			}
			opts.Offset = base.CurrentTime()
		} else if def.PausedTime != nil {
			opts.Offset = *def.PausedTime
		}
		if h.Loaded() {
			h.Play(opts)
		} else {
			h.Load(ctx, api.LoadOptions{Autoplay: true, AutoplayOptions: &opts})
		}
	case h.Loop() != def.Repeat:
		// Loop flag changed under the handle; replay with the right mode.
		h.Play(opts)
	default:
		faded := h.Fade(volume, fade)
		wg.Add(1)
		go func() {
			<-faded
			wg.Done()
		}()
	}
}

// targetVolume resolves the effective event against the sound's layers and
// returns the volume handle h should settle at.
func (e *Engine) targetVolume(def *api.PlayableSound, lm map[api.Sound]*LayerData, base, h api.Sound, snap game.Snapshot) float64 {
	adjustment := 1.0
	if ld, ok := lm[h]; ok {
		adjustment = clamp(ld.VolumeAdjustment, 0, 1)
	}
	nominal := def.Volume * snap.GlobalVolume * adjustment

	// Only the base handle is audible unless a layer claims the event.
	volume := 0.0
	if h == base {
		volume = nominal
	}

	if !e.Enabled() || len(lm) == 0 {
		return volume
	}

	event := snap.Event
	if snap.Custom != "" && declaresTag(lm, snap.Custom) {
		// The custom override only applies when some layer declares it.
		event = snap.Custom
	} else if event != api.EventDefault && !declaresTag(lm, event) {
		// No layer matches the active event; fall back to DEFAULT.
		event = api.EventDefault
	}

	matched := false
	inCurrent := false
	inOther := false
	for handle, ld := range lm {
		if hasTag(ld.Events, event) {
			matched = true
			if handle == h {
				inCurrent = true
			}
		} else if handle == h {
			inOther = true
		}
	}

	if matched {
		if inCurrent {
			volume = nominal
		} else if inOther || h == base {
			volume = 0
		}
	}
	return volume
}

func declaresTag(lm map[api.Sound]*LayerData, tag api.EventTag) bool {
	for _, ld := range lm {
		if hasTag(ld.Events, tag) {
			return true
		}
	}
	return false
}

func hasTag(tags []api.EventTag, tag api.EventTag) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
