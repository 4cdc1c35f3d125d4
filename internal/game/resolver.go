package game

import "github.com/Element-Re/crossblade/api"

// Options selects which event features participate in resolution. They map
// to the user-facing "combat triggers events" and "pause triggers an event"
// toggles.
type Options struct {
	CombatEvents     bool
	CombatPauseEvent bool
}

// Resolve computes the active event from game state. Precedence, first
// match wins:
//  1. pause event enabled and game paused -> GAME: PAUSED
//  2. combat events disabled or no combat running -> DEFAULT
//  3. active combatant's disposition -> COMBATANT: *, unknown -> DEFAULT
//
// The custom-event override is not resolved here; whether it applies
// depends on the layers of each individual sound.
func Resolve(state api.GameState, opts Options) api.EventTag {
	if opts.CombatPauseEvent && state.Paused() {
		return api.EventGamePaused
	}
	if !opts.CombatEvents || !state.CombatActive() {
		return api.EventDefault
	}
	switch state.CombatantDisposition() {
	case api.DispositionFriendly:
		return api.EventCombatantFriendly
	case api.DispositionNeutral:
		return api.EventCombatantNeutral
	case api.DispositionHostile:
		return api.EventCombatantHostile
	default:
		return api.EventDefault
	}
}

// Snapshot is everything a single crossfade pass needs from shared state,
// captured once so concurrent updates cannot shear a pass in half.
type Snapshot struct {
	Event        api.EventTag
	Custom       api.EventTag
	GlobalVolume float64
}

// TakeSnapshot resolves the active event and captures the custom override
// and global volume for one crossfade pass.
func TakeSnapshot(state api.GameState, custom *CustomEvent, opts Options) Snapshot {
	snap := Snapshot{
		Event:        Resolve(state, opts),
		GlobalVolume: state.GlobalVolume(),
	}
	if custom != nil {
		snap.Custom = custom.Formatted()
	}
	return snap
}
