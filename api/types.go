package api

import (
	"context"
	"strings"
	"time"
)

// EventTag identifies when a sound layer should be audible. Tags are
// normalized to "CATEGORY" or "CATEGORY: VALUE", always upper-case.
type EventTag string

const (
	EventDefault           EventTag = "DEFAULT"
	EventGamePaused        EventTag = "GAME: PAUSED"
	EventCombatantFriendly EventTag = "COMBATANT: FRIENDLY"
	EventCombatantNeutral  EventTag = "COMBATANT: NEUTRAL"
	EventCombatantHostile  EventTag = "COMBATANT: HOSTILE"
)

// NormalizeTag joins a 1-2 element event pair as "FIRST" or "FIRST: SECOND",
// upper-cased. Extra elements are ignored.
func NormalizeTag(pair []string) EventTag {
	if len(pair) == 0 {
		return ""
	}
	if len(pair) > 2 {
		pair = pair[:2]
	}
	return EventTag(strings.ToUpper(strings.Join(pair, ": ")))
}

// FormatCustomEvent turns a free-text custom event into its tag form,
// e.g. "bossfight" -> "CUSTOM: BOSSFIGHT". Empty input yields "".
func FormatCustomEvent(custom string) EventTag {
	custom = strings.TrimSpace(custom)
	if custom == "" {
		return ""
	}
	return EventTag("CUSTOM: " + strings.ToUpper(custom))
}

// Disposition is the attitude of the active combatant's token.
type Disposition int

const (
	DispositionUnknown Disposition = iota
	DispositionFriendly
	DispositionNeutral
	DispositionHostile
)

// SoundLayer is one alternate audio asset attached to a PlayableSound,
// audible while one of its event tags is the active event.
type SoundLayer struct {
	Src              string     `json:"src"`
	VolumeAdjustment float64    `json:"volumeAdjustment,omitempty"`
	Events           []EventTag `json:"events"`
}

// PlayableSound is one playlist entry: a base track plus any number of
// alternate layers.
type PlayableSound struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Path         string        `json:"path"`
	Volume       float64       `json:"volume"`
	FadeDuration time.Duration `json:"fade_duration"`
	Repeat       bool          `json:"repeat"`
	Playing      bool          `json:"playing"`
	PausedTime   *float64      `json:"paused_time,omitempty"` // seconds into the track
	Layers       []SoundLayer  `json:"layers,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// PlaylistMode controls how a playlist advances between sounds.
type PlaylistMode int

const (
	ModeSequential PlaylistMode = iota
	ModeShuffle
	ModeSimultaneous
)

type Playlist struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Mode      PlaylistMode    `json:"mode"`
	Playing   bool            `json:"playing"`
	Sounds    []PlayableSound `json:"sounds"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PlayOptions configures a single playback start or re-sync on a Sound.
type PlayOptions struct {
	Volume float64
	Loop   bool
	Fade   time.Duration
	Offset float64 // seconds into the track
}

// LoadOptions configures an asynchronous load request.
type LoadOptions struct {
	Autoplay        bool
	AutoplayOptions *PlayOptions
}

// Sound is a playback handle bound to one audio source. All operations are
// asynchronous: Load and Fade return as soon as the request is scheduled,
// completion is observed through Loaded/Failed and the returned channel.
type Sound interface {
	Src() string

	// Load begins decoding the source. With opts.Autoplay set, playback
	// starts the moment decoding completes. A failed load latches Failed.
	Load(ctx context.Context, opts LoadOptions)

	Play(opts PlayOptions)

	// Fade transitions the volume toward target over duration. The returned
	// channel closes when the fade finishes or the sound stops.
	Fade(target float64, duration time.Duration) <-chan struct{}

	Stop()

	// OnStart registers a callback invoked whenever playback actually begins.
	OnStart(fn func(Sound))

	// OnEnd registers a callback invoked when playback reaches the end of
	// the track on its own (not via Stop).
	OnEnd(fn func(Sound))

	Loaded() bool
	Playing() bool
	Failed() bool
	Loop() bool
	Volume() float64
	CurrentTime() float64 // seconds
}

// GameState is the read-only view of the host game consumed by the
// event resolver.
type GameState interface {
	Paused() bool
	CombatActive() bool
	CombatantDisposition() Disposition
	GlobalVolume() float64
}

// SignalType classifies signals distributed over the bus.
type SignalType int

const (
	SignalCombatUpdated SignalType = iota
	SignalCombatEnded
	SignalPauseToggled
	SignalGlobalVolume
	SignalCustomEvent
	SignalSoundStarted
	SignalSoundUpdated
	SignalSoundDeleted
	SignalSoundEnded
)

// Signal is one external state-change notification.
type Signal struct {
	Type    SignalType
	Payload any
}
