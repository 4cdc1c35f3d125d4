// Package game tracks the host game's state (pause, combat, volume) and
// resolves it into the single active trigger event.
package game

import (
	"strings"
	"sync"

	"github.com/Element-Re/crossblade/api"
	"github.com/Element-Re/crossblade/pkg/events"
)

// Ensure State implements GameState interface at compile time
var _ api.GameState = (*State)(nil)

// State is the mutable in-memory game state. Every mutation publishes the
// matching signal on the bus so playing sounds re-sync.
type State struct {
	mu           sync.RWMutex
	paused       bool
	combatActive bool
	disposition  api.Disposition
	globalVolume float64
	bus          *events.Bus
}

// NewState creates game state with full global volume and no active combat.
func NewState(bus *events.Bus) *State {
	return &State{
		disposition:  api.DispositionUnknown,
		globalVolume: 1.0,
		bus:          bus,
	}
}

func (s *State) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

func (s *State) CombatActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.combatActive
}

func (s *State) CombatantDisposition() api.Disposition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disposition
}

func (s *State) GlobalVolume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.globalVolume
}

// SetPaused toggles the game-pause flag.
func (s *State) SetPaused(paused bool) {
	s.mu.Lock()
	s.paused = paused
	s.mu.Unlock()
	s.publish(api.Signal{Type: api.SignalPauseToggled, Payload: paused})
}

// SetCombat records a combat turn change. disposition is the active
// combatant's attitude, DispositionUnknown when absent.
func (s *State) SetCombat(active bool, disposition api.Disposition) {
	s.mu.Lock()
	wasActive := s.combatActive
	s.combatActive = active
	s.disposition = disposition
	s.mu.Unlock()

	if wasActive && !active {
		s.publish(api.Signal{Type: api.SignalCombatEnded})
		return
	}
	s.publish(api.Signal{Type: api.SignalCombatUpdated, Payload: disposition})
}

// SetGlobalVolume sets the global playlist volume multiplier.
func (s *State) SetGlobalVolume(volume float64) {
	if volume < 0 {
		volume = 0
	} else if volume > 1 {
		volume = 1
	}
	s.mu.Lock()
	s.globalVolume = volume
	s.mu.Unlock()
	s.publish(api.Signal{Type: api.SignalGlobalVolume, Payload: volume})
}

func (s *State) publish(sig api.Signal) {
	if s.bus != nil {
		s.bus.Publish(sig)
	}
}

// CustomEvent is the process-wide manual override trigger. It is the seam
// the event relay calls into: Set applies a remote or local change and
// publishes it for every participant.
type CustomEvent struct {
	mu    sync.RWMutex
	value string
	bus   *events.Bus
}

func NewCustomEvent(bus *events.Bus) *CustomEvent {
	return &CustomEvent{bus: bus}
}

// Get returns the raw custom event text, "" when unset.
func (c *CustomEvent) Get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set updates the custom event. An empty value clears it.
func (c *CustomEvent) Set(value string) {
	value = strings.TrimSpace(value)
	c.mu.Lock()
	c.value = value
	c.mu.Unlock()
	if c.bus != nil {
		c.bus.Publish(api.Signal{Type: api.SignalCustomEvent, Payload: value})
	}
}

// Formatted returns the custom event as a trigger tag, "" when unset.
func (c *CustomEvent) Formatted() api.EventTag {
	return api.FormatCustomEvent(c.Get())
}
