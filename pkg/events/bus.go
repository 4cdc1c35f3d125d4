package events

import (
	"sync"

	"github.com/Element-Re/crossblade/api"
)

// Bus handles signal distribution using channels
type Bus struct {
	subscribers map[api.SignalType][]chan api.Signal
	mu          sync.RWMutex
}

// NewBus creates a new signal bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[api.SignalType][]chan api.Signal),
	}
}

// Subscribe returns a channel for receiving signals of the specified type
func (b *Bus) Subscribe(signalType api.SignalType) <-chan api.Signal {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan api.Signal, 10)
	b.subscribers[signalType] = append(b.subscribers[signalType], ch)
	return ch
}

// SubscribeAll returns a channel for receiving all signal types
func (b *Bus) SubscribeAll() <-chan api.Signal {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan api.Signal, 20)
	// Subscribe to all known signal types
	for _, signalType := range []api.SignalType{
		api.SignalCombatUpdated,
		api.SignalCombatEnded,
		api.SignalPauseToggled,
		api.SignalGlobalVolume,
		api.SignalCustomEvent,
		api.SignalSoundStarted,
		api.SignalSoundUpdated,
		api.SignalSoundDeleted,
		api.SignalSoundEnded,
	} {
		b.subscribers[signalType] = append(b.subscribers[signalType], ch)
	}
	return ch
}

// Publish broadcasts a signal to all subscribers of that signal type
func (b *Bus) Publish(sig api.Signal) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if subs, ok := b.subscribers[sig.Type]; ok {
		for _, ch := range subs {
			select {
			case ch <- sig:
			default:
				// Channel full, skip to prevent blocking
			}
		}
	}
}

// Unsubscribe removes a subscriber channel
func (b *Bus) Unsubscribe(ch <-chan api.Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for signalType, subs := range b.subscribers {
		for i, sub := range subs {
			if sub == ch {
				b.subscribers[signalType] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Close closes all subscriber channels
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Track closed channels to avoid closing the same channel twice
	closed := make(map[chan api.Signal]bool)

	for _, subs := range b.subscribers {
		for _, ch := range subs {
			if !closed[ch] {
				close(ch)
				closed[ch] = true
			}
		}
	}
	b.subscribers = make(map[api.SignalType][]chan api.Signal)
}
