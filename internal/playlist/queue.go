package playlist

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/Element-Re/crossblade/api"
)

// Queue represents a playback queue over one playlist's sounds
type Queue struct {
	sounds   []*api.PlayableSound
	index    int
	mode     api.PlaylistMode
	repeat   bool
	original []*api.PlayableSound // Original order before shuffle
	mu       sync.RWMutex
}

// NewQueue creates a new empty queue
func NewQueue() *Queue {
	return &Queue{
		sounds: make([]*api.PlayableSound, 0),
		index:  0,
		mode:   api.ModeSequential,
	}
}

// Set replaces the entire queue with the sounds of a playlist
func (q *Queue) Set(sounds []*api.PlayableSound, mode api.PlaylistMode) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.sounds = make([]*api.PlayableSound, len(sounds))
	copy(q.sounds, sounds)
	q.original = nil
	q.index = 0
	q.mode = mode

	if mode == api.ModeShuffle {
		q.shuffleLocked()
	}
}

// Clear removes all sounds from the queue
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.sounds = make([]*api.PlayableSound, 0)
	q.original = nil
	q.index = 0
}

// Current returns the current sound
func (q *Queue) Current() *api.PlayableSound {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if len(q.sounds) == 0 || q.index < 0 || q.index >= len(q.sounds) {
		return nil
	}
	return q.sounds[q.index]
}

// Next advances to the next sound and returns it. In simultaneous mode
// there is no advancement; repeat wraps sequential/shuffle queues around.
func (q *Queue) Next() *api.PlayableSound {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.sounds) == 0 || q.mode == api.ModeSimultaneous {
		return nil
	}

	if q.index < len(q.sounds)-1 {
		q.index++
	} else if q.repeat {
		q.index = 0
	} else {
		return nil // End of queue
	}

	return q.sounds[q.index]
}

// Previous moves to the previous sound and returns it
func (q *Queue) Previous() *api.PlayableSound {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.sounds) == 0 || q.mode == api.ModeSimultaneous {
		return nil
	}

	if q.index > 0 {
		q.index--
	} else if q.repeat {
		q.index = len(q.sounds) - 1
	}

	return q.sounds[q.index]
}

// PeekNext returns the sound scheduled after the one with the given ID
// without advancing the queue. Used by the auto-preload window.
func (q *Queue) PeekNext(soundID string) *api.PlayableSound {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.mode == api.ModeSimultaneous {
		return nil
	}
	for i, s := range q.sounds {
		if s.ID != soundID {
			continue
		}
		if i < len(q.sounds)-1 {
			return q.sounds[i+1]
		}
		if q.repeat && len(q.sounds) > 1 {
			return q.sounds[0]
		}
		return nil
	}
	return nil
}

// JumpTo jumps to a specific index
func (q *Queue) JumpTo(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.sounds) {
		return errors.New("index out of bounds")
	}

	q.index = index
	return nil
}

// SetRepeat controls whether the queue wraps around at the end
func (q *Queue) SetRepeat(repeat bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.repeat = repeat
}

// Mode returns the queue's playlist mode
func (q *Queue) Mode() api.PlaylistMode {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.mode
}

// shuffleLocked shuffles the queue (Fisher-Yates algorithm)
func (q *Queue) shuffleLocked() {
	if len(q.sounds) <= 1 {
		return
	}

	// Save original order
	if q.original == nil {
		q.original = make([]*api.PlayableSound, len(q.sounds))
		copy(q.original, q.sounds)
	}

	n := len(q.sounds)
	for i := n - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		q.sounds[i], q.sounds[j] = q.sounds[j], q.sounds[i]
	}
}

// GetAll returns a copy of all sounds in the queue
func (q *Queue) GetAll() []*api.PlayableSound {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]*api.PlayableSound, len(q.sounds))
	copy(result, q.sounds)
	return result
}

// Len returns the number of sounds in the queue
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.sounds)
}

// Index returns the current index
func (q *Queue) Index() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.index
}

// HasNext returns true if there's a next sound
func (q *Queue) HasNext() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.mode == api.ModeSimultaneous {
		return false
	}
	if q.repeat {
		return len(q.sounds) > 0
	}
	return q.index < len(q.sounds)-1
}
