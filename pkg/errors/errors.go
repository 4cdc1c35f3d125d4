package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrSoundNotFound    = errors.New("sound not found")
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrInvalidFormat    = errors.New("unsupported audio format")
	ErrNoBaseSound      = errors.New("sound has no base handle")
	ErrHandleFailed     = errors.New("audio handle failed to load")
	ErrInvalidVolume    = errors.New("volume must be between 0.0 and 1.0")
)

// SyncError wraps a crossfade sync failure with the affected sound
type SyncError struct {
	Op    string // Operation that failed
	Sound string // PlayableSound ID if applicable
	Err   error  // Underlying error
}

func (e *SyncError) Error() string {
	if e.Sound != "" {
		return fmt.Sprintf("%s failed for sound %s: %v", e.Op, e.Sound, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewSyncError creates a new SyncError
func NewSyncError(op, sound string, err error) *SyncError {
	return &SyncError{Op: op, Sound: sound, Err: err}
}

// LoadError represents an audio asset that failed to decode or load.
// The affected handle is excluded from volume targeting; siblings proceed.
type LoadError struct {
	Src string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load error for %s: %v", e.Src, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ScanError wraps a file-level failure during an import scan
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan error at %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
