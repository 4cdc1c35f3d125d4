// Package library imports audio files into playlists: directory scanning,
// tag-based naming and stable IDs so re-imports do not duplicate entries.
package library

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Element-Re/crossblade/api"
	"github.com/Element-Re/crossblade/internal/playlist"
)

// Importer feeds scanned audio files into a playlist manager.
type Importer struct {
	scanner *Scanner
	manager *playlist.Manager
	fade    time.Duration
}

// NewImporter creates an importer with the given worker count. fade is the
// fade duration stamped onto every imported sound.
func NewImporter(manager *playlist.Manager, workers int, fade time.Duration) *Importer {
	return &Importer{
		scanner: NewScanner(workers),
		manager: manager,
		fade:    fade,
	}
}

// ImportDirectory scans paths and adds every supported audio file to the
// playlist as a layerless sound. Already-imported files (by stable ID) are
// skipped. Returns the sounds added and any per-file scan errors.
func (imp *Importer) ImportDirectory(ctx context.Context, playlistID string, paths []string) ([]*api.PlayableSound, []error, error) {
	pl, err := imp.manager.GetByID(playlistID)
	if err != nil {
		return nil, nil, err
	}

	existing := make(map[string]bool, len(pl.Sounds))
	for _, s := range pl.Sounds {
		existing[s.ID] = true
	}

	sounds, errs := imp.scanner.Scan(ctx, paths)

	var scanErrors []error
	errDone := make(chan struct{})
	go func() {
		defer close(errDone)
		for err := range errs {
			scanErrors = append(scanErrors, err)
		}
	}()

	var added []*api.PlayableSound
	for sound := range sounds {
		if existing[sound.ID] {
			continue
		}
		existing[sound.ID] = true
		added = append(added, sound)
	}
	<-errDone

	// Scan order depends on worker scheduling; keep imports deterministic.
	sort.Slice(added, func(i, j int) bool {
		return added[i].Path < added[j].Path
	})

	for _, sound := range added {
		sound.FadeDuration = imp.fade
		if err := imp.manager.AddSound(playlistID, sound); err != nil {
			return added, scanErrors, fmt.Errorf("add sound %s: %w", sound.ID, err)
		}
	}
	return added, scanErrors, nil
}

// ImportFile adds a single audio file to the playlist.
func (imp *Importer) ImportFile(playlistID, filePath string) (*api.PlayableSound, error) {
	sound, err := imp.scanner.ScanFile(filePath)
	if err != nil {
		return nil, err
	}
	sound.FadeDuration = imp.fade
	if err := imp.manager.AddSound(playlistID, sound); err != nil {
		return nil, err
	}
	return sound, nil
}
