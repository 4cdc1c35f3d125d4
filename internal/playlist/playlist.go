package playlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Element-Re/crossblade/api"
	"github.com/Element-Re/crossblade/internal/layers"
	cberrors "github.com/Element-Re/crossblade/pkg/errors"
)

// Manager handles playlist CRUD operations with JSON persistence
type Manager struct {
	playlists map[string]*api.Playlist
	basePath  string
	mu        sync.RWMutex
}

// NewManager creates a new playlist manager
func NewManager(basePath string) *Manager {
	return &Manager{
		playlists: make(map[string]*api.Playlist),
		basePath:  basePath,
	}
}

// BasePath returns the directory playlists are persisted in.
func (m *Manager) BasePath() string {
	return m.basePath
}

// Create creates a new playlist
func (m *Manager) Create(name string, mode api.PlaylistMode) (*api.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	playlist := &api.Playlist{
		ID:        "playlist-" + uuid.NewString(),
		Name:      name,
		Mode:      mode,
		Sounds:    []api.PlayableSound{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.playlists[playlist.ID] = playlist

	if err := m.savePlaylist(playlist); err != nil {
		delete(m.playlists, playlist.ID)
		return nil, err
	}

	return playlist, nil
}

// GetByID returns a playlist by its ID
func (m *Manager) GetByID(id string) (*api.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	playlist, exists := m.playlists[id]
	if !exists {
		return nil, cberrors.ErrPlaylistNotFound
	}
	return playlist, nil
}

// GetAll returns all playlists
func (m *Manager) GetAll() []*api.Playlist {
	m.mu.RLock()
	defer m.mu.RUnlock()

	playlists := make([]*api.Playlist, 0, len(m.playlists))
	for _, p := range m.playlists {
		playlists = append(playlists, p)
	}
	sort.Slice(playlists, func(i, j int) bool {
		return playlists[i].Name < playlists[j].Name
	})
	return playlists
}

// Delete deletes a playlist
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.playlists[id]; !exists {
		return cberrors.ErrPlaylistNotFound
	}

	// Delete file
	path := filepath.Join(m.basePath, id+".json")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete playlist file: %w", err)
	}

	delete(m.playlists, id)
	return nil
}

// AddSound adds a sound definition to a playlist
func (m *Manager) AddSound(playlistID string, sound *api.PlayableSound) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	playlist, exists := m.playlists[playlistID]
	if !exists {
		return cberrors.ErrPlaylistNotFound
	}

	playlist.Sounds = append(playlist.Sounds, *sound)
	playlist.UpdatedAt = time.Now()

	return m.savePlaylist(playlist)
}

// RemoveSound removes a sound from a playlist
func (m *Manager) RemoveSound(playlistID, soundID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	playlist, exists := m.playlists[playlistID]
	if !exists {
		return cberrors.ErrPlaylistNotFound
	}

	found := false
	for i, s := range playlist.Sounds {
		if s.ID == soundID {
			playlist.Sounds = append(playlist.Sounds[:i], playlist.Sounds[i+1:]...)
			found = true
			break
		}
	}

	if !found {
		return cberrors.ErrSoundNotFound
	}

	playlist.UpdatedAt = time.Now()
	return m.savePlaylist(playlist)
}

// UpdateSoundLayers rewrites a sound's layer list and persists it, returning
// the updated definition for the orchestrator to re-sync.
func (m *Manager) UpdateSoundLayers(playlistID, soundID string, soundLayers []api.SoundLayer) (*api.PlayableSound, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	playlist, exists := m.playlists[playlistID]
	if !exists {
		return nil, cberrors.ErrPlaylistNotFound
	}

	for i := range playlist.Sounds {
		if playlist.Sounds[i].ID != soundID {
			continue
		}
		playlist.Sounds[i].Layers = append([]api.SoundLayer(nil), soundLayers...)
		playlist.UpdatedAt = time.Now()
		if err := m.savePlaylist(playlist); err != nil {
			return nil, err
		}
		def := playlist.Sounds[i]
		return &def, nil
	}
	return nil, cberrors.ErrSoundNotFound
}

// FindSound locates a sound definition across all playlists.
func (m *Manager) FindSound(soundID string) (*api.Playlist, *api.PlayableSound, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, playlist := range m.playlists {
		for i := range playlist.Sounds {
			if playlist.Sounds[i].ID == soundID {
				return playlist, &playlist.Sounds[i], nil
			}
		}
	}
	return nil, nil, cberrors.ErrSoundNotFound
}

// CustomEvents returns the sorted distinct CUSTOM event values declared by
// any layer of any sound, for the event picker.
func (m *Manager) CustomEvents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var values []string
	for _, playlist := range m.playlists {
		for _, sound := range playlist.Sounds {
			for _, value := range layers.CustomEvents(sound.Layers) {
				if !seen[value] {
					seen[value] = true
					values = append(values, value)
				}
			}
		}
	}
	sort.Strings(values)
	return values
}

// savePlaylist saves a playlist to disk
func (m *Manager) savePlaylist(playlist *api.Playlist) error {
	if err := os.MkdirAll(m.basePath, 0755); err != nil {
		return fmt.Errorf("create playlist directory: %w", err)
	}

	data, err := json.MarshalIndent(playlist, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal playlist: %w", err)
	}

	path := filepath.Join(m.basePath, playlist.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write playlist file: %w", err)
	}

	return nil
}

// Reload re-reads one playlist file from disk, replacing the in-memory copy.
// Used by the watcher when an external edit lands.
func (m *Manager) Reload(path string) (*api.Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playlist file: %w", err)
	}

	var playlist api.Playlist
	if err := json.Unmarshal(data, &playlist); err != nil {
		return nil, fmt.Errorf("unmarshal playlist: %w", err)
	}

	m.mu.Lock()
	m.playlists[playlist.ID] = &playlist
	m.mu.Unlock()
	return &playlist, nil
}

// LoadAll loads all playlists from disk
func (m *Manager) LoadAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.basePath, 0755); err != nil {
		return fmt.Errorf("create playlist directory: %w", err)
	}

	entries, err := os.ReadDir(m.basePath)
	if err != nil {
		return fmt.Errorf("read playlist directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(m.basePath, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue // Skip files we can't read
		}

		var playlist api.Playlist
		if err := json.Unmarshal(data, &playlist); err != nil {
			continue // Skip invalid JSON
		}

		m.playlists[playlist.ID] = &playlist
	}

	return nil
}
