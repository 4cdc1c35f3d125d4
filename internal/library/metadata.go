package library

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"github.com/Element-Re/crossblade/api"
)

// defaultVolume is the volume a freshly imported sound starts at.
const defaultVolume = 0.5

// MetadataReader builds playable sound definitions from audio files
type MetadataReader struct{}

// NewMetadataReader creates a new metadata reader
func NewMetadataReader() *MetadataReader {
	return &MetadataReader{}
}

// Read builds a PlayableSound from an audio file, using its embedded tags
// for the display name when present.
func (r *MetadataReader) Read(filePath string) (*api.PlayableSound, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	sound := &api.PlayableSound{
		ID:        generateSoundID(filePath),
		Name:      baseName(filePath),
		Path:      filePath,
		Volume:    defaultVolume,
		CreatedAt: time.Now(),
	}

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		// No tags; keep the filename-derived name
		return sound, nil
	}

	if title := metadata.Title(); title != "" {
		sound.Name = title
	}
	return sound, nil
}

// ReadCoverArt extracts cover art from an audio file
func (r *MetadataReader) ReadCoverArt(filePath string) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	if picture := metadata.Picture(); picture != nil {
		return picture.Data, nil
	}

	return nil, nil
}

// generateSoundID derives a stable ID from the file path, so re-importing
// the same file never duplicates the entry.
func generateSoundID(filePath string) string {
	hash := md5.Sum([]byte(filePath))
	return fmt.Sprintf("sound-%x", hash[:8])
}

// baseName strips the directory and extension from a path.
func baseName(filePath string) string {
	name := filepath.Base(filePath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
