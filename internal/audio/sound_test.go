package audio

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Element-Re/crossblade/api"
)

func TestNewSound(t *testing.T) {
	s := NewSound("/music/theme.ogg")

	if s.Src() != "/music/theme.ogg" {
		t.Errorf("Src = %q, want /music/theme.ogg", s.Src())
	}
	if s.Loaded() || s.Playing() || s.Failed() {
		t.Error("fresh handle should be unloaded, stopped and unfailed")
	}
}

func TestLoad_MissingFileLatchesFailed(t *testing.T) {
	s := NewSound(filepath.Join(t.TempDir(), "missing.mp3"))
	s.Load(context.Background(), api.LoadOptions{})

	waitFor(t, func() bool { return s.Failed() }, "handle did not latch failed")
	if s.Loaded() {
		t.Error("failed handle reports loaded")
	}
}

func TestLoad_UnsupportedFormatLatchesFailed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("not audio"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewSound(path)
	s.Load(context.Background(), api.LoadOptions{})

	waitFor(t, func() bool { return s.Failed() }, "handle did not latch failed")
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/music/song.mp3", true},
		{"/music/song.MP3", true},
		{"/music/song.wav", true},
		{"/music/song.flac", true},
		{"/music/song.ogg", true},
		{"/music/song.aac", false},
		{"/music/song.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			result := IsSupported(tt.path)
			if result != tt.expected {
				t.Errorf("IsSupported(%s) = %v, want %v", tt.path, result, tt.expected)
			}
		})
	}
}

func TestGainFor(t *testing.T) {
	tests := []struct {
		name  string
		level float64
		want  float64
	}{
		{"full", 1.0, 0},
		{"half", 0.5, -1},
		{"quarter", 0.25, -2},
		{"over range", 1.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gainFor(tt.level); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("gainFor(%f) = %f, want %f", tt.level, got, tt.want)
			}
		})
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
