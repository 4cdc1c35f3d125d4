package library

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/Element-Re/crossblade/api"
	"github.com/Element-Re/crossblade/internal/audio"
	cberrors "github.com/Element-Re/crossblade/pkg/errors"
)

// Scanner scans directories concurrently using a worker pool
type Scanner struct {
	workers    int
	metaReader *MetadataReader
}

// NewScanner creates a new file scanner
func NewScanner(workers int) *Scanner {
	if workers <= 0 {
		workers = 4 // Default worker count
	}
	return &Scanner{
		workers:    workers,
		metaReader: NewMetadataReader(),
	}
}

// Scan walks the given paths concurrently and returns channels of sound
// definitions and per-file errors. Both channels close when the scan is
// done or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context, paths []string) (<-chan *api.PlayableSound, <-chan error) {
	sounds := make(chan *api.PlayableSound, 100)
	errs := make(chan error, 10)
	files := make(chan string, 100)

	var wg sync.WaitGroup

	// Start file discovery goroutine
	go func() {
		defer close(files)
		for _, path := range paths {
			select {
			case <-ctx.Done():
				return
			default:
			}

			err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					select {
					case errs <- &cberrors.ScanError{Path: p, Err: err}:
					default:
					}
					return nil
				}

				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				if !d.IsDir() && audio.IsSupported(p) {
					select {
					case files <- p:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				return nil
			})

			if err != nil && err != context.Canceled {
				select {
				case errs <- &cberrors.ScanError{Path: path, Err: err}:
				default:
				}
			}
		}
	}()

	// Start worker pool
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for filePath := range files {
				select {
				case <-ctx.Done():
					return
				default:
				}

				sound, err := s.metaReader.Read(filePath)
				if err != nil {
					select {
					case errs <- &cberrors.ScanError{Path: filePath, Err: err}:
					default:
					}
					continue
				}

				select {
				case sounds <- sound:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Close channels when done
	go func() {
		wg.Wait()
		close(sounds)
		close(errs)
	}()

	return sounds, errs
}

// ScanFile scans a single file and returns a sound definition
func (s *Scanner) ScanFile(filePath string) (*api.PlayableSound, error) {
	if !audio.IsSupported(filePath) {
		return nil, cberrors.ErrInvalidFormat
	}
	return s.metaReader.Read(filePath)
}
