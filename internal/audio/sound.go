// Package audio implements the playback handle on top of beep: one Sound
// per audio source, with asynchronous load, volume fades and start/end
// callbacks. All handles share one speaker, mixed by beep.
package audio

import (
	"context"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"

	"github.com/Element-Re/crossblade/api"
	cberrors "github.com/Element-Re/crossblade/pkg/errors"
)

// Ensure Sound implements the playback handle interface at compile time
var _ api.Sound = (*Sound)(nil)

const speakerSampleRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerSampleRate, speakerSampleRate.N(time.Second/10))
	})
	return speakerErr
}

// Sound is a beep-backed playback handle bound to one source path.
type Sound struct {
	mu  sync.Mutex
	src string

	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume

	loaded  bool
	loading bool
	failed  bool
	playing bool
	stopped bool // manual stop in progress, suppresses the end callback
	loop    bool
	level   float64

	fadeCancel chan struct{}
	onStart    []func(api.Sound)
	onEnd      []func(api.Sound)
}

// NewSound creates an unloaded handle for the given source path.
func NewSound(src string) *Sound {
	return &Sound{src: src}
}

// Factory adapts NewSound to the engine's handle factory signature.
func Factory(src string) api.Sound {
	return NewSound(src)
}

func (s *Sound) Src() string { return s.src }

// Load decodes the source in the background. With opts.Autoplay set,
// playback starts as soon as decoding completes. A decode failure latches
// Failed; the handle never recovers until it is discarded and recreated.
func (s *Sound) Load(ctx context.Context, opts api.LoadOptions) {
	s.mu.Lock()
	if s.failed || s.loading {
		s.mu.Unlock()
		return
	}
	if s.loaded {
		s.mu.Unlock()
		if opts.Autoplay {
			s.Play(playOptions(opts))
		}
		return
	}
	s.loading = true
	s.mu.Unlock()

	go func() {
		if ctx.Err() != nil {
			s.mu.Lock()
			s.loading = false
			s.mu.Unlock()
			return
		}

		file, err := os.Open(s.src)
		if err == nil {
			var streamer beep.StreamSeekCloser
			var format beep.Format
			streamer, format, err = DecodeAudio(file, s.src)
			if err == nil {
				s.mu.Lock()
				s.streamer = streamer
				s.format = format
				s.loaded = true
				s.loading = false
				s.mu.Unlock()
				if opts.Autoplay {
					s.Play(playOptions(opts))
				}
				return
			}
			file.Close()
		}

		s.mu.Lock()
		s.failed = true
		s.loading = false
		s.mu.Unlock()
		slog.Warn("audio: load failed", "err", &cberrors.LoadError{Src: s.src, Err: err})
	}()
}

func playOptions(opts api.LoadOptions) api.PlayOptions {
	if opts.AutoplayOptions != nil {
		return *opts.AutoplayOptions
	}
	return api.PlayOptions{Volume: 1}
}

// Play (re)starts playback at the requested volume and loop mode. A non-zero
// Fade ramps in from silence. Playing an unloaded or failed handle is a
// no-op.
func (s *Sound) Play(opts api.PlayOptions) {
	if err := initSpeaker(); err != nil {
		slog.Warn("audio: speaker init failed", "err", err)
		return
	}

	s.mu.Lock()
	if !s.loaded || s.failed {
		slog.Debug("audio: play on unready handle", "src", s.src)
		s.mu.Unlock()
		return
	}
	s.cancelFadeLocked()
	if s.playing {
		s.detachLocked()
	}

	speaker.Lock()
	if err := s.streamer.Seek(s.format.SampleRate.N(time.Duration(opts.Offset * float64(time.Second)))); err != nil {
		slog.Debug("audio: seek failed", "src", s.src, "err", err)
	}
	speaker.Unlock()

	var source beep.Streamer = s.streamer
	if opts.Loop {
		source = beep.Loop(-1, s.streamer)
	}
	if s.format.SampleRate != speakerSampleRate {
		source = beep.Resample(4, s.format.SampleRate, speakerSampleRate, source)
	}

	level := opts.Volume
	fadeIn := opts.Fade > 0
	if fadeIn {
		level = 0
	}
	s.ctrl = &beep.Ctrl{Streamer: source}
	s.volume = &effects.Volume{
		Streamer: s.ctrl,
		Base:     2,
		Volume:   gainFor(level),
		Silent:   level <= 0,
	}
	s.playing = true
	s.stopped = false
	s.loop = opts.Loop
	s.level = opts.Volume

	chain := s.volume
	callbacks := append([]func(api.Sound){}, s.onStart...)
	s.mu.Unlock()

	speaker.Play(beep.Seq(chain, beep.Callback(s.handleEnd)))

	if fadeIn {
		s.Fade(opts.Volume, opts.Fade)
	}
	for _, fn := range callbacks {
		fn(s)
	}
}

// Fade ramps the volume toward target over duration. The returned channel
// closes when the ramp finishes or is superseded.
func (s *Sound) Fade(target float64, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})

	s.mu.Lock()
	s.cancelFadeLocked()
	if !s.playing || s.volume == nil || duration <= 0 {
		s.level = target
		if vol := s.volume; vol != nil {
			speaker.Lock()
			vol.Volume = gainFor(target)
			vol.Silent = target <= 0
			speaker.Unlock()
		}
		s.mu.Unlock()
		close(done)
		return done
	}

	from := currentGainLevel(s.volume)
	s.level = target
	cancel := make(chan struct{})
	s.fadeCancel = cancel
	vol := s.volume
	s.mu.Unlock()

	go func() {
		defer close(done)
		const step = 50 * time.Millisecond
		ticker := time.NewTicker(step)
		defer ticker.Stop()

		start := time.Now()
		for {
			select {
			case <-cancel:
				return
			case <-ticker.C:
				t := float64(time.Since(start)) / float64(duration)
				if t >= 1 {
					t = 1
				}
				level := from + (target-from)*t
				speaker.Lock()
				vol.Volume = gainFor(level)
				vol.Silent = level <= 0
				speaker.Unlock()
				if t >= 1 {
					return
				}
			}
		}
	}()
	return done
}

// Stop halts playback immediately. The end callback does not fire for a
// manual stop.
func (s *Sound) Stop() {
	s.mu.Lock()
	s.cancelFadeLocked()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.playing = false
	s.detachLocked()
	s.mu.Unlock()
}

// detachLocked unhooks the streamer from the speaker chain so the mixer
// drains it without touching the (reusable) decoder.
func (s *Sound) detachLocked() {
	if s.ctrl == nil {
		return
	}
	ctrl := s.ctrl
	s.ctrl = nil
	s.volume = nil
	speaker.Lock()
	ctrl.Streamer = nil
	speaker.Unlock()
}

func (s *Sound) handleEnd() {
	s.mu.Lock()
	if s.stopped {
		s.stopped = false
		s.mu.Unlock()
		return
	}
	s.playing = false
	s.ctrl = nil
	s.volume = nil
	callbacks := append([]func(api.Sound){}, s.onEnd...)
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn(s)
	}
}

func (s *Sound) OnStart(fn func(api.Sound)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStart = append(s.onStart, fn)
}

func (s *Sound) OnEnd(fn func(api.Sound)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnd = append(s.onEnd, fn)
}

func (s *Sound) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *Sound) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Sound) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

func (s *Sound) Loop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

// Volume reports the level the handle is at or fading toward.
func (s *Sound) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// CurrentTime reports the playback position in seconds.
func (s *Sound) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := s.streamer.Position()
	speaker.Unlock()
	return s.format.SampleRate.D(pos).Seconds()
}

// Close releases the decoder. The handle is unusable afterwards.
func (s *Sound) Close() error {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return nil
	}
	err := s.streamer.Close()
	s.streamer = nil
	s.loaded = false
	return err
}

func (s *Sound) cancelFadeLocked() {
	if s.fadeCancel != nil {
		close(s.fadeCancel)
		s.fadeCancel = nil
	}
}

// gainFor converts a linear 0..1 level into the base-2 exponential gain the
// volume effect expects. Zero maps to silence via the Silent flag.
func gainFor(level float64) float64 {
	if level <= 0 {
		return 0
	}
	if level > 1 {
		level = 1
	}
	return math.Log2(level)
}

// currentGainLevel inverts gainFor for the fade starting point.
func currentGainLevel(vol *effects.Volume) float64 {
	speaker.Lock()
	defer speaker.Unlock()
	if vol.Silent {
		return 0
	}
	return math.Pow(2, vol.Volume)
}
