// Package playback owns the process-wide speaker that clips and agent audio
// are mixed into.
package playback

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"go.uber.org/zap"
)

const DefaultLatency = 100 * time.Millisecond

// Speaker lazily initialises the beep speaker on first use.
type Speaker struct {
	rate    beep.SampleRate
	latency time.Duration
	logger  *zap.Logger

	once    sync.Once
	initErr error
	ready   atomic.Bool
}

func NewSpeaker(sampleRate int, latency time.Duration, logger *zap.Logger) *Speaker {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if latency <= 0 {
		latency = DefaultLatency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Speaker{rate: beep.SampleRate(sampleRate), latency: latency, logger: logger}
}

func (s *Speaker) SampleRate() beep.SampleRate { return s.rate }

func (s *Speaker) init() error {
	s.once.Do(func() {
		if err := speaker.Init(s.rate, s.rate.N(s.latency)); err != nil {
			s.initErr = fmt.Errorf("init speaker: %w", err)
			s.logger.Error("speaker unavailable", zap.Error(err))
			return
		}
		s.ready.Store(true)
		s.logger.Info("speaker ready",
			zap.Int("sample_rate", int(s.rate)),
			zap.Duration("latency", s.latency),
		)
	})
	return s.initErr
}

// Play mixes st into the output.
func (s *Speaker) Play(st beep.Streamer) error {
	if err := s.init(); err != nil {
		return err
	}
	speaker.Play(st)
	return nil
}

// Lock guards state shared with streamers that are currently playing.
func (s *Speaker) Lock() {
	if s.init() == nil {
		speaker.Lock()
	}
}

func (s *Speaker) Unlock() {
	if s.init() == nil {
		speaker.Unlock()
	}
}

// Close releases the output device if it was ever opened.
func (s *Speaker) Close() {
	if !s.ready.Load() {
		return
	}
	speaker.Close()
}
