package devices

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"voicefront/internal/domain"
	"voicefront/internal/ports"
)

// maxBuffered caps unread capture data at roughly two seconds of 48kHz
// stereo s16le.
const maxBuffered = 48000 * 2 * 2 * 2

// Malgo lists and opens capture devices through a shared miniaudio context.
type Malgo struct {
	logger *zap.Logger

	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

func NewMalgo(logger *zap.Logger) *Malgo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Malgo{logger: logger}
}

func (m *Malgo) context() (*malgo.AllocatedContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx != nil {
		return m.ctx, nil
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		m.logger.Debug("miniaudio", zap.String("message", message))
	})
	if err != nil {
		return nil, &domain.MicError{Kind: domain.MicErrorUnavailable, Err: fmt.Errorf("init audio context: %w", err)}
	}
	m.ctx = ctx
	return ctx, nil
}

// ListDevices returns every capture endpoint.
func (m *Malgo) ListDevices(context.Context) ([]domain.Device, error) {
	ctx, err := m.context()
	if err != nil {
		return nil, err
	}
	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, &domain.MicError{Kind: ClassifyError(err), Err: fmt.Errorf("list capture devices: %w", err)}
	}
	result := make([]domain.Device, 0, len(infos))
	for _, info := range infos {
		result = append(result, domain.Device{
			ID:        info.ID.String(),
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return result, nil
}

// Start opens the configured device, or the system default, as s16le PCM.
func (m *Malgo) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 48000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.MicError{Kind: domain.MicErrorAborted, Err: err}
	}

	mctx, err := m.context()
	if err != nil {
		return nil, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	if cfg.InputDevice != "" && cfg.InputDevice != "default" {
		infos, err := mctx.Devices(malgo.Capture)
		if err != nil {
			return nil, &domain.MicError{Kind: ClassifyError(err), Err: fmt.Errorf("list capture devices: %w", err)}
		}
		found := false
		for i := range infos {
			if infos[i].ID.String() == cfg.InputDevice || infos[i].Name() == cfg.InputDevice {
				deviceConfig.Capture.DeviceID = infos[i].ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			return nil, &domain.MicError{Kind: domain.MicErrorNotFound, Err: fmt.Errorf("capture device %q not found", cfg.InputDevice)}
		}
	}

	session := newCaptureSession(2 * cfg.Channels)
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			session.write(input)
		},
		Stop: session.deviceStopped,
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, &domain.MicError{Kind: ClassifyError(err), Err: fmt.Errorf("open capture device: %w", err)}
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, &domain.MicError{Kind: ClassifyError(err), Err: fmt.Errorf("start capture device: %w", err)}
	}
	session.device = device

	m.logger.Info("capture started",
		zap.String("device", cfg.InputDevice),
		zap.Int("sample_rate", cfg.SampleRate),
		zap.Int("channels", cfg.Channels),
	)
	return session, nil
}

// Close releases the miniaudio context.
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil {
		return nil
	}
	err := m.ctx.Uninit()
	m.ctx.Free()
	m.ctx = nil
	return err
}

type captureSession struct {
	device     *malgo.Device
	frameBytes int

	mu       sync.Mutex
	cond     *sync.Cond
	buf      []byte
	err      error
	closed   bool
	stopping bool

	stopOnce sync.Once
}

func newCaptureSession(frameBytes int) *captureSession {
	if frameBytes <= 0 {
		frameBytes = 2
	}
	s := &captureSession{frameBytes: frameBytes}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *captureSession) write(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.buf = append(s.buf, p...)
	if over := len(s.buf) - maxBuffered; over > 0 {
		// Drop the oldest whole frames when the reader falls behind.
		if rem := over % s.frameBytes; rem != 0 {
			over += s.frameBytes - rem
		}
		s.buf = append(s.buf[:0], s.buf[over:]...)
	}
	s.cond.Signal()
}

// deviceStopped runs when miniaudio stops the device. Unless Stop asked for
// it, the device went away and readers see an aborted capture.
func (s *captureSession) deviceStopped() {
	s.mu.Lock()
	stopping := s.stopping
	s.mu.Unlock()
	if stopping {
		s.closeWithError(io.EOF)
		return
	}
	s.closeWithError(&domain.MicError{Kind: domain.MicErrorAborted, Err: errors.New("capture device stopped unexpectedly")})
}

func (s *captureSession) closeWithError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	s.cond.Broadcast()
}

// Read blocks until captured data is available or the session stops.
func (s *captureSession) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.buf) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.buf) == 0 {
		return 0, s.err
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

func (s *captureSession) Close() error {
	return s.Stop()
}

func (s *captureSession) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopping = true
		s.mu.Unlock()
		s.closeWithError(io.EOF)
		if s.device != nil {
			if stopErr := s.device.Stop(); stopErr != nil && !errors.Is(stopErr, io.EOF) {
				err = stopErr
			}
			s.device.Uninit()
		}
	})
	return err
}
