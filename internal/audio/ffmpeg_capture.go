package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"voicefront/internal/domain"
	"voicefront/internal/ports"
)

// FFMPEGCapture streams microphone PCM audio using ffmpeg.
type FFMPEGCapture struct {
	command string
	logger  *zap.Logger
}

func NewFFMPEGCapture(command string, logger *zap.Logger) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFMPEGCapture{command: command, logger: logger}
}

func (c *FFMPEGCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &domain.MicError{Kind: domain.MicErrorUnknown, Err: fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)}
	}
	if err := cmd.Start(); err != nil {
		kind := domain.MicErrorUnknown
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			kind = domain.MicErrorUnavailable
		}
		return nil, &domain.MicError{Kind: kind, Err: fmt.Errorf("failed to start ffmpeg: %w", err)}
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		detail := stringsTrimSpaceSafe(stderr.String())
		kind := ClassifyStderr(detail)
		if ctx.Err() != nil {
			kind = domain.MicErrorAborted
		}
		c.logger.Warn("capture exited early", zap.String("device", cfg.InputDevice), zap.String("kind", string(kind)), zap.String("stderr", detail))
		if err != nil {
			return nil, &domain.MicError{Kind: kind, Err: fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, detail)}
		}
		return nil, &domain.MicError{Kind: kind, Err: errors.New("ffmpeg exited before capture started")}
	case <-time.After(250 * time.Millisecond):
	}
	c.logger.Info("capture started",
		zap.String("format", cfg.InputFormat),
		zap.String("device", cfg.InputDevice),
		zap.Int("sample_rate", cfg.SampleRate),
		zap.Int("channels", cfg.Channels),
	)

	return &captureSession{
		device:  cfg.InputDevice,
		logger:  c.logger,
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		exited:  waitErr,
	}, nil
}

const interruptGrace = 1200 * time.Millisecond

// captureSession is one running ffmpeg process. Output ending before Stop
// means the device went away and is reported as aborted.
type captureSession struct {
	device string
	logger *zap.Logger

	stdout  io.ReadCloser
	stderr  *bytes.Buffer
	process *os.Process
	exited  <-chan error

	stopping atomic.Bool
	stopOnce sync.Once
	stopErr  error
}

func (s *captureSession) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	ended := errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed)
	if ended && !s.stopping.Load() {
		return n, &domain.MicError{
			Kind: domain.MicErrorAborted,
			Err:  fmt.Errorf("capture from %q ended unexpectedly", s.device),
		}
	}
	return n, err
}

func (s *captureSession) Close() error {
	return s.Stop()
}

// Stop interrupts ffmpeg, escalating to kill after the grace period.
func (s *captureSession) Stop() error {
	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		s.signal(os.Interrupt)

		exited, err := s.waitExit(interruptGrace)
		if !exited {
			s.logger.Warn("capture ignored interrupt, killing", zap.String("device", s.device))
			s.signal(os.Kill)
			_, err = s.waitExit(0)
		}
		s.stopErr = normalizeStopErr(err)

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = closeErr
		}
		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, stringsTrimSpaceSafe(s.stderr.String()))
		}
		s.logger.Info("capture stopped", zap.String("device", s.device), zap.Error(s.stopErr))
	})
	return s.stopErr
}

func (s *captureSession) signal(sig os.Signal) {
	if s.process != nil {
		_ = s.process.Signal(sig)
	}
}

// waitExit reports whether the process exited within timeout, with its exit
// error. A zero timeout waits forever.
func (s *captureSession) waitExit(timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		return true, <-s.exited
	}
	select {
	case err := <-s.exited:
		return true, err
	case <-time.After(timeout):
		return false, nil
	}
}

// ClassifyStderr maps ffmpeg diagnostics onto a microphone failure category.
func ClassifyStderr(stderr string) domain.MicErrorKind {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "permission denied"), strings.Contains(lower, "access denied"):
		return domain.MicErrorPermissionDenied
	case strings.Contains(lower, "device or resource busy"), strings.Contains(lower, "resource temporarily unavailable"):
		return domain.MicErrorBusy
	case strings.Contains(lower, "invalid sample rate"), strings.Contains(lower, "invalid channel"):
		return domain.MicErrorOverconstrained
	case strings.Contains(lower, "invalid argument"), strings.Contains(lower, "option not found"):
		return domain.MicErrorInvalidConstraints
	case strings.Contains(lower, "unknown input format"):
		return domain.MicErrorUnavailable
	case strings.Contains(lower, "no such file or directory"),
		strings.Contains(lower, "no such device"),
		strings.Contains(lower, "no such entity"),
		strings.Contains(lower, "not found"):
		return domain.MicErrorNotFound
	case strings.Contains(lower, "interrupted"), strings.Contains(lower, "exiting normally, received signal"):
		return domain.MicErrorAborted
	default:
		return domain.MicErrorUnknown
	}
}

// StaticDevices reports the single configured ffmpeg input as the only
// device.
type StaticDevices struct {
	Format string
	Device string
}

func (d StaticDevices) ListDevices(context.Context) ([]domain.Device, error) {
	device := strings.TrimSpace(d.Device)
	if device == "" {
		return nil, nil
	}
	name := device
	if d.Format != "" {
		name = d.Format + ":" + device
	}
	return []domain.Device{{ID: device, Name: name, IsDefault: true}}, nil
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func stringsTrimSpaceSafe(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}
