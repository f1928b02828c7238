package bootstrap

import (
	"time"

	"go.uber.org/zap"

	"voicefront/internal/audio"
	"voicefront/internal/clip"
	"voicefront/internal/config"
	"voicefront/internal/credentials"
	"voicefront/internal/devices"
	"voicefront/internal/playback"
	"voicefront/internal/ports"
	"voicefront/internal/profile"
	"voicefront/internal/providers/scripted"
	"voicefront/internal/sched"
	"voicefront/internal/speech"
	"voicefront/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Config     config.Config
	Profile    profile.Profile
	Loop       *sched.Loop
	Cues       *clip.Player

	closers []func()
}

// Close releases audio devices once the loop has stopped.
func (s Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink, clipboard ports.Clipboard, links ports.LinkOpener, logger *zap.Logger) (Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	hints := profile.DetectHints(cfg.Profile.Override, logger.Named("profile"))
	tier := profile.Select(hints)
	logger.Info("performance profile selected",
		zap.String("profile", string(tier)),
		zap.Float64("memory_gb", hints.MemoryGB),
		zap.Bool("mobile", hints.Mobile),
	)

	script, err := scripted.LoadScript(cfg.Provider.ScriptPath)
	if err != nil {
		return Services{}, err
	}

	loop := sched.NewLoop(0, logger.Named("loop"))
	speaker := playback.NewSpeaker(cfg.Output.SampleRate, cfg.Output.Latency, logger.Named("speaker"))
	cues := clip.NewPlayer(loop, speaker,
		clip.WithFetcher(clip.NewSourceFetcher(cfg.Clips.Timeout)),
		clip.WithTimeout(cfg.Clips.Timeout),
		clip.WithLogger(logger.Named("clip")),
	)

	services := Services{Config: cfg, Profile: tier, Loop: loop, Cues: cues}

	var (
		lister  ports.DeviceLister
		capture ports.AudioCapture
	)
	switch cfg.Audio.Backend {
	case config.BackendFFmpeg:
		capture = audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand, logger.Named("ffmpeg"))
		lister = audio.StaticDevices{Format: cfg.Audio.InputFormat, Device: cfg.Audio.InputDevice}
	default:
		m := devices.NewMalgo(logger.Named("malgo"))
		capture, lister = m, m
		services.closers = append(services.closers, func() {
			if err := m.Close(); err != nil {
				logger.Warn("release capture context", zap.Error(err))
			}
		})
	}
	services.closers = append(services.closers, speaker.Close)

	controller, err := usecase.NewSessionController(usecase.Deps{
		Scheduler:   loop,
		Devices:     lister,
		Capture:     capture,
		Credentials: credentials.NewClient(cfg.Credentials.BaseURL, cfg.Credentials.Timeout, logger.Named("credentials")),
		Provider:    scripted.NewProvider(script, speaker, cfg.Output.SampleRate, logger.Named("provider")),
		Cues:        cues,
		Links:       links,
		Clipboard:   clipboard,
		Events:      eventSink,
		Logger:      logger.Named("session"),
	}, usecase.Config{
		Profile:   tier,
		Overdrive: cfg.Profile.Overdrive,
		Audio: ports.AudioConfig{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
		},
		ChunkSize: cfg.Audio.ChunkSize,
		Speech: speech.Params{
			SpeechOn:   cfg.Speech.SpeechOn,
			SpeechOff:  cfg.Speech.SpeechOff,
			MinSamples: cfg.Speech.MinSamples,
			EndPause:   cfg.Speech.EndPause,
			Grace:      cfg.Speech.Grace,
		},
		RenderInterval:  cfg.Render.Interval,
		SubtitlePerChar: cfg.Subtitle.PerChar,
		Cues: usecase.Cues{
			Join:  cfg.Clips.Join,
			Leave: cfg.Clips.Leave,
			Error: cfg.Clips.Error,
		},
		NoiseSeed: time.Now().UnixNano(),
	})
	if err != nil {
		services.Close()
		return Services{}, err
	}
	services.Controller = controller
	return services, nil
}
