package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

var (
	// Logger is the process-wide structured logger.
	Logger = zap.NewNop()
	Sugar  = Logger.Sugar()
)

type LogConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json", "console"
}

// Initialize configures the global logger from LOG_LEVEL and LOG_FORMAT.
func Initialize() error {
	return InitializeWithConfig(LogConfig{
		Level:  envOrDefault("LOG_LEVEL", "info"),
		Format: envOrDefault("LOG_FORMAT", "console"),
	})
}

func InitializeWithConfig(config LogConfig) error {
	logger, err := Build(config)
	if err != nil {
		return err
	}

	Logger = logger
	Sugar = logger.Sugar()

	Sugar.Infof("structured logging initialized (level: %s, format: %s)", config.Level, config.Format)
	return nil
}

// Build creates a logger without touching the globals.
func Build(config LogConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	switch strings.ToLower(config.Format) {
	case "json":
		zapConfig = zap.NewProductionConfig()
	default:
		zapConfig = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(strings.ToLower(config.Level))
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	return zapConfig.Build(zap.AddStacktrace(zap.ErrorLevel))
}

// Named returns a child of the global logger tagged with a component field.
func Named(component string) *zap.Logger {
	return Logger.With(zap.String("component", component))
}

func Sync() {
	// Sync fails on some terminals; nothing useful can be done about it.
	_ = Logger.Sync()
}

func Close() {
	Sync()
}

// LogSessionTransition records a controller state change.
func LogSessionTransition(from, to, reason string, fields ...zap.Field) {
	baseFields := []zap.Field{
		zap.String("component", "session"),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("reason", reason),
	}
	Logger.Info("Session transition", append(baseFields, fields...)...)
}

// LogAudioEvent records a notable audio pipeline event.
func LogAudioEvent(stage string, fields ...zap.Field) {
	baseFields := []zap.Field{
		zap.String("component", "audio_pipeline"),
		zap.String("stage", stage),
	}
	Logger.Info("Audio event", append(baseFields, fields...)...)
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
