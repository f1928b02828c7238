package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMalgo  = "malgo"
	BackendFFmpeg = "ffmpeg"
)

// Config stores runtime configuration for the desktop front-end.
type Config struct {
	Credentials CredentialsConfig
	Audio       AudioConfig
	Clips       ClipsConfig
	Profile     ProfileConfig
	Speech      SpeechConfig
	Render      RenderConfig
	Subtitle    SubtitleConfig
	Provider    ProviderConfig
	Output      OutputConfig
}

type CredentialsConfig struct {
	BaseURL string
	Timeout time.Duration
}

type AudioConfig struct {
	Backend         string
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
	ChunkSize       int
}

type ClipsConfig struct {
	Join    string
	Leave   string
	Error   string
	Timeout time.Duration
}

type ProfileConfig struct {
	// Override is the raw profile override; empty leaves detection in charge.
	Override  string
	Overdrive bool
}

type SpeechConfig struct {
	SpeechOn   float64
	SpeechOff  float64
	MinSamples int
	EndPause   time.Duration
	Grace      time.Duration
}

type RenderConfig struct {
	Interval time.Duration
}

type SubtitleConfig struct {
	PerChar time.Duration
}

type ProviderConfig struct {
	ScriptPath string
}

type OutputConfig struct {
	SampleRate int
	Latency    time.Duration
}

// ServerConfig stores configuration for the credential server.
type ServerConfig struct {
	Port          string
	AgentID       string
	APIKey        string
	UpstreamURL   string
	PromptPath    string
	GreetingsPath string
	StaticDir     string
	City          string
	Country       string
	Lat           string
	Lon           string
	Timeout       time.Duration
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	if err := loadEnvFile("VOICEFRONT_ENV_FILE"); err != nil {
		return Config{}, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	scriptPath := strings.TrimSpace(os.Getenv("VOICEFRONT_SCRIPT_FILE"))
	if scriptPath == "" {
		scriptPath = firstExisting(
			filepath.Join(home, ".config", "voicefront", "conversation.yaml"),
			filepath.Join("testdata", "conversation.yaml"),
		)
	}

	baseURL := strings.TrimRight(envOrDefault("VOICEFRONT_CREDENTIALS_URL", "http://localhost:3000"), "/")

	cfg := Config{
		Credentials: CredentialsConfig{
			BaseURL: baseURL,
			Timeout: envOrDefaultMillis("VOICEFRONT_CREDENTIALS_TIMEOUT_MS", 10*time.Second),
		},
		Audio: AudioConfig{
			Backend:         strings.ToLower(envOrDefault("VOICEFRONT_AUDIO_BACKEND", BackendMalgo)),
			RecorderCommand: envOrDefault("VOICEFRONT_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("VOICEFRONT_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice: firstNonEmpty(
				os.Getenv("VOICEFRONT_AUDIO_INPUT_DEVICE"),
				os.Getenv("PULSE_SOURCE"),
				"default",
			),
			SampleRate: envOrDefaultInt("VOICEFRONT_SAMPLE_RATE", 48000),
			Channels:   envOrDefaultInt("VOICEFRONT_CHANNELS", 1),
			ChunkSize:  envOrDefaultInt("VOICEFRONT_AUDIO_CHUNK_SIZE", 4096),
		},
		Clips: ClipsConfig{
			Join:    envOrDefault("VOICEFRONT_CLIP_JOIN", baseURL+"/static/VoiceJoin.ogg"),
			Leave:   envOrDefault("VOICEFRONT_CLIP_LEAVE", baseURL+"/static/VoiceLeave.ogg"),
			Error:   envOrDefault("VOICEFRONT_CLIP_ERROR", baseURL+"/static/VoiceError.ogg"),
			Timeout: envOrDefaultMillis("VOICEFRONT_CLIP_TIMEOUT_MS", 10*time.Second),
		},
		Profile: ProfileConfig{
			Override:  firstNonEmpty(os.Getenv("VOICEFRONT_PROFILE"), os.Getenv("VOICEFRONT_LOW_PERFORMANCE")),
			Overdrive: envOrDefaultBool("VOICEFRONT_OVERDRIVE", false),
		},
		Speech: SpeechConfig{
			SpeechOn:   envOrDefaultFloat("VOICEFRONT_SPEECH_ON", 15),
			SpeechOff:  envOrDefaultFloat("VOICEFRONT_SPEECH_OFF", 10),
			MinSamples: envOrDefaultInt("VOICEFRONT_SPEECH_MIN_SAMPLES", 5),
			EndPause:   time.Duration(firstNonNegativeInt("VOICEFRONT_END_PAUSE_MS", "VOICEFRONT_SILENCE_MS", 800)) * time.Millisecond,
			Grace:      time.Duration(firstNonNegativeInt("VOICEFRONT_GRACE_MS", "VOICEFRONT_SPEECH_GRACE_MS", 300)) * time.Millisecond,
		},
		Render: RenderConfig{
			Interval: envOrDefaultMillis("VOICEFRONT_RENDER_INTERVAL_MS", 16*time.Millisecond),
		},
		Subtitle: SubtitleConfig{
			PerChar: envOrDefaultMillis("VOICEFRONT_SUBTITLE_PER_CHAR_MS", 90*time.Millisecond),
		},
		Provider: ProviderConfig{
			ScriptPath: scriptPath,
		},
		Output: OutputConfig{
			SampleRate: envOrDefaultInt("VOICEFRONT_OUTPUT_SAMPLE_RATE", 44100),
			Latency:    envOrDefaultMillis("VOICEFRONT_OUTPUT_LATENCY_MS", 100*time.Millisecond),
		},
	}

	if cfg.Audio.Backend != BackendMalgo && cfg.Audio.Backend != BackendFFmpeg {
		cfg.Audio.Backend = BackendMalgo
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 48000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = 4096
	}
	if cfg.Speech.MinSamples <= 0 {
		cfg.Speech.MinSamples = 5
	}
	if cfg.Output.SampleRate <= 0 {
		cfg.Output.SampleRate = 44100
	}

	return cfg, nil
}

// LoadServer resolves configuration for the credential server.
func LoadServer() (ServerConfig, error) {
	if err := loadEnvFile("CREDSERVER_ENV_FILE"); err != nil {
		return ServerConfig{}, err
	}

	cfg := ServerConfig{
		Port:          envOrDefault("PORT", "3000"),
		AgentID:       strings.TrimSpace(os.Getenv("AGENT_ID")),
		APIKey:        strings.TrimSpace(os.Getenv("XI_API_KEY")),
		UpstreamURL:   envOrDefault("XI_API_BASE", "https://api.elevenlabs.io"),
		PromptPath:    envOrDefault("SYSTEM_PROMPT_FILE", "system_prompt.txt"),
		GreetingsPath: strings.TrimSpace(os.Getenv("GREETINGS_FILE")),
		StaticDir:     envOrDefault("STATIC_DIR", "public"),
		City:          envOrDefault("LOCATION_CITY", "Unknown"),
		Country:       envOrDefault("LOCATION_COUNTRY", "Unknown"),
		Lat:           envOrDefault("LOCATION_LAT", "0.00"),
		Lon:           envOrDefault("LOCATION_LON", "0.00"),
		Timeout:       envOrDefaultMillis("XI_API_TIMEOUT_MS", 10*time.Second),
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		cfg.Port = "3000"
	}
	return cfg, nil
}

// loadEnvFile applies the file named by key, or ./.env when present. Variables
// already set in the environment win.
func loadEnvFile(key string) error {
	path := strings.TrimSpace(os.Getenv(key))
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return errors.New("could not load env file " + path + ": " + err.Error())
	}
	return nil
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func envOrDefaultMillis(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return time.Duration(parsed) * time.Millisecond
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func firstNonNegativeInt(primary string, secondary string, fallback int) int {
	for _, key := range []string{primary, secondary} {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err == nil && parsed >= 0 {
			return parsed
		}
	}
	return fallback
}
