// Package scripted replays a conversation described in YAML so the front-end
// can run end to end without a remote agent.
package scripted

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Script is a recorded conversation.
type Script struct {
	// ConnectDelay elapses between StartSession and OnConnect.
	ConnectDelay time.Duration `yaml:"connect_delay"`
	// FailConnect makes StartSession fail with the given reason.
	FailConnect string `yaml:"fail_connect"`
	Turns       []Turn `yaml:"turns"`

	dir string
}

// Turn is one scripted step. Fields apply in order: mode, message, audio,
// tool, then error or disconnect.
type Turn struct {
	After      time.Duration `yaml:"after"`
	Mode       string        `yaml:"mode"`
	Source     string        `yaml:"source"`
	Message    string        `yaml:"message"`
	Audio      string        `yaml:"audio"`
	Tone       *Tone         `yaml:"tone"`
	Tool       *ToolCall     `yaml:"tool"`
	Error      string        `yaml:"error"`
	Disconnect bool          `yaml:"disconnect"`
}

// Tone synthesises agent speech when no recording is available.
type Tone struct {
	Frequency float64       `yaml:"frequency"`
	Duration  time.Duration `yaml:"duration"`
	Amplitude float64       `yaml:"amplitude"`
}

// ToolCall invokes a client tool registered on the session.
type ToolCall struct {
	Name string `yaml:"name"`
	Args any    `yaml:"args"`
}

// DefaultScript greets the user and then listens indefinitely.
func DefaultScript() Script {
	return Script{
		ConnectDelay: 400 * time.Millisecond,
		Turns: []Turn{
			{After: 4 * time.Second, Mode: "speaking", Tone: &Tone{Frequency: 196, Duration: 1500 * time.Millisecond, Amplitude: 0.2}},
			{Mode: "listening"},
		},
	}
}

// LoadScript reads a script file. Relative audio paths resolve against the
// file's directory. A missing file yields the default script.
func LoadScript(path string) (Script, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultScript(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultScript(), nil
		}
		return Script{}, fmt.Errorf("read script: %w", err)
	}
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return Script{}, fmt.Errorf("parse script %s: %w", path, err)
	}
	if err := script.Validate(); err != nil {
		return Script{}, fmt.Errorf("script %s: %w", path, err)
	}
	script.dir = filepath.Dir(path)
	return script, nil
}

// Validate checks every turn.
func (s Script) Validate() error {
	if s.ConnectDelay < 0 {
		return errors.New("connect_delay must not be negative")
	}
	for i, turn := range s.Turns {
		if turn.After < 0 {
			return fmt.Errorf("turn %d: after must not be negative", i)
		}
		switch turn.Mode {
		case "", "speaking", "listening":
		default:
			return fmt.Errorf("turn %d: unknown mode %q", i, turn.Mode)
		}
		switch turn.Source {
		case "", "ai", "user":
		default:
			return fmt.Errorf("turn %d: unknown source %q", i, turn.Source)
		}
		if turn.Tool != nil && strings.TrimSpace(turn.Tool.Name) == "" {
			return fmt.Errorf("turn %d: tool name is required", i)
		}
		if turn.Tone != nil && (turn.Tone.Frequency <= 0 || turn.Tone.Duration <= 0) {
			return fmt.Errorf("turn %d: tone needs a frequency and duration", i)
		}
	}
	return nil
}

func (s Script) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || s.dir == "" {
		return path
	}
	return filepath.Join(s.dir, path)
}
