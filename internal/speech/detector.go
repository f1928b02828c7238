// Package speech turns analyser snapshots into a debounced speech/silence
// signal.
package speech

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"voicefront/internal/domain"
	"voicefront/internal/sched"
)

// Params tunes the detector.
type Params struct {
	SpeechOn   float64
	SpeechOff  float64
	MinSamples int
	EndPause   time.Duration
	Grace      time.Duration
}

// DefaultParams returns the tuned defaults.
func DefaultParams() Params {
	return Params{
		SpeechOn:   15,
		SpeechOff:  10,
		MinSamples: 5,
		EndPause:   800 * time.Millisecond,
		Grace:      300 * time.Millisecond,
	}
}

// ValidationError reports an invalid parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Validate checks that the thresholds form a hysteresis band.
func (p Params) Validate() error {
	if p.SpeechOn <= 0 {
		return &ValidationError{Field: "SpeechOn", Message: "must be positive"}
	}
	if p.SpeechOff < 0 || p.SpeechOff > p.SpeechOn {
		return &ValidationError{Field: "SpeechOff", Message: "must be between 0 and SpeechOn"}
	}
	if p.MinSamples < 1 {
		return &ValidationError{Field: "MinSamples", Message: "must be at least 1"}
	}
	if p.EndPause <= 0 {
		return &ValidationError{Field: "EndPause", Message: "must be positive"}
	}
	if p.Grace < 0 {
		return &ValidationError{Field: "Grace", Message: "must not be negative"}
	}
	return nil
}

// TalkState tells the detector whether the remote agent is speaking.
type TalkState interface {
	AgentTalking() bool
}

// Hooks are notified on state transitions.
type Hooks struct {
	OnSpeechStart    func()
	OnEndOfUtterance func()
}

// Detector is a hysteresis state machine over speech energy. All methods
// must be called on the scheduler's loop.
type Detector struct {
	params Params
	sched  sched.Scheduler
	talk   TalkState
	hooks  Hooks
	logger *zap.Logger

	state      domain.SpeechState
	energy     float64
	above      int
	lastSpeech time.Time
	silence    sched.Timer
}

func NewDetector(params Params, scheduler sched.Scheduler, talk TalkState, hooks Hooks, logger *zap.Logger) (*Detector, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		params: params,
		sched:  scheduler,
		talk:   talk,
		hooks:  hooks,
		logger: logger,
		state:  domain.SpeechIdle,
	}, nil
}

// Process consumes one frequency snapshot.
func (d *Detector) Process(freq []byte) {
	if d.talk != nil && d.talk.AgentTalking() {
		return
	}

	d.energy = Energy(freq)
	now := d.sched.Now()

	switch {
	case d.energy > d.params.SpeechOn:
		d.silence = sched.Stop(d.silence)
		d.above++
		if d.above >= d.params.MinSamples && d.state != domain.SpeechSpeaking {
			d.state = domain.SpeechSpeaking
			d.logger.Debug("speech started", zap.Float64("energy", d.energy))
			if d.hooks.OnSpeechStart != nil {
				d.hooks.OnSpeechStart()
			}
		}
		d.lastSpeech = now
	case d.state == domain.SpeechSpeaking && d.energy < d.params.SpeechOff:
		if d.silence == nil && now.Sub(d.lastSpeech) > d.params.Grace {
			d.silence = d.sched.AfterFunc(d.params.EndPause, d.endOfUtterance)
		}
	default:
		if d.above > 0 {
			d.above--
		}
	}
}

func (d *Detector) endOfUtterance() {
	d.silence = nil
	d.state = domain.SpeechIdle
	d.above = 0
	d.logger.Debug("end of utterance")
	if d.hooks.OnEndOfUtterance != nil {
		d.hooks.OnEndOfUtterance()
	}
}

// Reset drops any pending silence timer and returns to idle without
// notifying hooks.
func (d *Detector) Reset() {
	d.silence = sched.Stop(d.silence)
	d.state = domain.SpeechIdle
	d.above = 0
	d.energy = 0
}

func (d *Detector) State() domain.SpeechState { return d.state }

func (d *Detector) Speaking() bool { return d.state == domain.SpeechSpeaking }

// Energy is the speech energy of the last processed snapshot.
func (d *Detector) Energy() float64 { return d.energy }

// SamplesAboveThreshold is the current consecutive-sample counter.
func (d *Detector) SamplesAboveThreshold() int { return d.above }

func (d *Detector) LastSpeech() time.Time { return d.lastSpeech }

func (d *Detector) Params() Params { return d.params }
