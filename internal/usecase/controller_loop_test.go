package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"voicefront/internal/domain"
	"voicefront/internal/ports"
	"voicefront/internal/profile"
	"voicefront/internal/sched"
	"voicefront/internal/speech"
)

func TestSessionControllerKeepsCallbackOrderOnLoop(t *testing.T) {
	t.Parallel()

	loop := sched.NewLoop(0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	audio := &fakeAudioSession{chunks: [][]byte{make([]byte, 1024)}}
	provider := &fakeProvider{}
	controller, err := NewSessionController(Deps{
		Scheduler:   loop,
		Devices:     fakeDevices{list: []domain.Device{{ID: "mic-1", Name: "USB Microphone", IsDefault: true}}},
		Capture:     &fakeAudioCapture{session: audio},
		Credentials: &fakeCredentials{},
		Provider:    provider,
		Cues:        &fakeCues{},
		Links:       &fakeLinks{},
		Clipboard:   &fakeClipboard{},
		Events:      &fakeEventSink{},
	}, Config{
		Profile:         profile.Low,
		Audio:           ports.AudioConfig{SampleRate: 16000, Channels: 1},
		ChunkSize:       512,
		Speech:          speech.DefaultParams(),
		RenderInterval:  16 * time.Millisecond,
		SubtitlePerChar: 10 * time.Millisecond,
		NoiseSeed:       7,
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	defer func() { _ = loop.Do(context.Background(), controller.Close) }()

	if err := loop.Do(ctx, func() { controller.Boot(ctx) }); err != nil {
		t.Fatalf("boot: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for provider.started() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session was never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	callbacks := provider.last()
	callbacks.OnConnect()
	want := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		text := fmt.Sprintf("line %d", i)
		want = append(want, "You: "+text)
		callbacks.OnMessage(domain.Message{Source: domain.MessageSourceUser, Message: text})
	}
	for i := 0; i < 100; i++ {
		callbacks.OnModeChange(domain.AgentModeSpeaking)
		callbacks.OnModeChange(domain.AgentModeListening)
	}

	var (
		transcript string
		talking    bool
	)
	if err := loop.Do(ctx, func() {
		transcript = controller.Transcript()
		talking = controller.state.AgentTalking()
	}); err != nil {
		t.Fatalf("inspect: %v", err)
	}

	if got := strings.Join(want, "\n"); transcript != got {
		t.Fatalf("messages delivered out of order:\n%s", transcript)
	}
	if talking {
		t.Fatalf("expected agent to be listening after the final mode change")
	}
}
