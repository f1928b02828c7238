package clip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicefront/internal/sched"
)

const testRate = beep.SampleRate(8000)

type fakeSink struct {
	mu     sync.Mutex
	played []beep.Streamer
}

func (s *fakeSink) SampleRate() beep.SampleRate { return testRate }

func (s *fakeSink) Play(st beep.Streamer) error {
	s.played = append(s.played, st)
	return nil
}

func (s *fakeSink) Lock()   { s.mu.Lock() }
func (s *fakeSink) Unlock() { s.mu.Unlock() }

// drain pulls st to completion the way the speaker would.
func drain(st beep.Streamer) [][2]float64 {
	var out [][2]float64
	buf := make([][2]float64, 64)
	for {
		n, ok := st.Stream(buf)
		out = append(out, buf[:n]...)
		if !ok {
			return out
		}
	}
}

type constant float64

func (c constant) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		samples[i] = [2]float64{float64(c), float64(c)}
	}
	return len(samples), true
}

func (constant) Err() error { return nil }

func writeWAV(t *testing.T, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cue.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	format := beep.Format{SampleRate: testRate, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Take(frames, constant(0.5)), format))
	require.NoError(t, f.Close())
	return path
}

func newTestPlayer(t *testing.T) (*Player, *fakeSink, *sched.Manual) {
	t.Helper()
	manual := sched.NewManual(time.Unix(0, 0))
	sink := &fakeSink{}
	return NewPlayer(manual, sink), sink, manual
}

func loadClip(t *testing.T, p *Player, m *sched.Manual, path string) {
	t.Helper()
	var loadErr error
	called := false
	p.Load(path, func(err error) {
		called = true
		loadErr = err
	})
	m.RunPending()
	require.True(t, called)
	require.NoError(t, loadErr)
}

func TestPlayWithoutClip(t *testing.T) {
	t.Parallel()

	p, sink, _ := newTestPlayer(t)
	assert.ErrorIs(t, p.Play(), ErrNotLoaded)
	assert.False(t, p.Playing())
	assert.Empty(t, sink.played)
}

func TestLoadAndPlayToEnd(t *testing.T) {
	t.Parallel()

	p, sink, m := newTestPlayer(t)
	path := writeWAV(t, 400)
	loadClip(t, p, m, path)

	assert.True(t, p.Ready())
	assert.Equal(t, path, p.Source())

	require.NoError(t, p.Play())
	assert.True(t, p.Playing())
	require.Len(t, sink.played, 1)

	samples := drain(sink.played[0])
	require.Len(t, samples, 400)
	assert.InDelta(t, 0.5, samples[10][0], 1e-3)
	assert.InDelta(t, 0.5, samples[399][1], 1e-3)

	m.RunPending()
	assert.False(t, p.Playing())
}

func TestLoadFailureKeepsPreviousClip(t *testing.T) {
	t.Parallel()

	p, _, m := newTestPlayer(t)
	path := writeWAV(t, 100)
	loadClip(t, p, m, path)

	var loadErr error
	p.Load(filepath.Join(t.TempDir(), "missing.wav"), func(err error) { loadErr = err })
	m.RunPending()

	assert.Error(t, loadErr)
	assert.True(t, p.Ready())
	assert.Equal(t, path, p.Source())
}

func TestUnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte("ID3 not really an mp3"), testRate)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFadeOutRampsThenStops(t *testing.T) {
	t.Parallel()

	p, sink, m := newTestPlayer(t)
	loadClip(t, p, m, writeWAV(t, 8000))
	require.NoError(t, p.Play())

	calls := 0
	p.FadeOut(200*time.Millisecond, func() { calls++ })
	assert.True(t, p.Fading())

	m.Advance(50 * time.Millisecond)
	assert.InDelta(t, 0.75, p.Volume(), 1e-9)

	// A second fade while fading is ignored.
	p.FadeOut(time.Second, func() { t.Fatal("second fade must not complete") })

	m.Advance(150 * time.Millisecond)
	assert.Equal(t, 1, calls)
	assert.False(t, p.Playing())
	assert.False(t, p.Fading())
	assert.Zero(t, m.PendingTimers())

	rest := drain(sink.played[0])
	assert.Empty(t, rest, "stopped stream ends immediately")

	m.Advance(time.Second)
	assert.Equal(t, 1, calls)
}

func TestFadeOutWhenIdleIsNoop(t *testing.T) {
	t.Parallel()

	p, _, m := newTestPlayer(t)
	loadClip(t, p, m, writeWAV(t, 100))

	p.FadeOut(100*time.Millisecond, func() { t.Fatal("idle fade must not complete") })
	assert.False(t, p.Fading())
	assert.Zero(t, m.PendingTimers())
}

func TestStopCutsFadeShort(t *testing.T) {
	t.Parallel()

	p, _, m := newTestPlayer(t)
	loadClip(t, p, m, writeWAV(t, 8000))
	require.NoError(t, p.Play())

	calls := 0
	p.FadeOut(500*time.Millisecond, func() {
		calls++
		assert.False(t, p.Playing(), "completion runs after the player stopped")
	})
	m.Advance(100 * time.Millisecond)
	p.Stop()

	assert.Equal(t, 1, calls)
	assert.False(t, p.Playing())
	assert.False(t, p.Fading())
	assert.Zero(t, m.PendingTimers())

	p.Stop()
	m.Advance(time.Second)
	assert.Equal(t, 1, calls)
}

func TestStopDuringCueStillPlaysNext(t *testing.T) {
	t.Parallel()

	p, sink, m := newTestPlayer(t)
	second := writeWAV(t, 100)
	loadClip(t, p, m, writeWAV(t, 80000))
	require.NoError(t, p.Play())

	p.Cue(second)
	m.Advance(200 * time.Millisecond)
	p.Stop()
	m.RunPending()

	assert.Len(t, sink.played, 2)
	assert.True(t, p.Playing())
	assert.Equal(t, second, p.Source())
}

func TestNaturalEndCompletesFade(t *testing.T) {
	t.Parallel()

	p, sink, m := newTestPlayer(t)
	loadClip(t, p, m, writeWAV(t, 100))
	require.NoError(t, p.Play())

	calls := 0
	p.FadeOut(time.Second, func() { calls++ })
	drain(sink.played[0])
	m.RunPending()

	assert.Equal(t, 1, calls)
	assert.False(t, p.Fading())
	assert.Zero(t, m.PendingTimers())
}

func TestCueWhileIdlePlaysImmediately(t *testing.T) {
	t.Parallel()

	p, sink, m := newTestPlayer(t)
	path := writeWAV(t, 100)

	p.Cue(path)
	m.RunPending()

	assert.True(t, p.Playing())
	assert.Len(t, sink.played, 1)
}

func TestCueWhilePlayingFadesFirst(t *testing.T) {
	t.Parallel()

	p, sink, m := newTestPlayer(t)
	first := writeWAV(t, 80000)
	second := writeWAV(t, 100)
	loadClip(t, p, m, first)
	require.NoError(t, p.Play())

	p.Cue(second)
	assert.True(t, p.Fading())
	m.Advance(CueFadeDuration - FadeStep)
	assert.Len(t, sink.played, 1)

	m.Advance(FadeStep)
	assert.Len(t, sink.played, 2)
	assert.True(t, p.Playing())
	assert.Equal(t, second, p.Source())
}

func TestSourceFetcherBustsCache(t *testing.T) {
	t.Parallel()

	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.ogg" {
			http.NotFound(w, r)
			return
		}
		query = r.URL.Query()
		_, _ = w.Write([]byte("RIFF...."))
	}))
	defer srv.Close()

	f := NewSourceFetcher(time.Second)
	f.random = func() int64 { return 4242 }

	data, err := f.Fetch(context.Background(), srv.URL+"/join.ogg")
	require.NoError(t, err)
	assert.Equal(t, "RIFF....", string(data))
	assert.Equal(t, []string{"4242"}, query["nocache"])
	assert.Equal(t, []string{"v2.0"}, query["nc"])

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.ogg")
	assert.Error(t, err)
}
