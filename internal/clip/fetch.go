package clip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

var ErrUnsupportedFormat = errors.New("unsupported clip format")

const cacheBustRange = 5198465487

// Fetcher retrieves the raw bytes of a clip.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// SourceFetcher reads http(s) sources through resty with cache busting and
// anything else from the local filesystem.
type SourceFetcher struct {
	client *resty.Client
	random func() int64
}

func NewSourceFetcher(timeout time.Duration) *SourceFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SourceFetcher{
		client: resty.New().SetTimeout(timeout),
		random: func() int64 { return rand.Int64N(cacheBustRange) },
	}
}

func (f *SourceFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if !isRemote(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read clip: %w", err)
		}
		return data, nil
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"nocache": strconv.FormatInt(f.random(), 10),
			"nc":      "v2.0",
		}).
		Get(source)
	if err != nil {
		return nil, fmt.Errorf("fetch clip: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch clip: unexpected status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Decode turns Ogg Vorbis or WAV bytes into an in-memory buffer at rate.
func Decode(data []byte, rate beep.SampleRate) (*beep.Buffer, error) {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch {
	case bytes.HasPrefix(data, []byte("OggS")):
		streamer, format, err = vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
	case bytes.HasPrefix(data, []byte("RIFF")):
		streamer, format, err = wav.Decode(bytes.NewReader(data))
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, fmt.Errorf("decode clip: %w", err)
	}
	defer streamer.Close()

	var source beep.Streamer = streamer
	if format.SampleRate != rate {
		source = beep.Resample(4, format.SampleRate, rate, streamer)
	}

	buffer := beep.NewBuffer(beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2})
	buffer.Append(source)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("decode clip: %w", err)
	}
	return buffer, nil
}
