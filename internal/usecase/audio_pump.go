package usecase

import (
	"encoding/binary"
	"errors"
	"io"

	"voicefront/internal/audiograph"
	"voicefront/internal/ports"
)

// pumpMicrophone feeds captured s16le PCM into the mic graph and advances its
// clock by the same number of frames. It returns when the capture ends.
func pumpMicrophone(
	audio ports.AudioSession,
	graph *audiograph.Context,
	source *audiograph.SourceNode,
	chunkSize int,
	channels int,
	onError func(error),
	done chan struct{},
) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 4096
	}
	if channels <= 0 {
		channels = 1
	}

	frameBytes := 2 * channels
	buf := make([]byte, chunkSize)
	var (
		pending []byte
		samples []float64
	)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			whole := len(pending) - len(pending)%frameBytes
			if whole > 0 {
				samples = decodePCM16(samples, pending[:whole], channels)
				pending = append(pending[:0], pending[whole:]...)
				source.Push(samples)
				graph.Advance(len(samples))
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && onError != nil {
				onError(err)
			}
			return
		}
	}
}

// decodePCM16 converts little-endian s16 samples into [-1, 1], averaging
// interleaved channels down to mono.
func decodePCM16(dst []float64, pcm []byte, channels int) []float64 {
	frameBytes := 2 * channels
	frames := len(pcm) / frameBytes
	dst = dst[:0]
	for f := 0; f < frames; f++ {
		var sum float64
		for c := 0; c < channels; c++ {
			off := f*frameBytes + 2*c
			sum += float64(int16(binary.LittleEndian.Uint16(pcm[off:]))) / 32768
		}
		dst = append(dst, sum/float64(channels))
	}
	return dst
}
