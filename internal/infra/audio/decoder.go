package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// PCM is decoded, interleaved 16-bit audio.
type PCM struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

func (p *PCM) Frames() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

func (p *PCM) Duration() time.Duration {
	if p.SampleRate == 0 {
		return 0
	}
	return time.Duration(p.Frames()) * time.Second / time.Duration(p.SampleRate)
}

func DecodeFile(path string) (*PCM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Decode(data)
}

// Decode sniffs the container and decodes WAV, Ogg Vorbis or MP3 payloads.
func Decode(data []byte) (*PCM, error) {
	if len(data) == 0 {
		return nil, errors.New("empty audio payload")
	}

	var (
		pcm *PCM
		err error
	)
	switch {
	case isWAV(data):
		pcm, err = decodeWAV(data)
	case isOgg(data):
		pcm, err = decodeVorbis(data)
	default:
		pcm, err = decodeMP3(data)
	}
	if err != nil {
		return nil, err
	}

	if pcm.Frames() == 0 {
		return nil, errors.New("no audio frames")
	}
	return pcm, nil
}

func decodeMP3(data []byte) (*PCM, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening mp3 stream: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil && len(raw) == 0 {
		return nil, fmt.Errorf("decoding mp3 frames: %w", err)
	}

	// go-mp3 always yields 16-bit little endian stereo.
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
	}

	return &PCM{
		Samples:    samples,
		SampleRate: dec.SampleRate(),
		Channels:   2,
	}, nil
}

func isOgg(data []byte) bool {
	return bytes.HasPrefix(data, []byte("OggS"))
}

func decodeVorbis(data []byte) (*PCM, error) {
	floats, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding ogg vorbis stream: %w", err)
	}

	samples := make([]int16, len(floats))
	for i, f := range floats {
		f = max(-1, min(1, f))
		samples[i] = int16(f * 32767)
	}

	return &PCM{
		Samples:    samples,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
	}, nil
}
