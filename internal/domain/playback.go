package domain

import "fmt"

type PlaybackState int

const (
	PlaybackIdle PlaybackState = iota
	PlaybackLoading
	PlaybackPlaying
)

func (s PlaybackState) String() string {
	switch s {
	case PlaybackIdle:
		return "idle"
	case PlaybackLoading:
		return "loading"
	case PlaybackPlaying:
		return "playing"
	default:
		return "unknown"
	}
}

func (s PlaybackState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PlaybackState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = PlaybackIdle
	case "loading":
		*s = PlaybackLoading
	case "playing":
		*s = PlaybackPlaying
	default:
		return fmt.Errorf("unknown playback state %q", text)
	}
	return nil
}
