package application

import "context"

// Player builds playable sounds from cached audio files.
type Player interface {
	Name() string
	Load(ctx context.Context, path string) (Sound, error)
	Close() error
}

// Sound is a loaded audio resource. Finished is closed when playback ends
// naturally or the sound is unloaded.
type Sound interface {
	Play(ctx context.Context) error
	Finished() <-chan struct{}
	Unload() error
}

type AudioCache interface {
	Store(data []byte, contentType string) (string, error)
	Release(path string) error
}
