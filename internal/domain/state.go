package domain

import "time"

// DefaultQuery is the greeting the input collector starts with.
const DefaultQuery = "Bonjour Jarvis, comment vas-tu ?"

// State is the single source of truth for what the screen shows. It is
// replaced as a whole on every transition so views never observe a half
// applied update.
type State struct {
	RequestID  string        `json:"request_id,omitempty"`
	Query      string        `json:"query"`
	Transcript string        `json:"transcript"`
	Playback   PlaybackState `json:"playback"`
	Error      string        `json:"error,omitempty"`
	Source     ReplyKind     `json:"source,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func (s State) Loading() bool { return s.Playback == PlaybackLoading }
func (s State) Playing() bool { return s.Playback == PlaybackPlaying }

type Exchange struct {
	ID         string    `json:"id"`
	Query      string    `json:"query"`
	Transcript string    `json:"transcript"`
	Source     ReplyKind `json:"source"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}
