package domain

type ReplyKind string

const (
	ReplyJSON     ReplyKind = "json"
	ReplyAudio    ReplyKind = "audio"
	ReplyText     ReplyKind = "text"
	ReplyFallback ReplyKind = "fallback"
	ReplyInvalid  ReplyKind = "invalid"
)

const (
	PlaceholderAudio        = "Audio reçu de Jarvis"
	PlaceholderEmpty        = "Réponse reçue de Jarvis"
	PlaceholderUnrecognized = "Message reçu de Jarvis (format non reconnu)"
	FallbackTranscript      = "Ceci est un test de Jarvis"
)

// ResponseTextHeader optionally carries the display text of an audio reply.
const ResponseTextHeader = "X-Response-Text"

const (
	MaxTranscriptRunes = 500
	TruncationMarker   = "..."
)

// Reply is a classified webhook response.
type Reply struct {
	Kind        ReplyKind
	Text        string
	Audio       []byte
	ContentType string
}

// TruncateTranscript caps s at MaxTranscriptRunes characters, marking the cut.
func TruncateTranscript(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxTranscriptRunes {
		return s
	}
	return string(runes[:MaxTranscriptRunes]) + TruncationMarker
}
