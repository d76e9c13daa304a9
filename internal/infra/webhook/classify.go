package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"jarvis/internal/domain"
)

// Classify turns a successful webhook response into a Reply, branching on the
// declared content type: JSON, audio/*, anything else as text.
func Classify(header http.Header, body []byte) (*domain.Reply, error) {
	contentType := header.Get("Content-Type")
	lowered := strings.ToLower(contentType)

	switch {
	case strings.Contains(lowered, "application/json"):
		text, err := jsonTranscript(body)
		if err != nil {
			return nil, &domain.DecodeError{ContentType: contentType, Err: err}
		}
		return &domain.Reply{Kind: domain.ReplyJSON, Text: text, ContentType: contentType}, nil

	case strings.Contains(lowered, "audio/"):
		if len(body) == 0 {
			return nil, &domain.DecodeError{ContentType: contentType, Err: errors.New("empty audio payload")}
		}
		text := header.Get(domain.ResponseTextHeader)
		if text == "" {
			text = domain.PlaceholderAudio
		}
		return &domain.Reply{Kind: domain.ReplyAudio, Text: text, Audio: body, ContentType: contentType}, nil

	default:
		text := domain.PlaceholderEmpty
		if len(body) > 0 {
			text = domain.TruncateTranscript(string(body))
		}
		return &domain.Reply{Kind: domain.ReplyText, Text: text, ContentType: contentType}, nil
	}
}

// jsonTranscript picks text, then message, then the whole body re-encoded in
// its original key order.
func jsonTranscript(body []byte) (string, error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", err
	}
	if decoded == nil {
		return "", errors.New("null JSON body")
	}

	if obj, ok := decoded.(map[string]any); ok {
		for _, key := range []string{"text", "message"} {
			value, present := obj[key]
			if !present || value == nil {
				continue
			}
			if s, ok := value.(string); ok {
				return s, nil
			}
			encoded, err := json.Marshal(value)
			if err != nil {
				return "", err
			}
			return string(encoded), nil
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return "", err
	}
	return compact.String(), nil
}
