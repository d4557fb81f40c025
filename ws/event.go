package ws

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/commentstream/backend/models"
)

const previewLen = 120

// stripper removes every markup tag; previews are plain text.
var stripper = bluemonday.StrictPolicy()

// Event is the wire format pushed to subscribers.
type Event struct {
	Type    string          `json:"type"`
	Comment *models.Comment `json:"comment"`
	Preview string          `json:"preview,omitempty"`
}

// NewCommentEvent wraps a freshly created comment for broadcast, with a
// markup-stripped preview for clients that render plain notifications.
func NewCommentEvent(c *models.Comment) Event {
	return Event{
		Type:    "new_comment",
		Comment: c,
		Preview: preview(c.Text),
	}
}

func preview(text string) string {
	plain := strings.TrimSpace(stripper.Sanitize(text))
	if utf8.RuneCountInString(plain) <= previewLen {
		return plain
	}
	runes := []rune(plain)
	return string(runes[:previewLen]) + "…"
}
