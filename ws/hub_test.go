package ws

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commentstream/backend/models"
)

// bareClient returns a client that is registered with the hub but has no
// network connection; broadcasts land in its send buffer.
func bareClient(h *Hub) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{hub: h, send: make(chan []byte, sendBufferSize), ctx: ctx, cancel: cancel}
	h.register(c)
	return c
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	h := NewHub(nil)
	a := bareClient(h)
	b := bareClient(h)
	require.Equal(t, 2, h.ClientCount())

	h.Broadcast([]byte("hello"))

	assert.Equal(t, []byte("hello"), <-a.send)
	assert.Equal(t, []byte("hello"), <-b.send)
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	h := NewHub(nil)
	a := bareClient(h)
	b := bareClient(h)

	h.unregister(a)
	require.Equal(t, 1, h.ClientCount())

	h.Broadcast([]byte("x"))
	assert.Equal(t, []byte("x"), <-b.send)
	select {
	case <-a.send:
		t.Fatal("unregistered client received a broadcast")
	default:
	}
}

func TestHubSlowClientDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub(nil)
	c := bareClient(h)

	for i := 0; i < sendBufferSize+10; i++ {
		h.Broadcast([]byte("m")) // must not block once the buffer fills
	}
	assert.Len(t, c.send, sendBufferSize)
}

func TestHubNewCommentEvent(t *testing.T) {
	h := NewHub(nil)
	c := bareClient(h)

	comment := &models.Comment{ID: 7, Text: "<strong>hi</strong> there", SenderID: 1}
	h.NewComment(comment)

	var ev Event
	require.NoError(t, json.Unmarshal(<-c.send, &ev))
	assert.Equal(t, "new_comment", ev.Type)
	require.NotNil(t, ev.Comment)
	assert.Equal(t, uint(7), ev.Comment.ID)
	assert.Equal(t, "<strong>hi</strong> there", ev.Comment.Text)
	assert.Equal(t, "hi there", ev.Preview)
}

func TestHubShutdownRejectsNewClients(t *testing.T) {
	h := NewHub(nil)
	bareClient(h)

	h.Shutdown(context.Background())
	assert.Equal(t, 0, h.ClientCount())

	bareClient(h)
	assert.Equal(t, 0, h.ClientCount())
}

func TestPreviewTruncation(t *testing.T) {
	long := strings.Repeat("абв ", 100)
	p := preview(long)
	assert.LessOrEqual(t, len([]rune(p)), previewLen+1) // content plus ellipsis
	assert.True(t, strings.HasSuffix(p, "…"))
}
