package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"instagram-feed/domain/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_ServeStreamsBroadcasts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewFeedHub()
	r := gin.New()
	r.GET("/stream", hub.Serve)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	hub.Broadcast(model.FeedEvent{Type: "feed_updated", Key: "feed:6", Count: 3})
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, ":ok\n\n"))
	assert.Contains(t, body, "event: feed_updated\n")
	assert.Contains(t, body, `"key":"feed:6"`)
	assert.Equal(t, 0, hub.Subscribers())
}

func TestHub_BroadcastSkipsFullSubscribers(t *testing.T) {
	hub := NewFeedHub()
	ch := make(chan model.FeedEvent, 1)
	hub.subscribe(ch)

	hub.Broadcast(model.FeedEvent{Key: "a"})
	hub.Broadcast(model.FeedEvent{Key: "b"})

	assert.Equal(t, "a", (<-ch).Key)
	hub.unsubscribe(ch)
	hub.unsubscribe(ch)
	assert.Equal(t, 0, hub.Subscribers())
}
