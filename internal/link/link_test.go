package link

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetraslam/griddy/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(&logging.Config{Level: logging.LevelError})
}

func TestReadyFiresOnce(t *testing.T) {
	r := NewReady()
	select {
	case <-r.Done():
		t.Fatal("should not be done before Fire")
	default:
	}
	r.Fire()
	r.Fire() // second call must not panic (close on closed channel)
	select {
	case <-r.Done():
	default:
		t.Fatal("should be done after Fire")
	}
}

func TestLinkReceivesBinaryFramesAndDiscardsText(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var wg sync.WaitGroup
	wg.Add(1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte("ignored"))
		conn.WriteMessage(websocket.BinaryMessage, []byte("frame-1"))
		wg.Wait()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	l := NewLink("out", func() string { return url }, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan []byte, 1)
	go l.Run(ctx, func(b []byte) error {
		received <- append([]byte(nil), b...)
		return nil
	})

	select {
	case b := <-received:
		assert.Equal(t, "frame-1", string(b))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
	wg.Done()
}

func TestSendFailsWhenLinkNotOpen(t *testing.T) {
	l := NewLink("in", func() string { return "ws://127.0.0.1:1" }, testLogger())
	err := l.Send([]byte("x"))
	assert.Error(t, err)
}
