package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "LinguaTutor/pkg/errors"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newTestServer 启动一个回显服务端，收到任何消息后原样发回
func newTestServer(t *testing.T, onConn func(*websocket.Conn)) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		if onConn != nil {
			onConn(conn)
		}
	}))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, url
}

func TestSendNotConnected(t *testing.T) {
	client := NewClient("ws://127.0.0.1:1/ws", nil)
	err := client.Send(map[string]string{"type": TypeText})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotConnected))
}

func TestConnectAndDispatch(t *testing.T) {
	srv, url := newTestServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"streaming_complete","text":"hello"}`))
	})
	defer srv.Close()

	received := make(chan []byte, 1)
	client := NewClient(url, nil)
	client.On(TypeStreamingComplete, func(data []byte) {
		received <- data
	})
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close(true)

	select {
	case data := <-received:
		assert.Contains(t, string(data), "hello")
	case <-time.After(2 * time.Second):
		t.Fatal("message was not dispatched")
	}
	assert.Equal(t, StateOpen, client.State())
}

func TestConnectIdempotent(t *testing.T) {
	var upgrades int32
	srv, url := newTestServer(t, func(conn *websocket.Conn) {
		atomic.AddInt32(&upgrades, 1)
		// 保持连接不退出
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	client := NewClient(url, nil)
	require.NoError(t, client.Connect(context.Background()))
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close(true)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&upgrades))
}

func TestConnectFailure(t *testing.T) {
	client := NewClient("ws://127.0.0.1:1/ws", nil)
	err := client.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConnectFailed))
	assert.Equal(t, StateClosed, client.State())
}

func TestCloseIntentional(t *testing.T) {
	srv, url := newTestServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	disconnected := make(chan bool, 1)
	client := NewClient(url, nil)
	client.OnDisconnect(func(intentional bool) {
		disconnected <- intentional
	})
	require.NoError(t, client.Connect(context.Background()))
	client.Close(true)

	select {
	case intentional := <-disconnected:
		assert.True(t, intentional)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect callback was not invoked")
	}
}

func TestCloseCallbackFiresOnce(t *testing.T) {
	srv, url := newTestServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	var calls int32
	client := NewClient(url, nil)
	client.OnDisconnect(func(bool) {
		atomic.AddInt32(&calls, 1)
	})
	require.NoError(t, client.Connect(context.Background()))

	// 读循环退出不应再补发一次回调，重复 Close 也不应触发
	client.Close(true)
	client.Close(true)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestServerDropIsUnintentional(t *testing.T) {
	srv, url := newTestServer(t, func(conn *websocket.Conn) {
		// 服务端立刻断开，模拟意外掉线
		conn.Close()
	})
	defer srv.Close()

	disconnected := make(chan bool, 1)
	client := NewClient(url, nil)
	client.OnDisconnect(func(intentional bool) {
		disconnected <- intentional
	})
	require.NoError(t, client.Connect(context.Background()))

	select {
	case intentional := <-disconnected:
		assert.False(t, intentional)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect callback was not invoked")
	}
}

func TestUnknownTypeIgnored(t *testing.T) {
	srv, url := newTestServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"mystery"}`))
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"streaming_complete","text":"after"}`))
	})
	defer srv.Close()

	received := make(chan []byte, 1)
	client := NewClient(url, nil)
	client.On(TypeStreamingComplete, func(data []byte) {
		received <- data
	})
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close(true)

	select {
	case data := <-received:
		// 未知类型被跳过，后续消息仍正常派发
		assert.Contains(t, string(data), "after")
	case <-time.After(2 * time.Second):
		t.Fatal("message after unknown type was not dispatched")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	bad := cfg.Clone()
	bad.PongTimeout = cfg.PingInterval / 2
	assert.Error(t, bad.Validate())

	merged := DefaultConfig()
	merged.Merge(&Config{WriteTimeout: 3 * time.Second})
	assert.Equal(t, 3*time.Second, merged.WriteTimeout)
	assert.Equal(t, DefaultPingInterval, merged.PingInterval)
}
