package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// client 一个订阅了会话更新的浏览器连接
type client struct {
	id   string
	ch   chan string
	done chan struct{}
}

// Hub pushes session updates to subscribed browsers over Server-Sent
// Events. One process hosts one student session, so there is a single
// broadcast group: every subscriber sees every update.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	interval time.Duration // 心跳间隔
	retryMs  int
}

// NewHub 创建 SSE 推送中心
func NewHub(interval time.Duration) *Hub {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Hub{
		clients:  make(map[string]*client),
		interval: interval,
		retryMs:  5000,
	}
}

// Broadcast 向所有订阅者推送一条事件，慢的订阅者丢弃本条
func (h *Hub) Broadcast(event string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	frame := fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.ch <- frame:
		default:
		}
	}
}

// Subscribers 当前订阅者数量
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve 处理一个 SSE 订阅请求，连接断开前阻塞
func (h *Hub) Serve(c *gin.Context) {
	cl := &client{
		id:   uuid.NewString(),
		ch:   make(chan string, 64),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[cl.id] = cl
	h.mu.Unlock()
	defer h.remove(cl.id)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteString(fmt.Sprintf("retry: %d\n\n", h.retryMs))
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.interval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case frame := <-cl.ch:
			w.Write([]byte(frame))
			return true
		case <-heartbeat.C:
			w.Write([]byte(": ping\n\n"))
			return true
		case <-cl.done:
			return false
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cl, ok := h.clients[id]; ok {
		close(cl.done)
		delete(h.clients, id)
	}
}
