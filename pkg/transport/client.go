package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	apperrors "LinguaTutor/pkg/errors"
	"LinguaTutor/pkg/metrics"
)

// State 连接状态
type State int32

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Handler 按消息类型注册的入站处理函数，data 为完整的消息原文
type Handler func(data []byte)

// ErrNotConnected 未连接时调用 Send 返回的错误
var ErrNotConnected = apperrors.WithCode(apperrors.CodeNotConnected, "websocket is not connected")

// Client is a JSON-over-WebSocket client. All inbound frames carry a
// "type" discriminator and are dispatched to the handler registered for
// that type; frames with no handler are dropped. A Client survives the
// connection it currently holds: Connect may be called again after a
// drop and a newer Connect always supersedes an older in-flight dial.
type Client struct {
	url    string
	config *Config

	mu           sync.Mutex
	conn         *websocket.Conn
	state        State
	dialGen      uint64 // 拨号代号，新的 Connect 会使旧的拨号作废
	intentional  bool   // 本次断开是否为主动关闭
	handlers     map[string]Handler
	onConnect    func()
	onDisconnect func(intentional bool)

	writeMu sync.Mutex // 串行化对 conn 的写操作
}

// NewClient 创建客户端，cfg 为 nil 时使用默认配置
func NewClient(url string, cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Client{
		url:      url,
		config:   cfg,
		state:    StateClosed,
		handlers: make(map[string]Handler),
	}
}

// On 注册某一消息类型的处理函数，重复注册会覆盖旧的
func (c *Client) On(msgType string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[msgType] = h
}

// OnConnect 注册连接建立后的回调
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = fn
}

// OnDisconnect 注册连接断开后的回调，intentional 表示是否为主动关闭
func (c *Client) OnDisconnect(fn func(intentional bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = fn
}

// State 返回当前连接状态
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the configured URL. It is idempotent: if a connection is
// already open or a dial is in flight it returns immediately, and the
// caller can rely on the earlier attempt. Calling Connect after Close
// starts a fresh dial that invalidates any stale one still unwinding.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateClosed {
		// 已连接或正在连接，直接复用
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.intentional = false
	c.dialGen++
	gen := c.dialGen
	c.mu.Unlock()

	metrics.SetConnectionState(int(StateConnecting))
	logrus.WithField("url", c.url).Info("正在建立 WebSocket 连接")

	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)

	c.mu.Lock()
	if gen != c.dialGen {
		// 拨号期间有新的 Connect/Close 介入，本次结果作废
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return nil
	}
	if err != nil {
		c.state = StateClosed
		c.mu.Unlock()
		metrics.SetConnectionState(int(StateClosed))
		metrics.RecordConnect("failure")
		logrus.WithField("url", c.url).WithError(err).Warn("WebSocket 连接失败")
		return apperrors.WrapCode(apperrors.CodeConnectFailed, err, "dial websocket")
	}

	conn.SetReadLimit(c.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout))
	})

	c.conn = conn
	c.state = StateOpen
	onConnect := c.onConnect
	c.mu.Unlock()

	metrics.SetConnectionState(int(StateOpen))
	metrics.RecordConnect("success")
	logrus.WithField("url", c.url).Info("WebSocket 连接已建立")

	go c.readLoop(conn, gen)
	go c.pingLoop(conn, gen)

	if onConnect != nil {
		onConnect()
	}
	return nil
}

// Send 将 v 序列化为 JSON 后发送，未连接时返回 ErrNotConnected
func (c *Client) Send(v interface{}) error {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()
	if !open || conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return apperrors.Wrap(err, "marshal outbound message")
	}

	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		logrus.WithError(err).Warn("WebSocket 消息发送失败")
		return apperrors.Wrap(err, "write websocket message")
	}

	msgType := peekType(data)
	metrics.RecordMessageOut(msgType)
	logrus.WithFields(logrus.Fields{
		"type": msgType,
		"size": len(data),
	}).Debug("已发送消息")
	return nil
}

// Close 关闭连接。intentional 为 true 表示调用方主动结束会话，
// 断开回调据此区分正常退出与意外掉线。
func (c *Client) Close(intentional bool) {
	c.mu.Lock()
	c.intentional = intentional
	c.dialGen++ // 作废可能在途的拨号
	conn := c.conn
	c.conn = nil
	wasOpen := c.state == StateOpen
	c.state = StateClosed
	onDisconnect := c.onDisconnect
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		conn.Close()
	}
	if wasOpen {
		metrics.SetConnectionState(int(StateClosed))
		logrus.Info("WebSocket 连接已主动关闭")
		// 读循环会因代号作废而不再上报，这里直接通知上层
		if onDisconnect != nil {
			onDisconnect(intentional)
		}
	}
}

// readLoop 持续读取入站消息并派发，直到连接关闭
func (c *Client) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(conn, gen, err)
			return
		}
		c.dispatch(data)
	}
}

// dispatch 按 type 字段派发消息
func (c *Client) dispatch(data []byte) {
	msgType := peekType(data)
	metrics.RecordMessageIn(msgType)

	c.mu.Lock()
	h := c.handlers[msgType]
	c.mu.Unlock()

	if h == nil {
		// 未注册的类型静默忽略，只留调试日志
		logrus.WithField("type", msgType).Debug("忽略未注册的消息类型")
		return
	}
	logrus.WithFields(logrus.Fields{
		"type": msgType,
		"size": len(data),
	}).Debug("收到消息")
	h(data)
}

// pingLoop 周期性发送 ping 维持连接
func (c *Client) pingLoop(conn *websocket.Conn, gen uint64) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		stale := gen != c.dialGen || c.conn != conn
		c.mu.Unlock()
		if stale {
			return
		}
		c.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
		err := conn.WriteMessage(websocket.PingMessage, nil)
		c.writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

// handleDisconnect 读循环退出后的收尾：更新状态并通知上层
func (c *Client) handleDisconnect(conn *websocket.Conn, gen uint64, err error) {
	c.mu.Lock()
	if gen != c.dialGen || c.conn != conn {
		// 连接已被替换，旧连接的退出不再上报
		c.mu.Unlock()
		return
	}
	intentional := c.intentional
	c.conn = nil
	c.state = StateClosed
	onDisconnect := c.onDisconnect
	c.mu.Unlock()

	conn.Close()
	metrics.SetConnectionState(int(StateClosed))

	if intentional {
		logrus.Info("WebSocket 连接已主动关闭")
	} else if websocket.IsUnexpectedCloseError(err,
		websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		logrus.WithError(err).Warn("WebSocket 连接异常断开")
		metrics.RecordError("unexpected_close")
	} else {
		logrus.WithError(err).Info("WebSocket 连接已关闭")
	}

	if onDisconnect != nil {
		onDisconnect(intentional)
	}
}

// peekType 只解出消息的 type 字段
func peekType(data []byte) string {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Type == "" {
		return "unknown"
	}
	return envelope.Type
}
