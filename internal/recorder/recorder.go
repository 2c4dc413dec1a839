package recorder

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "LinguaTutor/pkg/errors"
	"LinguaTutor/pkg/logger"
	"LinguaTutor/pkg/metrics"
)

// 录音参数
const (
	// MinRecordingBytes 有效录音的最小字节数，低于此值视为没有录到声音
	MinRecordingBytes = 100
	// StartCooldown 两次录音之间的最短间隔，防止连击触发重复采集
	StartCooldown = time.Second
)

// PreferredFormats 编码格式优先级，从设备支持的格式中按此顺序选取
var PreferredFormats = []string{
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/mp4",
	"audio/ogg;codecs=opus",
	"audio/wav",
}

// CaptureStream 一次进行中的采集，Chunks 在流关闭后会被关闭
type CaptureStream interface {
	Chunks() <-chan []byte
	Close() error
}

// CaptureDevice 录音设备抽象
type CaptureDevice interface {
	// SupportedFormats 返回设备支持的编码格式
	SupportedFormats() []string
	// Open 按指定格式开始采集，权限不足时返回错误
	Open(ctx context.Context, format string) (CaptureStream, error)
}

// Result 一次完成的录音
type Result struct {
	Buffer string // base64 编码的音频数据
	Format string
	Size   int // 原始字节数
}

// Recorder 管理单路录音的状态机：idle → capturing → idle。
// 同一时间只允许一次采集，所有退出路径都会释放设备。
type Recorder struct {
	device CaptureDevice

	mu        sync.Mutex
	capturing bool
	lastStart time.Time
	lastEnd   time.Time // 上一次录音结束时间，冷却从这里起算
	format    string
	stream    CaptureStream
	done      chan struct{} // 采集 goroutine 退出信号
	chunks    [][]byte
}

// New 创建录音器
func New(device CaptureDevice) *Recorder {
	return &Recorder{device: device}
}

// Capturing 是否正在录音
func (r *Recorder) Capturing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capturing
}

// Elapsed 当前录音已持续的时长，供界面上的秒表展示。未在录音时返回 0。
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.capturing {
		return 0
	}
	return time.Since(r.lastStart).Truncate(time.Second)
}

// Start 开始录音。正在录音时返回 CodeRecordingBusy，距上次录音
// 结束不足冷却时间时返回 CodeRecordingTooFast。
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.capturing {
		r.mu.Unlock()
		return apperrors.WithCode(apperrors.CodeRecordingBusy, "recording already in progress")
	}
	if since := time.Since(r.lastEnd); !r.lastEnd.IsZero() && since < StartCooldown {
		r.mu.Unlock()
		metrics.RecordRecording("throttled")
		return apperrors.WithCodef(apperrors.CodeRecordingTooFast,
			"recording started too soon, wait %v", StartCooldown-since)
	}
	r.mu.Unlock()

	format := pickFormat(r.device.SupportedFormats())
	stream, err := r.device.Open(ctx, format)
	if err != nil {
		metrics.RecordRecording("open_failed")
		return apperrors.WrapCode(apperrors.CodeMicPermission, err, "open capture device")
	}

	done := make(chan struct{})
	r.mu.Lock()
	r.capturing = true
	r.lastStart = time.Now()
	r.format = format
	r.stream = stream
	r.done = done
	r.chunks = nil
	r.mu.Unlock()

	logger.Info("开始录音", zap.String("format", format))
	go r.collect(stream, done)
	return nil
}

// collect 持续收取采集到的数据块，直到流被关闭
func (r *Recorder) collect(stream CaptureStream, done chan struct{}) {
	defer close(done)
	for chunk := range stream.Chunks() {
		if len(chunk) == 0 {
			// 空块直接丢弃
			continue
		}
		r.mu.Lock()
		r.chunks = append(r.chunks, chunk)
		r.mu.Unlock()
	}
}

// Stop 结束录音。cancel 为 true 时丢弃已采集的数据；否则校验
// 数据量并返回 base64 编码的结果。
func (r *Recorder) Stop(cancel bool) (*Result, error) {
	r.mu.Lock()
	if !r.capturing {
		r.mu.Unlock()
		return nil, apperrors.WithCode(apperrors.CodeRecordingBusy, "no recording in progress")
	}
	stream := r.stream
	done := r.done
	r.mu.Unlock()

	stream.Close()
	<-done // 等采集 goroutine 把剩余数据块收完

	r.mu.Lock()
	r.capturing = false
	r.lastEnd = time.Now()
	r.stream = nil
	r.done = nil
	chunks := r.chunks
	r.chunks = nil
	format := r.format
	r.mu.Unlock()

	if cancel {
		logger.Info("录音已取消")
		metrics.RecordRecording("cancelled")
		return nil, nil
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if len(chunks) == 0 || total < MinRecordingBytes {
		logger.Warn("录音数据太少，已丢弃", zap.Int("bytes", total))
		metrics.RecordRecording("too_short")
		return nil, apperrors.WithCode(apperrors.CodeNoAudioCaptured, "no audio captured")
	}

	raw := make([]byte, 0, total)
	for _, c := range chunks {
		raw = append(raw, c...)
	}
	logger.Info("录音完成", zap.Int("bytes", total), zap.String("format", format))
	metrics.RecordRecording("completed")
	return &Result{
		Buffer: base64.StdEncoding.EncodeToString(raw),
		Format: format,
		Size:   total,
	}, nil
}

// pickFormat 按优先级挑选设备支持的编码格式
func pickFormat(supported []string) string {
	set := make(map[string]bool, len(supported))
	for _, f := range supported {
		set[f] = true
	}
	for _, f := range PreferredFormats {
		if set[f] {
			return f
		}
	}
	if len(supported) > 0 {
		return supported[0]
	}
	return PreferredFormats[0]
}
