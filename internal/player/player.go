package player

import (
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	apperrors "LinguaTutor/pkg/errors"
	"LinguaTutor/pkg/logger"
	"LinguaTutor/pkg/metrics"
)

const (
	// progressInterval 播放进度轮询间隔
	progressInterval = 100 * time.Millisecond
	// completionEpsilon 进度达到时长减去该值即视为播放完成
	completionEpsilon = 250 * time.Millisecond
	// defaultCacheSize 音频句柄缓存容量
	defaultCacheSize = 32
)

// ErrAutoplayLocked 尚未获得用户手势授权时自动播放被拒绝
var ErrAutoplayLocked = errors.New("autoplay is locked until a user gesture unlocks it")

// Clip 一段已加载的音频
type Clip interface {
	Play() error
	Pause() error
	Resume() error
	Stop() error
	Duration() time.Duration
	Position() time.Duration
	// OnEnded 注册底层播放结束事件，可能与进度轮询重复触发
	OnEnded(fn func())
}

// Backend 音频加载后端
type Backend interface {
	Load(url string) (Clip, error)
}

// Player plays at most one clip at a time. Completion is signalled by
// whichever fires first of the progress poll and the backend's native
// ended event; a per-play latch guarantees the callback runs once.
type Player struct {
	backend Backend
	cache   *lru.Cache[string, Clip]

	mu       sync.Mutex
	activeID string
	active   Clip
	paused   bool
	latch    *sync.Once    // 当前这一次播放的完成闩
	stopPoll chan struct{} // 关闭后进度轮询退出
	unlocked bool          // 是否已获得自动播放授权
	elapsed  time.Duration

	onProgress func(id string, elapsed, duration time.Duration)
}

// New 创建播放器
func New(backend Backend) *Player {
	cache, _ := lru.New[string, Clip](defaultCacheSize)
	return &Player{backend: backend, cache: cache}
}

// OnProgress 注册进度回调，随轮询更新
func (p *Player) OnProgress(fn func(id string, elapsed, duration time.Duration)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onProgress = fn
}

// Unlock 记录一次用户手势授权，此后允许自动播放
func (p *Player) Unlock() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unlocked = true
}

// Unlocked 是否已获得自动播放授权
func (p *Player) Unlocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unlocked
}

// Elapsed 当前音频已播放的时长
func (p *Player) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elapsed
}

// Active 返回当前活动的音频 ID，没有时返回空串
func (p *Player) Active() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeID, p.active != nil
}

// Toggle 播放或暂停。请求的 id 正在播放时原地暂停/恢复；否则
// 先停掉当前音频再播放新的。onEnd 在播放完成时恰好调用一次。
func (p *Player) Toggle(id, url string, onEnd func()) error {
	p.mu.Lock()
	if p.activeID == id && p.active != nil {
		clip := p.active
		if p.paused {
			p.paused = false
			p.mu.Unlock()
			if err := clip.Resume(); err != nil {
				return p.fail(id, err)
			}
			return nil
		}
		p.paused = true
		p.mu.Unlock()
		if err := clip.Pause(); err != nil {
			return p.fail(id, err)
		}
		return nil
	}
	p.stopLocked()
	p.mu.Unlock()
	return p.start(id, url, onEnd)
}

// Autoplay 阶段进入时的自动播放，未解锁时返回 ErrAutoplayLocked，
// 调用方应降级为手动点击播放。
func (p *Player) Autoplay(id, url string, onEnd func()) error {
	p.mu.Lock()
	if !p.unlocked {
		p.mu.Unlock()
		logger.Debug("自动播放未解锁，等待手动触发", zap.String("id", id))
		return ErrAutoplayLocked
	}
	p.stopLocked()
	p.mu.Unlock()
	return p.start(id, url, onEnd)
}

// Stop 停止当前播放并清空状态
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// start 加载并播放一段新的音频
func (p *Player) start(id, url string, onEnd func()) error {
	clip, ok := p.cache.Get(url)
	if !ok {
		loaded, err := p.backend.Load(url)
		if err != nil {
			return p.fail(id, err)
		}
		clip = loaded
		p.cache.Add(url, clip)
	}

	latch := &sync.Once{}
	stopPoll := make(chan struct{})
	complete := func() {
		latch.Do(func() {
			p.mu.Lock()
			if p.activeID == id {
				p.stopPollLocked()
				p.activeID = ""
				p.active = nil
				p.paused = false
			}
			p.mu.Unlock()
			metrics.RecordPlayback("completed", clip.Duration())
			if onEnd != nil {
				onEnd()
			}
		})
	}
	clip.OnEnded(complete)

	p.mu.Lock()
	p.activeID = id
	p.active = clip
	p.paused = false
	p.latch = latch
	p.stopPoll = stopPoll
	p.elapsed = 0
	p.mu.Unlock()

	if err := clip.Play(); err != nil {
		return p.fail(id, err)
	}
	logger.Debug("开始播放", zap.String("id", id), zap.String("url", url))
	go p.poll(id, clip, stopPoll, complete)
	return nil
}

// poll 周期性读取播放进度，接近时长时触发完成
func (p *Player) poll(id string, clip Clip, stop chan struct{}, complete func()) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			active := p.activeID == id
			paused := p.paused
			p.mu.Unlock()
			if !active {
				return
			}
			if paused {
				continue
			}
			elapsed := clip.Position()
			duration := clip.Duration()
			p.mu.Lock()
			p.elapsed = elapsed
			onProgress := p.onProgress
			p.mu.Unlock()

			if onProgress != nil {
				onProgress(id, elapsed, duration)
			}
			if duration > 0 && elapsed >= duration-completionEpsilon {
				complete()
				return
			}
		}
	}
}

// fail 播放失败后的收尾：清状态、记指标、返回带码错误
func (p *Player) fail(id string, err error) error {
	p.mu.Lock()
	if p.activeID == id {
		p.stopPollLocked()
		p.activeID = ""
		p.active = nil
		p.paused = false
	}
	p.mu.Unlock()
	logger.Warn("播放失败", zap.String("id", id), zap.Error(err))
	metrics.RecordPlayback("failed", 0)
	return apperrors.WrapCode(apperrors.CodePlaybackFailed, err, "play audio clip")
}

// stopLocked 停止当前音频，调用方需持有锁
func (p *Player) stopLocked() {
	if p.active != nil {
		p.active.Stop()
	}
	p.stopPollLocked()
	p.activeID = ""
	p.active = nil
	p.paused = false
}

// stopPollLocked 结束进度轮询，调用方需持有锁
func (p *Player) stopPollLocked() {
	if p.stopPoll != nil {
		close(p.stopPoll)
		p.stopPoll = nil
	}
}
