package player

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "LinguaTutor/pkg/errors"
)

// fakeClip 可手动推进进度的音频
type fakeClip struct {
	mu       sync.Mutex
	duration time.Duration
	position time.Duration
	playing  bool
	paused   bool
	playErr  error
	onEnded  func()
}

func (c *fakeClip) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playErr != nil {
		return c.playErr
	}
	c.playing = true
	return nil
}

func (c *fakeClip) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
	return nil
}

func (c *fakeClip) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
	return nil
}

func (c *fakeClip) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
	return nil
}

func (c *fakeClip) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

func (c *fakeClip) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *fakeClip) OnEnded(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEnded = fn
}

func (c *fakeClip) seek(pos time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = pos
}

func (c *fakeClip) fireEnded() {
	c.mu.Lock()
	fn := c.onEnded
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// fakeBackend 按 URL 返回预置的音频
type fakeBackend struct {
	mu    sync.Mutex
	clips map[string]*fakeClip
	loads int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{clips: map[string]*fakeClip{}}
}

func (b *fakeBackend) add(url string, clip *fakeClip) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clips[url] = clip
}

func (b *fakeBackend) Load(url string) (Clip, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loads++
	clip, ok := b.clips[url]
	if !ok {
		return nil, errors.New("clip not found")
	}
	return clip, nil
}

func TestToggleStartsAndPauses(t *testing.T) {
	backend := newFakeBackend()
	clip := &fakeClip{duration: 5 * time.Second}
	backend.add("https://cdn/a.mp3", clip)

	p := New(backend)
	require.NoError(t, p.Toggle("a", "https://cdn/a.mp3", nil))
	id, ok := p.Active()
	assert.True(t, ok)
	assert.Equal(t, "a", id)

	// 同一 id 再次 Toggle 是原地暂停
	require.NoError(t, p.Toggle("a", "https://cdn/a.mp3", nil))
	assert.True(t, clip.paused)

	// 再 Toggle 恢复播放
	require.NoError(t, p.Toggle("a", "https://cdn/a.mp3", nil))
	assert.False(t, clip.paused)
	p.Stop()
}

func TestToggleNewClipStopsPrevious(t *testing.T) {
	backend := newFakeBackend()
	first := &fakeClip{duration: 5 * time.Second}
	second := &fakeClip{duration: 5 * time.Second}
	backend.add("https://cdn/a.mp3", first)
	backend.add("https://cdn/b.mp3", second)

	p := New(backend)
	require.NoError(t, p.Toggle("a", "https://cdn/a.mp3", nil))
	require.NoError(t, p.Toggle("b", "https://cdn/b.mp3", nil))

	assert.False(t, first.playing)
	assert.True(t, second.playing)
	id, _ := p.Active()
	assert.Equal(t, "b", id)
	p.Stop()
}

func TestCompletionFiresExactlyOnce(t *testing.T) {
	backend := newFakeBackend()
	clip := &fakeClip{duration: time.Second}
	backend.add("https://cdn/a.mp3", clip)

	var completions int32
	p := New(backend)
	require.NoError(t, p.Toggle("a", "https://cdn/a.mp3", func() {
		atomic.AddInt32(&completions, 1)
	}))

	// 进度推到末尾，同时触发底层结束事件，完成回调只能跑一次
	clip.seek(time.Second)
	clip.fireEnded()
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&completions))
	_, ok := p.Active()
	assert.False(t, ok)
}

func TestAutoplayLockedUntilGesture(t *testing.T) {
	backend := newFakeBackend()
	clip := &fakeClip{duration: time.Second}
	backend.add("https://cdn/a.mp3", clip)

	p := New(backend)
	err := p.Autoplay("a", "https://cdn/a.mp3", nil)
	assert.ErrorIs(t, err, ErrAutoplayLocked)

	p.Unlock()
	require.NoError(t, p.Autoplay("a", "https://cdn/a.mp3", nil))
	assert.True(t, clip.playing)
	p.Stop()
}

func TestPlayErrorClearsState(t *testing.T) {
	backend := newFakeBackend()
	clip := &fakeClip{duration: time.Second, playErr: errors.New("decode failed")}
	backend.add("https://cdn/a.mp3", clip)

	p := New(backend)
	err := p.Toggle("a", "https://cdn/a.mp3", nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodePlaybackFailed))
	_, ok := p.Active()
	assert.False(t, ok)
}

func TestClipHandleCached(t *testing.T) {
	backend := newFakeBackend()
	clip := &fakeClip{duration: time.Second}
	backend.add("https://cdn/a.mp3", clip)

	p := New(backend)
	require.NoError(t, p.Toggle("a", "https://cdn/a.mp3", nil))
	p.Stop()
	require.NoError(t, p.Toggle("a", "https://cdn/a.mp3", nil))
	p.Stop()

	// 第二次播放命中缓存，不再走加载
	assert.Equal(t, 1, backend.loads)
}
