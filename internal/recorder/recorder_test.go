package recorder

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "LinguaTutor/pkg/errors"
)

// fakeStream 预置数据块的采集流
type fakeStream struct {
	ch     chan []byte
	closed bool
}

func newFakeStream(chunks ...[]byte) *fakeStream {
	ch := make(chan []byte, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	return &fakeStream{ch: ch}
}

func (s *fakeStream) Chunks() <-chan []byte { return s.ch }

func (s *fakeStream) Close() error {
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

// fakeDevice 可配置的录音设备
type fakeDevice struct {
	formats []string
	stream  *fakeStream
	openErr error
	opened  string
}

func (d *fakeDevice) SupportedFormats() []string { return d.formats }

func (d *fakeDevice) Open(_ context.Context, format string) (CaptureStream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.opened = format
	return d.stream, nil
}

func TestStartStopProducesBase64(t *testing.T) {
	chunk := bytes.Repeat([]byte{0xAB}, 120)
	device := &fakeDevice{
		formats: []string{"audio/webm"},
		stream:  newFakeStream(chunk),
	}
	rec := New(device)
	require.NoError(t, rec.Start(context.Background()))
	assert.True(t, rec.Capturing())

	result, err := rec.Stop(false)
	require.NoError(t, err)
	assert.False(t, rec.Capturing())
	assert.Equal(t, "audio/webm", result.Format)
	assert.Equal(t, 120, result.Size)

	decoded, err := base64.StdEncoding.DecodeString(result.Buffer)
	require.NoError(t, err)
	assert.Equal(t, chunk, decoded)
}

func TestStartWhileCapturing(t *testing.T) {
	device := &fakeDevice{formats: []string{"audio/webm"}, stream: newFakeStream()}
	rec := New(device)
	require.NoError(t, rec.Start(context.Background()))

	err := rec.Start(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeRecordingBusy))
	rec.Stop(true)
}

func TestStartCooldown(t *testing.T) {
	device := &fakeDevice{formats: []string{"audio/webm"}, stream: newFakeStream()}
	rec := New(device)
	require.NoError(t, rec.Start(context.Background()))
	_, err := rec.Stop(true)
	require.NoError(t, err)

	device.stream = newFakeStream()
	err = rec.Start(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeRecordingTooFast))

	// 冷却期过后可以再次开始
	rec.mu.Lock()
	rec.lastEnd = time.Now().Add(-2 * StartCooldown)
	rec.mu.Unlock()
	assert.NoError(t, rec.Start(context.Background()))
	rec.Stop(true)
}

func TestCooldownMeasuredFromStop(t *testing.T) {
	// 冷却从上一次录音结束起算：一段长录音结束后立刻再开仍被挡，
	// 而距离它的开始时间早已超过冷却窗口
	device := &fakeDevice{formats: []string{"audio/webm"}, stream: newFakeStream()}
	rec := New(device)
	require.NoError(t, rec.Start(context.Background()))

	rec.mu.Lock()
	rec.lastStart = time.Now().Add(-10 * StartCooldown)
	rec.mu.Unlock()

	_, err := rec.Stop(true)
	require.NoError(t, err)

	device.stream = newFakeStream()
	err = rec.Start(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeRecordingTooFast))
}

func TestElapsedOnlyWhileCapturing(t *testing.T) {
	device := &fakeDevice{formats: []string{"audio/webm"}, stream: newFakeStream()}
	rec := New(device)
	assert.Zero(t, rec.Elapsed())

	require.NoError(t, rec.Start(context.Background()))
	assert.GreaterOrEqual(t, rec.Elapsed(), time.Duration(0))
	rec.Stop(true)
	assert.Zero(t, rec.Elapsed())
}

func TestStopTooShort(t *testing.T) {
	device := &fakeDevice{
		formats: []string{"audio/webm"},
		stream:  newFakeStream([]byte("tiny")),
	}
	rec := New(device)
	require.NoError(t, rec.Start(context.Background()))

	_, err := rec.Stop(false)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNoAudioCaptured))
	assert.False(t, rec.Capturing())
}

func TestStopEmptyChunksDropped(t *testing.T) {
	// 只有空块等同于没有录到声音
	device := &fakeDevice{
		formats: []string{"audio/webm"},
		stream:  newFakeStream([]byte{}, []byte{}),
	}
	rec := New(device)
	require.NoError(t, rec.Start(context.Background()))

	_, err := rec.Stop(false)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNoAudioCaptured))
}

func TestStopCancelDiscards(t *testing.T) {
	device := &fakeDevice{
		formats: []string{"audio/webm"},
		stream:  newFakeStream(bytes.Repeat([]byte{1}, 200)),
	}
	rec := New(device)
	require.NoError(t, rec.Start(context.Background()))

	result, err := rec.Stop(true)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.False(t, rec.Capturing())
}

func TestOpenErrorMapsToMicPermission(t *testing.T) {
	device := &fakeDevice{
		formats: []string{"audio/webm"},
		openErr: errors.New("permission denied"),
	}
	rec := New(device)
	err := rec.Start(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeMicPermission))
	assert.False(t, rec.Capturing())
}

func TestPickFormatPreference(t *testing.T) {
	assert.Equal(t, "audio/webm;codecs=opus",
		pickFormat([]string{"audio/wav", "audio/webm;codecs=opus"}))
	assert.Equal(t, "audio/mp4", pickFormat([]string{"audio/mp4"}))
	// 设备格式不在优先级表里时取第一个
	assert.Equal(t, "audio/flac", pickFormat([]string{"audio/flac"}))
	// 设备没报任何格式时兜底
	assert.Equal(t, PreferredFormats[0], pickFormat(nil))
}
