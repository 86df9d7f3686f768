// Package playback plays the score's MP3 recording and reports its position.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"

	"score-viewer/internal/logger"
)

const (
	// go-mp3 always decodes to 16-bit little endian stereo.
	channelCount   = 2
	bytesPerSample = 2
	bytesPerFrame  = channelCount * bytesPerSample

	bufferDuration = 100 * time.Millisecond
)

var (
	ErrClosed             = errors.New("player closed")
	ErrSampleRateMismatch = errors.New("sample rate differs from the open audio device")
)

// Player is what the viewer needs from an audio backend.
type Player interface {
	Play()
	Pause()
	IsPlaying() bool
	// Position is the elapsed playback time as heard, not as decoded.
	Position() time.Duration
	Duration() time.Duration
	// SeekAndPlay jumps to ms milliseconds and starts playing.
	SeekAndPlay(ms int64) error
	Close() error
}

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

func audioContext(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channelCount,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   bufferDuration,
		})
		if otoErr != nil {
			return
		}
		otoRate = sampleRate
		<-ready
	})
	if otoErr != nil {
		return nil, fmt.Errorf("open audio device: %w", otoErr)
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("%w: file %d Hz, device %d Hz", ErrSampleRateMismatch, sampleRate, otoRate)
	}
	return otoCtx, nil
}

// countingStream tracks how many PCM bytes the device has pulled.
type countingStream struct {
	mu  sync.Mutex
	src io.ReadSeeker
	pos int64
}

func (s *countingStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.src.Read(p)
	s.pos += int64(n)
	return n, err
}

func (s *countingStream) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, err := s.src.Seek(offset, whence)
	if err != nil {
		return s.pos, err
	}
	s.pos = pos
	return pos, nil
}

func (s *countingStream) offset() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// OtoPlayer decodes an MP3 file with go-mp3 and plays it through oto.
type OtoPlayer struct {
	mu         sync.Mutex
	file       *os.File
	stream     *countingStream
	player     *oto.Player
	sampleRate int
	length     int64
	log        logger.Logger
}

// OpenMP3 prepares path for playback without starting it.
func OpenMP3(path string, log logger.Logger) (*OtoPlayer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	ctx, err := audioContext(dec.SampleRate())
	if err != nil {
		f.Close()
		return nil, err
	}

	stream := &countingStream{src: dec}
	p := &OtoPlayer{
		file:       f,
		stream:     stream,
		player:     ctx.NewPlayer(stream),
		sampleRate: dec.SampleRate(),
		length:     dec.Length(),
		log:        log,
	}
	log.Info("audio opened", map[string]interface{}{
		"path":        path,
		"sample_rate": p.sampleRate,
		"duration":    p.Duration().String(),
	})
	return p, nil
}

func (p *OtoPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player != nil {
		p.player.Play()
	}
}

func (p *OtoPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player != nil {
		p.player.Pause()
	}
}

func (p *OtoPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.player != nil && p.player.IsPlaying()
}

func (p *OtoPlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil {
		return 0
	}
	return heardPosition(p.stream.offset(), int64(p.player.BufferedSize()), p.sampleRate)
}

func (p *OtoPlayer) Duration() time.Duration {
	return bytesToDuration(p.length, p.sampleRate)
}

func (p *OtoPlayer) SeekAndPlay(ms int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil {
		return ErrClosed
	}

	offset := millisToOffset(ms, p.sampleRate, p.length)
	if _, err := p.player.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to %dms: %w", ms, err)
	}
	p.player.Play()

	p.log.Debug("seek", map[string]interface{}{
		"ms":     ms,
		"offset": offset,
	})
	return nil
}

func (p *OtoPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil {
		return nil
	}

	err := p.player.Close()
	if cerr := p.file.Close(); err == nil {
		err = cerr
	}
	p.player = nil
	return err
}

// Shutdown lets the player be registered with the shutdown manager.
func (p *OtoPlayer) Shutdown() {
	if err := p.Close(); err != nil {
		p.log.Error("audio close failed", err, nil)
	}
}

// heardPosition subtracts what is still queued in the device from what has
// been decoded.
func heardPosition(decoded, buffered int64, sampleRate int) time.Duration {
	played := decoded - buffered
	if played < 0 {
		played = 0
	}
	return bytesToDuration(played, sampleRate)
}

func bytesToDuration(n int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	frames := n / bytesPerFrame
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// millisToOffset converts a time to a frame aligned byte offset clamped to
// [0, length].
func millisToOffset(ms int64, sampleRate int, length int64) int64 {
	if ms <= 0 {
		return 0
	}
	offset := ms * int64(sampleRate) / 1000 * bytesPerFrame
	if length > 0 && offset > length {
		offset = length - length%bytesPerFrame
	}
	return offset
}

// Watch calls fn with the position in seconds every interval while p is
// playing and the position has moved. It returns when ctx is done.
func Watch(ctx context.Context, p Player, interval time.Duration, fn func(seconds float64)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Duration(-1)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.IsPlaying() {
				continue
			}
			pos := p.Position()
			if pos == last {
				continue
			}
			last = pos
			fn(pos.Seconds())
		}
	}
}
