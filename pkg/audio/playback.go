package audio

import (
	"sync"
	"time"

	"github.com/junolabs/go-juno/pkg/debug"
)

// Playback tracks assistant audio playback for one connection. It forwards
// PCM16 chunks to an output (the speaker pipeline, or a test double) and
// keeps the accounting the realtime layer needs: whether anything is
// rendering, and how far into the current response playback has advanced.
//
// Position is estimated as wall-clock time since playback started, clamped
// to the duration of audio actually received. The clamp matters on slow
// networks: the wall clock keeps running through buffer underruns, but the
// user cannot have heard audio that never arrived.
type Playback struct {
	sampleRate int

	// Output receives each chunk as it is queued. May be nil in tests.
	Output func(pcm []byte)

	// OnStop is called when playback is interrupted, so the device layer
	// can flush buffers.
	OnStop func()

	mu          sync.Mutex
	playing     bool
	startedAt   time.Time
	queuedBytes int

	now func() time.Time // injectable clock
}

// NewPlayback returns a Playback for PCM16 mono at the given sample rate.
func NewPlayback(sampleRate int) *Playback {
	if sampleRate == 0 {
		sampleRate = 24000
	}
	return &Playback{sampleRate: sampleRate, now: time.Now}
}

// AddChunk queues one PCM16 chunk for the current response.
func (p *Playback) AddChunk(pcm []byte) {
	p.mu.Lock()
	p.queuedBytes += len(pcm)
	out := p.Output
	p.mu.Unlock()

	if out != nil {
		out(pcm)
	}
}

// StartIfNeeded begins playback if audio is queued and nothing is rendering.
// Returns true only on the idle-to-playing transition.
func (p *Playback) StartIfNeeded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing || p.queuedBytes == 0 {
		return false
	}
	p.playing = true
	p.startedAt = p.now()
	debug.Log("audio: playback started\n")
	return true
}

// IsPlaying reports whether audio is actively rendering.
func (p *Playback) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// PositionMs estimates how many milliseconds of the current response have
// been rendered.
func (p *Playback) PositionMs() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing {
		return 0
	}
	elapsed := int(p.now().Sub(p.startedAt) / time.Millisecond)
	queued := DurationMs(p.queuedBytes, p.sampleRate)
	if elapsed > queued {
		return queued
	}
	return elapsed
}

// OnResponseBoundary resets per-response accounting when a new response
// starts producing audio.
func (p *Playback) OnResponseBoundary() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	p.queuedBytes = 0
}

// InterruptNow stops playback immediately and drops queued audio.
func (p *Playback) InterruptNow() {
	p.mu.Lock()
	wasPlaying := p.playing
	p.playing = false
	p.queuedBytes = 0
	onStop := p.OnStop
	p.mu.Unlock()

	if wasPlaying {
		debug.Log("audio: playback interrupted\n")
	}
	if onStop != nil {
		onStop()
	}
}

// MarkDrained is called by the device layer when its buffers empty out, so
// the turn state can settle after the last chunk renders.
func (p *Playback) MarkDrained() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}
