package audio

import (
	"testing"
	"time"
)

// fixedClock steps time manually.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time { return c.t }

func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestPlayback(rate int) (*Playback, *fixedClock) {
	p := NewPlayback(rate)
	clock := &fixedClock{t: time.Unix(1000, 0)}
	p.now = clock.now
	return p, clock
}

// pcmMs returns PCM16 mono bytes worth the given duration at rate.
func pcmMs(ms, rate int) []byte {
	return make([]byte, 2*rate*ms/1000)
}

func TestPlaybackStartTransition(t *testing.T) {
	p, _ := newTestPlayback(24000)

	if p.StartIfNeeded() {
		t.Fatal("must not start with nothing queued")
	}

	p.AddChunk(pcmMs(100, 24000))
	if !p.StartIfNeeded() {
		t.Fatal("first start must report the transition")
	}
	if p.StartIfNeeded() {
		t.Fatal("second start must not report a transition")
	}
	if !p.IsPlaying() {
		t.Fatal("should be playing")
	}
}

func TestPlaybackPositionTracksWallClock(t *testing.T) {
	p, clock := newTestPlayback(24000)

	p.AddChunk(pcmMs(3000, 24000))
	p.StartIfNeeded()

	clock.advance(2300 * time.Millisecond)
	if got := p.PositionMs(); got != 2300 {
		t.Errorf("position = %d, want 2300", got)
	}
}

func TestPlaybackPositionClampedToQueuedAudio(t *testing.T) {
	p, clock := newTestPlayback(24000)

	// Only one second of audio arrived, but the clock ran for three.
	p.AddChunk(pcmMs(1000, 24000))
	p.StartIfNeeded()
	clock.advance(3 * time.Second)

	if got := p.PositionMs(); got != 1000 {
		t.Errorf("position = %d, want 1000", got)
	}

	// More audio arrives; the clamp loosens.
	p.AddChunk(pcmMs(1000, 24000))
	if got := p.PositionMs(); got != 2000 {
		t.Errorf("position = %d, want 2000", got)
	}
}

func TestPlaybackPositionZeroWhenIdle(t *testing.T) {
	p, _ := newTestPlayback(24000)
	if got := p.PositionMs(); got != 0 {
		t.Errorf("position = %d", got)
	}
}

func TestPlaybackInterrupt(t *testing.T) {
	p, _ := newTestPlayback(24000)

	stopped := false
	p.OnStop = func() { stopped = true }

	p.AddChunk(pcmMs(500, 24000))
	p.StartIfNeeded()
	p.InterruptNow()

	if p.IsPlaying() {
		t.Error("still playing after interrupt")
	}
	if !stopped {
		t.Error("OnStop not called")
	}
	if got := p.PositionMs(); got != 0 {
		t.Errorf("position = %d after interrupt", got)
	}

	// Queued audio was dropped: a fresh start needs fresh chunks.
	if p.StartIfNeeded() {
		t.Error("started with dropped audio")
	}
}

func TestPlaybackResponseBoundaryResetsAccounting(t *testing.T) {
	p, clock := newTestPlayback(24000)

	p.AddChunk(pcmMs(1000, 24000))
	p.StartIfNeeded()
	clock.advance(time.Second)

	p.OnResponseBoundary()
	if p.IsPlaying() {
		t.Error("playing across response boundary")
	}
	if got := p.PositionMs(); got != 0 {
		t.Errorf("position = %d after boundary", got)
	}
}

func TestPlaybackForwardsToOutput(t *testing.T) {
	p, _ := newTestPlayback(24000)

	var got []byte
	p.Output = func(pcm []byte) { got = append(got, pcm...) }

	p.AddChunk([]byte{1, 2})
	p.AddChunk([]byte{3, 4})
	if len(got) != 4 || got[2] != 3 {
		t.Errorf("output = %v", got)
	}
}
