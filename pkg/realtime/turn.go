package realtime

import (
	"sync"

	"github.com/junolabs/go-juno/pkg/debug"
)

// TurnState is the conversational phase.
type TurnState int

const (
	// TurnListening is the resting state: waiting for user speech.
	TurnListening TurnState = iota

	// TurnThinking means the server has committed an input buffer and is
	// producing a response.
	TurnThinking

	// TurnSpeaking means assistant audio is actually rendering, not merely
	// queued.
	TurnSpeaking
)

func (s TurnState) String() string {
	switch s {
	case TurnListening:
		return "listening"
	case TurnThinking:
		return "thinking"
	case TurnSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// TurnTracker enforces valid turn transitions. Speaking is entered on actual
// playback start rather than chunk arrival, which keeps network jitter from
// flapping the state; interruption bypasses completion entirely via Reset.
type TurnTracker struct {
	mu    sync.Mutex
	state TurnState

	// OnChange observes committed transitions.
	OnChange func(from, to TurnState)
}

// NewTurnTracker starts in TurnListening.
func NewTurnTracker() *TurnTracker {
	return &TurnTracker{state: TurnListening}
}

// State returns the current turn state.
func (t *TurnTracker) State() TurnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// InputCommitted moves Listening -> Thinking when the server accepts an
// audio input buffer.
func (t *TurnTracker) InputCommitted() {
	t.transition(TurnThinking, func(cur TurnState) bool {
		return cur == TurnListening
	})
}

// PlaybackStarted moves to Speaking once the audio sink reports that
// rendering has begun. Valid from Thinking or Listening (text-initiated
// responses never pass through Thinking).
func (t *TurnTracker) PlaybackStarted() {
	t.transition(TurnSpeaking, func(cur TurnState) bool {
		return cur == TurnThinking || cur == TurnListening
	})
}

// ResponseSettled returns to Listening when a response has completed and the
// sink reports nothing queued or playing.
func (t *TurnTracker) ResponseSettled(stillPlaying bool) {
	if stillPlaying {
		return
	}
	t.transition(TurnListening, func(cur TurnState) bool {
		return cur == TurnSpeaking || cur == TurnThinking
	})
}

// Reset forces Listening immediately. Used by the interrupt path, which
// never sees normal completion events.
func (t *TurnTracker) Reset() {
	t.transition(TurnListening, func(cur TurnState) bool {
		return cur != TurnListening
	})
}

func (t *TurnTracker) transition(to TurnState, valid func(TurnState) bool) {
	t.mu.Lock()
	from := t.state
	if !valid(from) {
		t.mu.Unlock()
		if from != to {
			debug.Log("turn: ignored %s -> %s\n", from, to)
		}
		return
	}
	t.state = to
	onChange := t.OnChange
	t.mu.Unlock()

	debug.Log("turn: %s -> %s\n", from, to)
	if onChange != nil {
		onChange(from, to)
	}
}
