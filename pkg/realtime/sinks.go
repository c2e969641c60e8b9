package realtime

// AudioSink receives assistant PCM16 audio and tracks playback. The robot's
// speaker path (or a test double) implements this; the dispatcher and the
// interrupt path only ever talk to the interface.
type AudioSink interface {
	// AddChunk queues one PCM16 chunk for the current response.
	AddChunk(pcm []byte)

	// StartIfNeeded begins playback if queued audio exists and playback is
	// not already running. Returns true on the idle-to-playing transition,
	// which is the moment the turn state enters Speaking.
	StartIfNeeded() bool

	// IsPlaying reports whether audio is actively rendering.
	IsPlaying() bool

	// PositionMs estimates how many milliseconds of the current response
	// have actually been rendered. Resets on every response boundary.
	PositionMs() int

	// OnResponseBoundary resets per-response accounting.
	OnResponseBoundary()

	// InterruptNow stops playback immediately and drops queued audio.
	InterruptNow()
}

// TranscriptSink receives user-visible conversation text. The dashboard
// implements this; bubble boundaries are decided by the dispatcher.
type TranscriptSink interface {
	// AddMessage starts a new message bubble.
	AddMessage(role, text string)

	// AppendToLastMessage extends the current bubble.
	AppendToLastMessage(text string)

	// UpdateLastMessage replaces the current bubble's text, used when a
	// final transcript supersedes accumulated deltas.
	UpdateLastMessage(text string)
}

// ToolExecutor runs a named tool with raw JSON arguments. Execute may block
// (the dispatcher calls it off the transport goroutine) and may panic; the
// dispatcher converts panics and errors into structured error results.
type ToolExecutor interface {
	Execute(name, argsJSON string) (string, error)
}

// MotionController stops physical gestures on barge-in. Implemented by the
// robot body layer; a nil controller is allowed.
type MotionController interface {
	StopAll()
}
