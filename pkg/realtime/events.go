package realtime

import "encoding/json"

// Kind identifies a normalized event produced by the Decoder.
type Kind string

const (
	// Session lifecycle
	KindSessionCreated Kind = "session_created"
	KindSessionUpdated Kind = "session_updated"
	KindSetupComplete  Kind = "setup_complete" // Google only

	// Response lifecycle
	KindResponseCreated Kind = "response_created"
	KindResponseDone    Kind = "response_done"

	// Assistant output
	KindAudioDelta       Kind = "audio_delta"
	KindAudioDone        Kind = "audio_done"
	KindTranscriptDelta  Kind = "transcript_delta"
	KindTranscriptDone   Kind = "transcript_done"
	KindModelTurnStarted Kind = "model_turn_started" // Google only, once per response

	// User input
	KindUserSpeechStarted       Kind = "user_speech_started"
	KindUserSpeechStopped       Kind = "user_speech_stopped"
	KindInputCommitted          Kind = "input_committed"
	KindItemCreated             Kind = "item_created"
	KindUserTranscriptDelta     Kind = "user_transcript_delta"
	KindUserTranscriptCompleted Kind = "user_transcript_completed"
	KindUserTranscriptFailed    Kind = "user_transcript_failed"

	// Tools
	KindToolCallRequested Kind = "tool_call_requested"
	KindToolCallCancelled Kind = "tool_call_cancelled" // Google only

	// Control
	KindInterrupted Kind = "interrupted" // Google barge-in signal
	KindError       Kind = "error"
	KindUnknown     Kind = "unknown"
)

// Event is the normalized form of one provider wire message. Only the fields
// relevant to the Kind are populated. Events are consumed once by the
// Dispatcher and not retained.
type Event struct {
	Kind Kind

	// ResponseID correlates output events to the response that produced
	// them. Events for a cancelled response id are dropped downstream.
	ResponseID string

	// ItemID identifies the conversation item (user input buffer item or
	// assistant audio item, depending on Kind).
	ItemID string

	// Text carries transcript deltas and completed transcripts.
	Text string

	// Audio is decoded PCM16 for KindAudioDelta.
	Audio []byte

	// OutputItems lists the completed response's output for KindResponseDone.
	OutputItems []OutputItem

	// Call is set for KindToolCallRequested.
	Call *ToolCall

	// CancelledCallIDs is set for KindToolCallCancelled.
	CancelledCallIDs []string

	// Code and Message are set for KindError.
	Code    string
	Message string

	// Raw preserves the original payload for KindUnknown.
	Raw json.RawMessage
}

// OutputItem is one entry of a completed response's output array.
type OutputItem struct {
	Type      string // "message" or "function_call"
	ID        string
	Name      string // function name for function_call items
	CallID    string
	Arguments string // raw JSON arguments for function_call items
}

// ToolCall is a model-requested function invocation. The result must be sent
// back with the same CallID.
type ToolCall struct {
	CallID    string
	Name      string
	Arguments string // raw JSON
}

// ToolDef describes a tool in the internal format. Session translates it
// into each provider's declaration schema at configuration time.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]any

	// NonBlocking marks tools whose result must not trigger an automatic
	// follow-up response (Google: behavior NON_BLOCKING).
	NonBlocking bool
}
