package realtime

import (
	"fmt"
	"sync"

	"github.com/junolabs/go-juno/internal/log"
	"github.com/junolabs/go-juno/pkg/debug"
)

// Dispatcher routes normalized events to the audio, transcript, tool, and
// turn layers. All routing state lives behind one mutex; events arrive on the
// transport goroutine and tool results on their own goroutines.
//
// Events carrying the id of a cancelled response are dropped before any side
// effect. Interruption marks the id, and everything still in flight for that
// response (audio chunks, transcript deltas, the final response.done) is
// stale the moment the user barges in.
type Dispatcher struct {
	dec     *Decoder
	enc     *Encoder
	send    func([]byte) bool
	session *Session

	Turns      *TurnTracker
	Audio      AudioSink
	Transcript TranscriptSink
	Tools      ToolExecutor
	Motion     MotionController

	// OnError receives non-benign server errors.
	OnError func(err error)

	mu sync.Mutex

	// currentResponseID is the response currently producing output.
	currentResponseID string

	// cancelledResponseID is the most recently interrupted response; events
	// tagged with it are dropped until a new response starts.
	cancelledResponseID string

	// currentItemID is the assistant audio item eligible for truncation.
	// Cleared after an interrupt so a second interrupt cannot truncate twice.
	currentItemID string

	// generating is true between response start and response done.
	generating bool

	// Transcript bubble bookkeeping. A new assistant bubble starts when a
	// tool call intervened, the response id changed, or the last bubble
	// belongs to the user.
	lastRole           string
	lastAssistantResp  string
	toolCallSinceDelta bool

	// dispatchedCalls dedupes tool invocations that arrive both as a
	// streamed arguments-done event and inside response.done output.
	dispatchedCalls map[string]bool
}

// NewDispatcher wires a dispatcher to its codec, session, and send path.
// Sinks are assigned by the caller before the first event arrives.
func NewDispatcher(dec *Decoder, enc *Encoder, session *Session, send func([]byte) bool) *Dispatcher {
	return &Dispatcher{
		dec:             dec,
		enc:             enc,
		session:         session,
		send:            send,
		Turns:           NewTurnTracker(),
		dispatchedCalls: make(map[string]bool),
	}
}

// HandleRaw decodes one wire message and dispatches the resulting events.
// This is the transport's OnMessage callback.
func (d *Dispatcher) HandleRaw(raw []byte) {
	for _, ev := range d.dec.Decode(raw) {
		d.Handle(ev)
	}
}

// Handle routes one normalized event.
func (d *Dispatcher) Handle(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dropCancelledLocked(ev) {
		return
	}
	d.trackResponseLocked(ev)

	switch ev.Kind {
	case KindSessionCreated, KindSessionUpdated, KindSetupComplete:
		d.session.HandleEvent(ev)

	case KindResponseCreated:
		// trackResponseLocked already opened the response.

	case KindAudioDelta:
		if ev.ItemID != "" {
			d.currentItemID = ev.ItemID
		}
		if d.Audio != nil {
			d.Audio.AddChunk(ev.Audio)
			if d.Audio.StartIfNeeded() {
				d.Turns.PlaybackStarted()
			}
		}

	case KindAudioDone:
		debug.Log("dispatch: audio done for response %s\n", ev.ResponseID)

	case KindTranscriptDelta:
		d.assistantDeltaLocked(ev)

	case KindTranscriptDone:
		d.assistantFinalLocked(ev)

	case KindModelTurnStarted:
		debug.Log("dispatch: model turn %s started\n", ev.ResponseID)

	case KindUserSpeechStarted:
		// Barge-in: the user started talking over active playback.
		if d.Audio != nil && d.Audio.IsPlaying() {
			d.interruptLocked()
		}

	case KindUserSpeechStopped:
		debug.Log("dispatch: user speech stopped\n")

	case KindInputCommitted:
		d.Turns.InputCommitted()

	case KindItemCreated:
		debug.Log("dispatch: item created %s\n", ev.ItemID)

	case KindUserTranscriptDelta:
		d.userDeltaLocked(ev)

	case KindUserTranscriptCompleted:
		d.userFinalLocked(ev)

	case KindUserTranscriptFailed:
		log.Warn("realtime: user transcription failed", "err", ev.Message)

	case KindToolCallRequested:
		d.dispatchToolLocked(*ev.Call)

	case KindToolCallCancelled:
		log.Info("realtime: tool calls cancelled by server", "ids", ev.CancelledCallIDs)

	case KindResponseDone:
		d.responseDoneLocked(ev)

	case KindInterrupted:
		// Server-side barge-in (Google). The server already stopped
		// generating; mirror it locally.
		d.interruptLocked()

	case KindError:
		d.serverErrorLocked(ev)

	case KindUnknown:
		debug.WireLog("dispatch: unhandled message: %s\n", ev.Raw)
	}
}

// dropCancelledLocked filters events belonging to an interrupted response.
// The final response.done of a cancelled response still clears the
// generating flag before being dropped.
func (d *Dispatcher) dropCancelledLocked(ev Event) bool {
	if ev.ResponseID == "" || ev.ResponseID != d.cancelledResponseID {
		return false
	}
	if ev.Kind == KindResponseDone {
		d.generating = false
	}
	debug.Log("dispatch: dropped %s for cancelled response %s\n", ev.Kind, ev.ResponseID)
	return true
}

// trackResponseLocked opens a new response when an event carries an unseen
// response id. Works for both explicit response.created and Google turns,
// which announce themselves only through their first output event.
func (d *Dispatcher) trackResponseLocked(ev Event) {
	if ev.ResponseID == "" || ev.ResponseID == d.currentResponseID {
		return
	}
	d.currentResponseID = ev.ResponseID
	d.generating = true
	d.dispatchedCalls = make(map[string]bool)
	// Playback accounting restarts at zero here, so any truncation target
	// from the previous response is stale.
	d.currentItemID = ""
	if d.Audio != nil {
		d.Audio.OnResponseBoundary()
	}
	debug.Log("dispatch: response %s started\n", ev.ResponseID)
}

func (d *Dispatcher) assistantDeltaLocked(ev Event) {
	if d.Transcript == nil {
		return
	}
	newBubble := d.toolCallSinceDelta ||
		ev.ResponseID != d.lastAssistantResp ||
		d.lastRole != "assistant"
	if newBubble {
		d.Transcript.AddMessage("assistant", ev.Text)
	} else {
		d.Transcript.AppendToLastMessage(ev.Text)
	}
	d.lastRole = "assistant"
	d.lastAssistantResp = ev.ResponseID
	d.toolCallSinceDelta = false
}

// assistantFinalLocked replaces accumulated deltas with the authoritative
// transcript, or creates the bubble when no deltas arrived at all.
func (d *Dispatcher) assistantFinalLocked(ev Event) {
	if d.Transcript == nil || ev.Text == "" {
		return
	}
	if d.lastRole == "assistant" && ev.ResponseID == d.lastAssistantResp {
		d.Transcript.UpdateLastMessage(ev.Text)
	} else {
		d.Transcript.AddMessage("assistant", ev.Text)
		d.lastRole = "assistant"
		d.lastAssistantResp = ev.ResponseID
	}
}

func (d *Dispatcher) userDeltaLocked(ev Event) {
	if d.Transcript == nil {
		return
	}
	if d.lastRole != "user" {
		d.Transcript.AddMessage("user", ev.Text)
	} else {
		d.Transcript.AppendToLastMessage(ev.Text)
	}
	d.lastRole = "user"
}

func (d *Dispatcher) userFinalLocked(ev Event) {
	if d.Transcript == nil || ev.Text == "" {
		return
	}
	if d.lastRole == "user" {
		d.Transcript.UpdateLastMessage(ev.Text)
	} else {
		d.Transcript.AddMessage("user", ev.Text)
		d.lastRole = "user"
	}
}

// dispatchToolLocked starts a tool invocation on its own goroutine, once per
// call id. The caller holds d.mu.
func (d *Dispatcher) dispatchToolLocked(call ToolCall) {
	if call.CallID != "" && d.dispatchedCalls[call.CallID] {
		return
	}
	d.dispatchedCalls[call.CallID] = true
	d.toolCallSinceDelta = true

	if d.Tools == nil {
		log.Warn("realtime: tool call with no executor", "tool", call.Name)
		return
	}
	go d.runTool(call)
}

// runTool executes a tool and sends its result back, correlated by call id.
// Panics and errors both become structured error results rather than taking
// down the transport or leaving the model waiting forever.
func (d *Dispatcher) runTool(call ToolCall) {
	result := d.executeTool(call)

	if msg := d.enc.ToolResult(call.CallID, result); msg != nil {
		d.send(msg)
	}
	// The OpenAI family needs an explicit nudge to speak about the result;
	// Google continues the turn on its own.
	if msg := d.enc.CreateResponse(); msg != nil {
		d.send(msg)
	}
}

func (d *Dispatcher) executeTool(call ToolCall) (result string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("realtime: tool panicked", "tool", call.Name, "panic", fmt.Sprint(r))
			result = mustJSONString(map[string]string{"error": fmt.Sprintf("tool %s panicked: %v", call.Name, r)})
		}
	}()

	log.Info("realtime: executing tool", "tool", call.Name, "call_id", call.CallID)
	out, err := d.Tools.Execute(call.Name, call.Arguments)
	if err != nil {
		log.Warn("realtime: tool failed", "tool", call.Name, "err", err)
		return mustJSONString(map[string]string{"error": err.Error()})
	}
	return out
}

// responseDoneLocked closes out a response: dispatches any function calls
// that only appeared in the output array, then settles the turn state once
// nothing is left playing.
func (d *Dispatcher) responseDoneLocked(ev Event) {
	for _, item := range ev.OutputItems {
		if item.Type == "function_call" {
			d.dispatchToolLocked(ToolCall{
				CallID:    item.CallID,
				Name:      item.Name,
				Arguments: item.Arguments,
			})
		}
	}

	d.generating = false
	stillPlaying := d.Audio != nil && d.Audio.IsPlaying()
	if !stillPlaying {
		// Fully delivered and fully played: the item is no longer a
		// truncation target. A later interrupt must not tell the server the
		// user heard none of it.
		d.currentItemID = ""
	}
	d.Turns.ResponseSettled(stillPlaying)
	debug.Log("dispatch: response %s done (playing=%v)\n", ev.ResponseID, stillPlaying)
}

// serverErrorLocked separates expected interrupt races from real failures.
func (d *Dispatcher) serverErrorLocked(ev Event) {
	if isBenignError(ev.Code, ev.Message) {
		debug.Log("dispatch: benign server error [%s] %s\n", ev.Code, ev.Message)
		return
	}
	err := &APIError{Code: ev.Code, Message: ev.Message}
	log.Error("realtime: server error", "code", ev.Code, "message", ev.Message)
	d.session.Fail(err)
	if d.OnError != nil {
		go d.OnError(err)
	}
}

// Generating reports whether a response is currently being produced.
func (d *Dispatcher) Generating() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.generating
}

func mustJSONString(v any) string {
	return string(mustJSON(v))
}
