package realtime

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/junolabs/go-juno/pkg/debug"
)

// googleState holds per-connection decode state for the Google Live grammar.
// Google streams transcription fragments without response ids and without an
// explicit "response started" event, so the decoder accumulates transcripts
// and issues synthetic per-turn response ids of its own.
type googleState struct {
	// seq numbers the synthetic response ids ("g-1", "g-2", ...). A turn
	// begins with the first model output after the previous turnComplete.
	seq       int
	turnOpen  bool
	modelTurn bool // ModelTurnStarted emitted for the current turn

	input    strings.Builder // user speech transcription
	output   strings.Builder // spoken assistant transcription
	thinking strings.Builder // thought parts, diagnostics only
}

func newGoogleState() googleState {
	return googleState{}
}

// responseID returns the synthetic id for the current turn, opening a new
// turn if none is active.
func (g *googleState) responseID() string {
	if !g.turnOpen {
		g.seq++
		g.turnOpen = true
		g.modelTurn = false
	}
	return fmt.Sprintf("g-%d", g.seq)
}

// endTurn closes the current turn and clears all buffers.
func (g *googleState) endTurn() {
	g.turnOpen = false
	g.modelTurn = false
	g.input.Reset()
	g.output.Reset()
	g.thinking.Reset()
}

// decode normalizes one Google Live message. The checks run in a fixed
// order: error, setupComplete, toolCall, toolCallCancellation, then
// serverContent.
func (g *googleState) decode(msg map[string]any, raw []byte) []Event {
	if e, ok := msg["error"].(map[string]any); ok {
		return one(Event{Kind: KindError, Code: str(e, "code"), Message: str(e, "message")})
	}

	if _, ok := msg["setupComplete"]; ok {
		return one(Event{Kind: KindSetupComplete})
	}

	if tc, ok := msg["toolCall"].(map[string]any); ok {
		return g.decodeToolCall(tc)
	}

	if tcc, ok := msg["toolCallCancellation"].(map[string]any); ok {
		var ids []string
		for _, id := range arr(tcc, "ids") {
			if s, ok := id.(string); ok {
				ids = append(ids, s)
			}
		}
		return one(Event{Kind: KindToolCallCancelled, CancelledCallIDs: ids})
	}

	if sc, ok := msg["serverContent"].(map[string]any); ok {
		return g.decodeServerContent(sc)
	}

	debug.WireLog("decode: unhandled google message (%d bytes)\n", len(raw))
	return one(unknownEvent(raw))
}

func (g *googleState) decodeToolCall(tc map[string]any) []Event {
	var events []Event
	for _, fc := range arr(tc, "functionCalls") {
		m, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		args := "{}"
		if a, ok := m["args"].(map[string]any); ok {
			if encoded, err := json.Marshal(a); err == nil {
				args = string(encoded)
			}
		}
		events = append(events, Event{
			Kind:       KindToolCallRequested,
			ResponseID: g.responseID(),
			Call: &ToolCall{
				CallID:    str(m, "id"),
				Name:      str(m, "name"),
				Arguments: args,
			},
		})
	}
	return events
}

func (g *googleState) decodeServerContent(sc map[string]any) []Event {
	var events []Event

	// Barge-in: the server dropped the rest of the model turn. Force an
	// AudioDone so playback stops, and discard anything buffered.
	if interrupted, ok := sc["interrupted"].(bool); ok && interrupted {
		id := g.responseID()
		g.endTurn()
		return []Event{
			{Kind: KindInterrupted, ResponseID: id},
			{Kind: KindAudioDone, ResponseID: id},
		}
	}

	if it := obj(sc, "inputTranscription"); it != nil {
		if text := str(it, "text"); text != "" {
			g.input.WriteString(text)
			events = append(events, Event{Kind: KindUserTranscriptDelta, Text: text})
		}
	}

	if ot := obj(sc, "outputTranscription"); ot != nil {
		if text := str(ot, "text"); text != "" {
			id := g.responseID()
			// First output transcription marks the model turn. The app
			// uses this to mute the microphone exactly once per response.
			if !g.modelTurn {
				g.modelTurn = true
				events = append(events, Event{Kind: KindModelTurnStarted, ResponseID: id})
			}
			g.output.WriteString(text)
			events = append(events, Event{Kind: KindTranscriptDelta, ResponseID: id, Text: text})
		}
	}

	if mt := obj(sc, "modelTurn"); mt != nil {
		events = append(events, g.decodeModelTurnParts(arr(mt, "parts"))...)
	}

	if turnComplete, ok := sc["turnComplete"].(bool); ok && turnComplete {
		id := g.responseID()
		if g.input.Len() > 0 {
			events = append(events, Event{Kind: KindUserTranscriptCompleted, Text: g.input.String()})
		}
		if g.output.Len() > 0 {
			events = append(events, Event{Kind: KindTranscriptDone, ResponseID: id, Text: g.output.String()})
		}
		if g.thinking.Len() > 0 {
			debug.Log("google: model thinking (%d chars)\n", g.thinking.Len())
		}
		events = append(events, Event{Kind: KindResponseDone, ResponseID: id})
		g.endTurn()
	}

	return events
}

func (g *googleState) decodeModelTurnParts(parts []any) []Event {
	var events []Event
	for _, part := range parts {
		p, ok := part.(map[string]any)
		if !ok {
			continue
		}

		if inline := obj(p, "inlineData"); inline != nil {
			mime := str(inline, "mimeType")
			if mime == "audio/pcm" || strings.HasPrefix(mime, "audio/pcm;") {
				pcm, err := base64.StdEncoding.DecodeString(str(inline, "data"))
				if err != nil || len(pcm) == 0 {
					continue
				}
				events = append(events, Event{
					Kind:       KindAudioDelta,
					ResponseID: g.responseID(),
					Audio:      pcm,
				})
			}
			continue
		}

		if text := str(p, "text"); text != "" {
			// Thought parts are model reasoning, never spoken. Buffer for
			// diagnostics but do not forward as a transcript.
			if thought, _ := p["thought"].(bool); thought {
				g.thinking.WriteString(text)
				continue
			}
			events = append(events, Event{
				Kind:       KindTranscriptDelta,
				ResponseID: g.responseID(),
				Text:       text,
			})
		}
	}
	return events
}
