package realtime

import (
	"encoding/base64"

	"github.com/junolabs/go-juno/pkg/debug"
)

// decodeOpenAI normalizes one OpenAI-style event. Azure and x.ai speak the
// same grammar. The Realtime API shipped two generations of field names for
// the same semantic events: the beta names (response.audio.*) and the GA
// names (response.output_audio.*). Both normalize identically.
func decodeOpenAI(msg map[string]any, raw []byte) []Event {
	switch str(msg, "type") {
	case "session.created":
		return one(Event{Kind: KindSessionCreated})

	case "session.updated":
		return one(Event{Kind: KindSessionUpdated})

	case "response.created":
		resp := obj(msg, "response")
		return one(Event{Kind: KindResponseCreated, ResponseID: str(resp, "id")})

	case "response.done":
		resp := obj(msg, "response")
		return one(Event{
			Kind:        KindResponseDone,
			ResponseID:  str(resp, "id"),
			OutputItems: decodeOutputItems(arr(resp, "output")),
		})

	case "response.audio.delta", "response.output_audio.delta":
		pcm, err := base64.StdEncoding.DecodeString(str(msg, "delta"))
		if err != nil {
			debug.WireLog("decode: bad audio delta: %v\n", err)
			return one(unknownEvent(raw))
		}
		return one(Event{
			Kind:       KindAudioDelta,
			ResponseID: str(msg, "response_id"),
			ItemID:     str(msg, "item_id"),
			Audio:      pcm,
		})

	case "response.audio.done", "response.output_audio.done":
		return one(Event{
			Kind:       KindAudioDone,
			ResponseID: str(msg, "response_id"),
			ItemID:     str(msg, "item_id"),
		})

	case "response.audio_transcript.delta", "response.output_audio_transcript.delta":
		return one(Event{
			Kind:       KindTranscriptDelta,
			ResponseID: str(msg, "response_id"),
			ItemID:     str(msg, "item_id"),
			Text:       str(msg, "delta"),
		})

	case "response.audio_transcript.done", "response.output_audio_transcript.done":
		return one(Event{
			Kind:       KindTranscriptDone,
			ResponseID: str(msg, "response_id"),
			ItemID:     str(msg, "item_id"),
			Text:       str(msg, "transcript"),
		})

	case "response.text.delta", "response.output_text.delta":
		// Text-only responses share the transcript path.
		return one(Event{
			Kind:       KindTranscriptDelta,
			ResponseID: str(msg, "response_id"),
			Text:       str(msg, "delta"),
		})

	case "input_audio_buffer.speech_started":
		return one(Event{Kind: KindUserSpeechStarted, ItemID: str(msg, "item_id")})

	case "input_audio_buffer.speech_stopped":
		return one(Event{Kind: KindUserSpeechStopped, ItemID: str(msg, "item_id")})

	case "input_audio_buffer.committed":
		return one(Event{Kind: KindInputCommitted, ItemID: str(msg, "item_id")})

	case "conversation.item.created", "conversation.item.added":
		item := obj(msg, "item")
		return one(Event{Kind: KindItemCreated, ItemID: str(item, "id")})

	case "conversation.item.input_audio_transcription.delta":
		return one(Event{
			Kind:   KindUserTranscriptDelta,
			ItemID: str(msg, "item_id"),
			Text:   str(msg, "delta"),
		})

	case "conversation.item.input_audio_transcription.completed":
		return one(Event{
			Kind:   KindUserTranscriptCompleted,
			ItemID: str(msg, "item_id"),
			Text:   str(msg, "transcript"),
		})

	case "conversation.item.input_audio_transcription.failed":
		e := obj(msg, "error")
		return one(Event{
			Kind:    KindUserTranscriptFailed,
			ItemID:  str(msg, "item_id"),
			Code:    str(e, "code"),
			Message: str(e, "message"),
		})

	case "response.function_call_arguments.done":
		return one(Event{
			Kind:       KindToolCallRequested,
			ResponseID: str(msg, "response_id"),
			Call: &ToolCall{
				CallID:    str(msg, "call_id"),
				Name:      str(msg, "name"),
				Arguments: str(msg, "arguments"),
			},
		})

	case "error":
		e := obj(msg, "error")
		return one(Event{Kind: KindError, Code: str(e, "code"), Message: str(e, "message")})

	default:
		debug.WireLog("decode: unhandled event type %q\n", str(msg, "type"))
		return one(unknownEvent(raw))
	}
}

// decodeOutputItems extracts the output array of a completed response.
// Function-call items carry the tool round trip; message items are kept for
// bookkeeping only.
func decodeOutputItems(output []any) []OutputItem {
	if len(output) == 0 {
		return nil
	}
	items := make([]OutputItem, 0, len(output))
	for _, entry := range output {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, OutputItem{
			Type:      str(m, "type"),
			ID:        str(m, "id"),
			Name:      str(m, "name"),
			CallID:    str(m, "call_id"),
			Arguments: str(m, "arguments"),
		})
	}
	return items
}

func one(ev Event) []Event {
	return []Event{ev}
}
