package realtime

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Encoder builds provider wire messages for one connection. It is not safe
// for concurrent use; the Client serializes access.
type Encoder struct {
	family Family

	// inputMime is the Google realtimeInput audio mime type, fixed at
	// session setup ("audio/pcm;rate=16000").
	inputMime string

	// audioBuf is reused across AppendAudio calls. Audio chunks go out at
	// 10+ frames per second, so allocating a fresh buffer per frame is
	// measurable churn; the buffer grows once to steady-state capacity.
	audioBuf bytes.Buffer
}

// NewEncoder returns an Encoder for the given wire family.
func NewEncoder(family Family, inputSampleRate int) *Encoder {
	if inputSampleRate == 0 {
		inputSampleRate = 16000
	}
	return &Encoder{
		family:    family,
		inputMime: fmt.Sprintf("audio/pcm;rate=%d", inputSampleRate),
	}
}

// AppendAudio encodes one PCM16 chunk as an audio append message. The
// returned slice aliases an internal buffer and is only valid until the next
// AppendAudio call; send it before encoding the next chunk.
func (e *Encoder) AppendAudio(pcm []byte) []byte {
	e.audioBuf.Reset()

	if e.family == FamilyGoogle {
		e.audioBuf.WriteString(`{"realtimeInput":{"mediaChunks":[{"mimeType":"`)
		e.audioBuf.WriteString(e.inputMime)
		e.audioBuf.WriteString(`","data":"`)
		e.writeBase64(pcm)
		e.audioBuf.WriteString(`"}]}}`)
	} else {
		e.audioBuf.WriteString(`{"type":"input_audio_buffer.append","audio":"`)
		e.writeBase64(pcm)
		e.audioBuf.WriteString(`"}`)
	}

	return e.audioBuf.Bytes()
}

func (e *Encoder) writeBase64(data []byte) {
	enc := base64.NewEncoder(base64.StdEncoding, &e.audioBuf)
	enc.Write(data)
	enc.Close()
}

// UserText encodes a user text message as a conversation item. For the
// OpenAI family, follow with CreateResponse to request a reply; Google
// generates one automatically from turnComplete.
func (e *Encoder) UserText(text string) []byte {
	if e.family == FamilyGoogle {
		return mustJSON(map[string]any{
			"clientContent": map[string]any{
				"turns": []map[string]any{
					{"role": "user", "parts": []map[string]any{{"text": text}}},
				},
				"turnComplete": true,
			},
		})
	}
	return mustJSON(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"id":   newItemID(),
			"type": "message",
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": text},
			},
		},
	})
}

// UserImage encodes a user image (base64 data plus mime type) as a
// conversation item, for camera-snapshot round trips.
func (e *Encoder) UserImage(b64Data, mimeType string) []byte {
	if e.family == FamilyGoogle {
		return mustJSON(map[string]any{
			"clientContent": map[string]any{
				"turns": []map[string]any{
					{"role": "user", "parts": []map[string]any{
						{"inlineData": map[string]any{"mimeType": mimeType, "data": b64Data}},
					}},
				},
				"turnComplete": true,
			},
		})
	}
	return mustJSON(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"id":   newItemID(),
			"type": "message",
			"role": "user",
			"content": []map[string]any{
				{"type": "input_image", "image_url": fmt.Sprintf("data:%s;base64,%s", mimeType, b64Data)},
			},
		},
	})
}

// CreateResponse requests a model response. Returns nil for Google, which
// has no explicit response trigger.
func (e *Encoder) CreateResponse() []byte {
	if e.family == FamilyGoogle {
		return nil
	}
	return mustJSON(map[string]string{"type": "response.create"})
}

// ToolResult encodes a function result correlated by call id.
func (e *Encoder) ToolResult(callID, output string) []byte {
	if e.family == FamilyGoogle {
		return mustJSON(map[string]any{
			"toolResponse": map[string]any{
				"functionResponses": []map[string]any{
					{"id": callID, "response": map[string]any{"result": output}},
				},
			},
		})
	}
	return mustJSON(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  output,
		},
	})
}

// CancelResponse encodes a best-effort cancel for the in-flight response.
// Returns nil for Google: Live handles barge-in server-side via VAD and has
// no cancel message.
func (e *Encoder) CancelResponse() []byte {
	if e.family == FamilyGoogle {
		return nil
	}
	return mustJSON(map[string]string{"type": "response.cancel"})
}

// Truncate encodes an assistant-audio truncation at audioEndMs for the given
// item, so the server's view of what was heard matches actual playback.
// Returns nil for Google.
func (e *Encoder) Truncate(itemID string, contentIndex, audioEndMs int) []byte {
	if e.family == FamilyGoogle {
		return nil
	}
	return mustJSON(map[string]any{
		"type":          "conversation.item.truncate",
		"item_id":       itemID,
		"content_index": contentIndex,
		"audio_end_ms":  audioEndMs,
	})
}

func newItemID() string {
	return "item_" + uuid.NewString()
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Only reachable with unmarshalable values, which the encoders
		// above never produce.
		panic(fmt.Sprintf("realtime: encode: %v", err))
	}
	return data
}
