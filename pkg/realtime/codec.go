package realtime

import (
	"encoding/json"

	"github.com/junolabs/go-juno/pkg/debug"
)

// Family identifies which wire grammar a message belongs to.
type Family int

const (
	// FamilyOpenAI covers OpenAI, Azure and x.ai: flat JSON events tagged
	// with a top-level "type" string.
	FamilyOpenAI Family = iota

	// FamilyGoogle covers the Gemini Live API: nested serverContent /
	// toolCall / setupComplete structures with no type tag.
	FamilyGoogle
)

// Decoder turns provider wire messages into normalized Events.
//
// Detection is per message: a top-level "type" string selects the OpenAI
// grammar, anything else falls through to the Google grammar. The Google
// path is stateful (transcript accumulation, synthetic response ids), so use
// one Decoder per connection.
type Decoder struct {
	google googleState
}

// NewDecoder returns a Decoder with fresh per-connection state.
func NewDecoder() *Decoder {
	return &Decoder{google: newGoogleState()}
}

// Decode parses one wire message. A single message can normalize to several
// events (Google packs tool calls and turn boundaries into one frame), so
// the result is a slice in arrival order.
//
// Decode never fails: unparseable JSON and unrecognized shapes come back as
// a single KindUnknown event carrying the raw payload.
func (d *Decoder) Decode(raw []byte) []Event {
	var msg map[string]any
	if err := json.Unmarshal(raw, &msg); err != nil {
		debug.WireLog("decode: unparseable message (%d bytes): %v\n", len(raw), err)
		return []Event{unknownEvent(raw)}
	}

	if _, ok := msg["type"].(string); ok {
		return decodeOpenAI(msg, raw)
	}
	return d.google.decode(msg, raw)
}

func unknownEvent(raw []byte) Event {
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return Event{Kind: KindUnknown, Raw: cp}
}

// str reads a string field from a decoded JSON object.
func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// obj reads a nested JSON object field.
func obj(m map[string]any, key string) map[string]any {
	o, _ := m[key].(map[string]any)
	return o
}

// arr reads a JSON array field.
func arr(m map[string]any, key string) []any {
	a, _ := m[key].([]any)
	return a
}
