package realtime

import (
	"strings"
	"testing"
)

func startResponse(rig *testRig, responseID, itemID string, positionMs int) {
	rig.d.Handle(Event{Kind: KindResponseCreated, ResponseID: responseID})
	rig.d.Handle(Event{Kind: KindAudioDelta, ResponseID: responseID, ItemID: itemID, Audio: []byte{1, 2}})
	rig.audio.mu.Lock()
	rig.audio.position = positionMs
	rig.audio.mu.Unlock()
}

func TestInterruptTruncatesAtPlaybackPosition(t *testing.T) {
	rig := newTestRig(FamilyOpenAI)
	startResponse(rig, "resp_1", "item_1", 2300)

	rig.d.Interrupt()

	var sawCancel, sawTruncate bool
	for _, msg := range rig.log.snapshot() {
		if strings.Contains(msg, "response.cancel") {
			sawCancel = true
		}
		if strings.Contains(msg, "conversation.item.truncate") {
			sawTruncate = true
			// 2300ms played minus the 500ms safety margin.
			if !strings.Contains(msg, `"audio_end_ms":1800`) {
				t.Errorf("truncate = %s", msg)
			}
			if !strings.Contains(msg, `"item_id":"item_1"`) {
				t.Errorf("truncate = %s", msg)
			}
		}
	}
	if !sawCancel || !sawTruncate {
		t.Fatalf("cancel=%v truncate=%v, sent: %v", sawCancel, sawTruncate, rig.log.snapshot())
	}

	if rig.audio.interrupts != 1 {
		t.Errorf("audio interrupts = %d", rig.audio.interrupts)
	}
	if rig.motion.stops != 1 {
		t.Errorf("motion stops = %d", rig.motion.stops)
	}
	if got := rig.d.Turns.State(); got != TurnListening {
		t.Errorf("turn = %v", got)
	}
}

func TestInterruptClampsEarlyTruncation(t *testing.T) {
	rig := newTestRig(FamilyOpenAI)
	startResponse(rig, "resp_1", "item_1", 200)

	rig.d.Interrupt()

	found := false
	for _, msg := range rig.log.snapshot() {
		if strings.Contains(msg, "conversation.item.truncate") {
			found = true
			if !strings.Contains(msg, `"audio_end_ms":0`) {
				t.Errorf("truncate = %s", msg)
			}
		}
	}
	if !found {
		t.Fatal("no truncate sent")
	}
}

func TestInterruptIsIdempotent(t *testing.T) {
	rig := newTestRig(FamilyOpenAI)
	startResponse(rig, "resp_1", "item_1", 1000)

	rig.d.Interrupt()
	sendsAfterFirst := len(rig.log.snapshot())

	rig.d.Interrupt()
	rig.d.Interrupt()

	if got := len(rig.log.snapshot()); got != sendsAfterFirst {
		t.Errorf("repeat interrupts sent messages: %v", rig.log.snapshot()[sendsAfterFirst:])
	}
}

func TestInterruptWithNothingPlaying(t *testing.T) {
	rig := newTestRig(FamilyOpenAI)

	// Nothing in flight: local stop still runs, nothing goes out.
	rig.d.Interrupt()

	if got := len(rig.log.snapshot()); got != 0 {
		t.Errorf("sent: %v", rig.log.snapshot())
	}
	if rig.audio.interrupts != 1 {
		t.Errorf("audio interrupts = %d", rig.audio.interrupts)
	}
}

func TestInterruptAfterResponseCompleteSendsNothing(t *testing.T) {
	rig := newTestRig(FamilyOpenAI)
	startResponse(rig, "resp_1", "item_1", 2300)

	// Playback drains, then the response finishes cleanly.
	rig.audio.mu.Lock()
	rig.audio.playing = false
	rig.audio.mu.Unlock()
	rig.d.Handle(Event{Kind: KindResponseDone, ResponseID: "resp_1"})

	rig.d.Interrupt()

	for _, msg := range rig.log.snapshot() {
		if strings.Contains(msg, "conversation.item.truncate") {
			t.Errorf("truncated a fully played item: %s", msg)
		}
		if strings.Contains(msg, "response.cancel") {
			t.Errorf("cancelled a finished response: %s", msg)
		}
	}
	if rig.audio.interrupts != 1 {
		t.Errorf("audio interrupts = %d", rig.audio.interrupts)
	}
}

func TestInterruptDuringNextResponseIgnoresPreviousItem(t *testing.T) {
	rig := newTestRig(FamilyOpenAI)
	startResponse(rig, "resp_1", "item_1", 2300)
	rig.d.Handle(Event{Kind: KindResponseDone, ResponseID: "resp_1"})

	// Next response has started but produced no audio yet; item_1's playback
	// accounting was reset at the boundary.
	rig.d.Handle(Event{Kind: KindResponseCreated, ResponseID: "resp_2"})

	rig.d.Interrupt()

	var sawCancel bool
	for _, msg := range rig.log.snapshot() {
		if strings.Contains(msg, "conversation.item.truncate") {
			t.Errorf("truncated an item from a previous response: %s", msg)
		}
		if strings.Contains(msg, "response.cancel") {
			sawCancel = true
		}
	}
	if !sawCancel {
		t.Fatalf("no cancel for resp_2, sent: %v", rig.log.snapshot())
	}
}

func TestInterruptGoogleSendsNothing(t *testing.T) {
	rig := newTestRig(FamilyGoogle)
	rig.d.Handle(Event{Kind: KindAudioDelta, ResponseID: "g-1", Audio: []byte{1}})

	rig.d.Interrupt()

	if got := len(rig.log.snapshot()); got != 0 {
		t.Errorf("google interrupt sent messages: %v", rig.log.snapshot())
	}
	if rig.audio.interrupts != 1 {
		t.Errorf("audio interrupts = %d", rig.audio.interrupts)
	}
}
