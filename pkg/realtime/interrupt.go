package realtime

import (
	"github.com/junolabs/go-juno/pkg/debug"
)

// truncateSafetyMarginMs is subtracted from the playback position before
// truncating server-side context. Playback clocks run slightly ahead of the
// speaker, so the margin keeps the server's view of "what was heard" from
// including audio the user never got.
const truncateSafetyMarginMs = 500

// Interrupt stops the assistant mid-response: local playback and motion halt
// immediately, the in-flight response is cancelled server-side, and the
// conversation context is truncated to what actually played.
//
// Safe to call at any time, from any goroutine. A second Interrupt for the
// same response is a no-op; the first call already cleared the truncation
// target and marked the response cancelled.
func (d *Dispatcher) Interrupt() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.interruptLocked()
}

func (d *Dispatcher) interruptLocked() {
	positionMs := 0
	if d.Audio != nil {
		positionMs = d.Audio.PositionMs()
		d.Audio.InterruptNow()
	}
	if d.Motion != nil {
		d.Motion.StopAll()
	}

	// Cancel at most once per response. Both messages are best-effort; the
	// races they can lose all surface as benign server errors.
	if d.generating && d.currentResponseID != d.cancelledResponseID {
		if msg := d.enc.CancelResponse(); msg != nil {
			d.send(msg)
		}
	}
	if d.currentResponseID != "" {
		d.cancelledResponseID = d.currentResponseID
	}

	if d.currentItemID != "" {
		endMs := positionMs - truncateSafetyMarginMs
		if endMs < 0 {
			endMs = 0
		}
		if msg := d.enc.Truncate(d.currentItemID, 0, endMs); msg != nil {
			d.send(msg)
		}
		debug.Log("interrupt: truncated item %s at %dms\n", d.currentItemID, endMs)
		d.currentItemID = ""
	}

	d.generating = false
	d.Turns.Reset()
}
