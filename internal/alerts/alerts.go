// Package alerts decides which pending alert, if any, should cut into the
// audio timeline and enforces the acknowledge-after-speak contract.
//
// User alerts always outrank AI alerts. Either kind is acknowledged only
// after a speak attempt, but it is always acknowledged: a message that
// cannot be spoken, for content or transient reasons, must not wedge the
// queue behind it. The per-kind watermark advances even when the row ack
// fails so a dead row is never reprocessed within this run.
package alerts

import (
	"context"
	"log/slog"

	"github.com/pattupetti/fmclient/internal/db"
	"github.com/pattupetti/fmclient/internal/observe"
	"github.com/pattupetti/fmclient/internal/speech"
	"github.com/pattupetti/fmclient/internal/state"
)

// TTS gain per alert kind. AI alerts play over ducked music and need the
// boost; user alerts play over silence.
const (
	UserGain = 1.0
	AIGain   = 4.0
)

// Speaker is the slice of [speech.Speaker] the arbitrator needs.
type Speaker interface {
	Speak(ctx context.Context, msg string, gain float64) int
}

// Arbitrator selects and delivers pending alerts against the client's
// persisted watermarks. It is driven synchronously from the control loop and
// is not safe for concurrent use.
type Arbitrator struct {
	store     db.Store
	speaker   Speaker
	st        *state.ClientState
	statePath string
}

// NewArbitrator creates an Arbitrator operating on the shared client state
// record. The record is persisted to statePath after every acknowledgment.
func NewArbitrator(store db.Store, sp Speaker, st *state.ClientState, statePath string) *Arbitrator {
	return &Arbitrator{store: store, speaker: sp, st: st, statePath: statePath}
}

// Next returns the alert that should be delivered now, or nil when nothing
// is pending. A pending user alert always wins over a pending AI alert.
// Lookup errors are logged and treated as "nothing pending this tick".
func (a *Arbitrator) Next(ctx context.Context) *db.Alert {
	if alert, err := a.store.NextUserAlertAfter(ctx, a.st.LastUserAlertID); err != nil {
		slog.Warn("user alert lookup failed", "error", err)
	} else if alert != nil {
		return alert
	}

	if alert, err := a.store.NextAIAlertAfter(ctx, a.st.LastAIAlertID); err != nil {
		slog.Warn("ai alert lookup failed", "error", err)
	} else if alert != nil {
		return alert
	}
	return nil
}

// Deliver speaks the alert at its kind's gain, then acknowledges it. The
// caller is responsible for putting the music player into the right state
// (stopped for user alerts, ducked for AI alerts) around this call.
func (a *Arbitrator) Deliver(ctx context.Context, alert *db.Alert) {
	gain := UserGain
	if alert.Kind == db.AlertAI {
		gain = AIGain
	}

	spoken := a.speaker.Speak(ctx, alert.Message, gain)
	status := "ok"
	if spoken == 0 {
		if speech.HasSpeakableText(alert.Message) {
			status = "failed"
			slog.Warn("alert delivery failed, acknowledging to keep the queue moving",
				"kind", alert.Kind, "id", alert.ID)
		} else {
			status = "empty"
			slog.Info("alert has no speakable text, acknowledging",
				"kind", alert.Kind, "id", alert.ID)
		}
	}
	observe.DefaultMetrics().RecordAlertSpoken(ctx, string(alert.Kind), status)

	a.acknowledge(ctx, alert)
}

// acknowledge removes the row, advances the watermark and persists state.
// Row removal is best-effort; the watermark advances regardless.
func (a *Arbitrator) acknowledge(ctx context.Context, alert *db.Alert) {
	var (
		changed bool
		err     error
	)
	switch alert.Kind {
	case db.AlertUser:
		changed, err = a.store.AckUserAlert(ctx, alert.ID)
		a.st.LastUserAlertID = alert.ID
	default:
		changed, err = a.store.AckAIAlert(ctx, alert.ID)
		a.st.LastAIAlertID = alert.ID
	}

	switch {
	case err != nil:
		slog.Warn("alert ack failed, watermark advanced anyway",
			"kind", alert.Kind, "id", alert.ID, "error", err)
	case !changed:
		slog.Debug("alert row already gone", "kind", alert.Kind, "id", alert.ID)
	}

	if err := state.Save(a.statePath, a.st); err != nil {
		slog.Warn("persist client state", "error", err)
	}
}
