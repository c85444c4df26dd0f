// Package view folds change-feed snapshots, ephemeral broadcasts and local
// timers into per-role renderable state. Reducers never fail: unknown or
// partial input renders best effort and keeps watching.
package view

import (
	"time"

	"github.com/escala365/arena-backend/internal/arena"
	"github.com/escala365/arena-backend/internal/bus"
	"github.com/escala365/arena-backend/internal/feed"
)

const (
	DefaultReadingSeconds = 15
	DefaultBattleSeconds  = 30
)

// Phase is the display's local two-phase clock, independent of the
// session status and never persisted.
type Phase string

const (
	PhaseIdle    Phase = "IDLE"
	PhaseReading Phase = "READING"
	PhaseBattle  Phase = "BATTLE"
)

// Display is the public-screen reducer. It also originates the two
// ephemeral auto-resolve signals: "both answered" from snapshot
// observation and "timer expired" from its battle countdown.
type Display struct {
	Session     arena.Session
	Revision    int64
	Question    *arena.Question
	Phase       Phase
	Deadline    time.Time
	LastOutcome arena.Winner

	reading time.Duration
	battle  time.Duration

	signaledBoth string // question id already signaled, one shot per round
}

func NewDisplay() *Display {
	return &Display{
		Session: arena.NewSession(),
		Phase:   PhaseIdle,
		reading: DefaultReadingSeconds * time.Second,
		battle:  DefaultBattleSeconds * time.Second,
	}
}

// ApplySnapshot reconciles a durable feed snapshot, last-value-wins per
// field. Duplicates and replays (at-least-once delivery) are discarded by
// revision. The returned events are ephemeral signals the display should
// publish, never a state transition in themselves.
func (d *Display) ApplySnapshot(snap feed.Snapshot, now time.Time) []bus.Event {
	if snap.Revision <= d.Revision && d.Revision != 0 {
		return nil
	}
	prevQuestion := d.Session.CurrentQuestionID
	d.Revision = snap.Revision
	d.Session = snap.Session

	if d.Session.CurrentQuestionID == "" {
		d.Question = nil
	} else if prevQuestion != d.Session.CurrentQuestionID {
		// The broadcast normally carries the question; after a missed one
		// the caller refetches by id.
		if d.Question != nil && d.Question.ID != d.Session.CurrentQuestionID {
			d.Question = nil
		}
	}

	// Reconnect: if a countdown is persisted and we have no local clock,
	// re-derive the remaining time from the deadline alone.
	if d.Phase == PhaseIdle && d.Session.TimerStatus == arena.TimerRunning && d.Session.TimerEndAt.After(now) {
		d.Phase = PhaseBattle
		d.Deadline = d.Session.TimerEndAt
	}

	if d.Session.Status == arena.StatusResolved {
		d.Phase = PhaseIdle
		d.Deadline = time.Time{}
	}

	// Both answers in while unrevealed: ask the moderator to resolve.
	if d.Session.Status == arena.StatusActive &&
		d.Session.AnswerA != "" && d.Session.AnswerB != "" &&
		!d.Session.ShowAnswer &&
		d.signaledBoth != d.Session.CurrentQuestionID {
		d.signaledBoth = d.Session.CurrentQuestionID
		return []bus.Event{{Type: bus.EventBothAnswered}}
	}
	return nil
}

// ApplyBroadcast folds an ephemeral event in. Broadcasts only shave
// latency; every field they touch is also corrected by the next snapshot.
func (d *Display) ApplyBroadcast(ev bus.Event, now time.Time) {
	switch ev.Type {
	case bus.EventSpin:
		d.Session.Status = arena.StatusSpinning
		d.Session.RouletteCategory = ev.Category
		d.Session.CurrentQuestionID = ""
		d.Session.AnswerA = ""
		d.Session.AnswerB = ""
		d.Session.ShowAnswer = false
		d.Question = nil
		d.Phase = PhaseIdle

	case bus.EventLaunch:
		if ev.Question == nil {
			return
		}
		d.Question = ev.Question
		d.Session.Status = arena.StatusActive
		d.Session.CurrentQuestionID = ev.Question.ID
		d.Session.AnswerA = ""
		d.Session.AnswerB = ""
		d.Session.ShowAnswer = false
		if ev.Stakes > 0 {
			d.Session.StakesXP = ev.Stakes
		}
		d.Phase = PhaseReading
		d.Deadline = now.Add(d.reading)

	case bus.EventResolve:
		d.LastOutcome = ev.Winner
		d.Phase = PhaseIdle
		d.Deadline = time.Time{}

	case bus.EventShowAnswer:
		d.Session.ShowAnswer = ev.Show

	case bus.EventUpdateStakes:
		d.Session.StakesXP = ev.Stakes

	case bus.EventCoinFlip:
		d.Session.LastCoinFlip = ev.Team

	case bus.EventStartTimer:
		d.Phase = PhaseBattle
		d.Deadline = now.Add(time.Duration(ev.Seconds) * time.Second)

	case bus.EventReset:
		d.Question = nil
		d.Phase = PhaseIdle
		d.Deadline = time.Time{}
		d.LastOutcome = ""
		d.signaledBoth = ""

	default:
		// Unrecognized events are normal; the durable feed corrects us.
	}
}

// Tick advances the local clock. When the reading window closes the
// options come out and the battle countdown starts; when the battle
// countdown hits zero the display emits the timer-expired resolve signal.
func (d *Display) Tick(now time.Time) []bus.Event {
	if d.Deadline.IsZero() || now.Before(d.Deadline) {
		return nil
	}
	switch d.Phase {
	case PhaseReading:
		d.Phase = PhaseBattle
		d.Deadline = now.Add(d.battle)
		return nil
	case PhaseBattle:
		d.Phase = PhaseIdle
		d.Deadline = time.Time{}
		return []bus.Event{{Type: bus.EventTimerExpired}}
	default:
		d.Deadline = time.Time{}
		return nil
	}
}

// Remaining reports the seconds left on the local clock, clamped at zero.
func (d *Display) Remaining(now time.Time) int {
	if d.Deadline.IsZero() || now.After(d.Deadline) {
		return 0
	}
	return int(d.Deadline.Sub(now).Round(time.Second) / time.Second)
}
