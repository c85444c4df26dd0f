package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/escala365/arena-backend/internal/arena"
	"github.com/escala365/arena-backend/internal/bus"
	"github.com/escala365/arena-backend/internal/feed"
)

var q1 = arena.Question{
	ID: "q1", Category: "PROPHETS", Difficulty: arena.DifficultyMedium,
	Question: "Who confronted the prophets of Baal?",
	Options:  []string{"Elijah", "Elisha"}, CorrectAnswer: "Elijah",
}

func activeSnapshot(rev int64) feed.Snapshot {
	s := arena.NewSession()
	s.Status = arena.StatusActive
	s.CurrentQuestionID = "q1"
	s.UsedQuestions["q1"] = true
	return feed.Snapshot{Revision: rev, Session: s}
}

func TestDisplayEmitsBothAnsweredOnce(t *testing.T) {
	d := NewDisplay()
	now := time.Now()

	require.Empty(t, d.ApplySnapshot(activeSnapshot(1), now))

	snap := activeSnapshot(2)
	snap.Session.AnswerA = "Elijah"
	snap.Session.AnswerB = "Elisha"
	signals := d.ApplySnapshot(snap, now)
	require.Len(t, signals, 1)
	require.Equal(t, bus.EventBothAnswered, signals[0].Type)

	// A replay of the same state (at-least-once feed) must not re-signal.
	snap.Revision = 3
	require.Empty(t, d.ApplySnapshot(snap, now))
}

func TestDisplayDiscardsStaleSnapshots(t *testing.T) {
	d := NewDisplay()
	now := time.Now()

	fresh := activeSnapshot(5)
	fresh.Session.ScoreA = 10
	d.ApplySnapshot(fresh, now)

	stale := activeSnapshot(4)
	d.ApplySnapshot(stale, now)
	require.Equal(t, 10, d.Session.ScoreA)
	require.Equal(t, int64(5), d.Revision)
}

func TestDisplayTimerPhases(t *testing.T) {
	d := NewDisplay()
	now := time.Now()

	d.ApplyBroadcast(bus.Event{Type: bus.EventLaunch, Question: &q1, Stakes: 5}, now)
	require.Equal(t, PhaseReading, d.Phase)
	require.Equal(t, DefaultReadingSeconds, d.Remaining(now))

	// Reading window closes: options come out, battle countdown starts.
	sigs := d.Tick(now.Add(DefaultReadingSeconds*time.Second + time.Millisecond))
	require.Empty(t, sigs)
	require.Equal(t, PhaseBattle, d.Phase)

	// Battle countdown expiry emits the resolve signal.
	sigs = d.Tick(d.Deadline.Add(time.Millisecond))
	require.Len(t, sigs, 1)
	require.Equal(t, bus.EventTimerExpired, sigs[0].Type)
	require.Equal(t, PhaseIdle, d.Phase)
}

func TestDisplayRederivesTimerFromPersistedDeadline(t *testing.T) {
	// Reconnect case: the START_TIMER broadcast was missed entirely, only
	// the stored deadline survives.
	d := NewDisplay()
	now := time.Now()

	snap := activeSnapshot(1)
	snap.Session.TimerStatus = arena.TimerRunning
	snap.Session.TimerEndAt = now.Add(12 * time.Second)
	d.ApplySnapshot(snap, now)

	require.Equal(t, PhaseBattle, d.Phase)
	require.Equal(t, 12, d.Remaining(now))
}

func TestReconnectConvergence(t *testing.T) {
	// A client that misses every broadcast but follows the durable feed
	// must end up with the same authoritative fields as one that got all
	// the choreography.
	now := time.Now()

	lossy := NewDisplay()
	lucky := NewDisplay()

	launch := bus.Event{Type: bus.EventLaunch, Question: &q1, Stakes: 5}
	lucky.ApplyBroadcast(launch, now)
	lucky.ApplyBroadcast(bus.Event{Type: bus.EventStartTimer, Seconds: 30}, now)

	active := activeSnapshot(1)
	lucky.ApplySnapshot(active, now)
	lossy.ApplySnapshot(active, now)

	resolved := activeSnapshot(2)
	resolved.Session.Status = arena.StatusResolved
	resolved.Session.AnswerA = "Elijah"
	resolved.Session.AnswerB = "Elisha"
	resolved.Session.ShowAnswer = true
	resolved.Session.ScoreA = 5
	resolved.Session.ScoreB = -5
	lucky.ApplyBroadcast(bus.Event{Type: bus.EventResolve, Winner: arena.WinnerA}, now)
	lucky.ApplySnapshot(resolved, now)
	lossy.ApplySnapshot(resolved, now)

	require.Equal(t, lucky.Session.Status, lossy.Session.Status)
	require.Equal(t, lucky.Session.ScoreA, lossy.Session.ScoreA)
	require.Equal(t, lucky.Session.ScoreB, lossy.Session.ScoreB)
	require.Equal(t, lucky.Session.CurrentQuestionID, lossy.Session.CurrentQuestionID)
}

func TestDisplayIgnoresUnknownBroadcast(t *testing.T) {
	d := NewDisplay()
	before := d.Session
	d.ApplyBroadcast(bus.Event{Type: "SOMETHING_NEW"}, time.Now())
	require.Equal(t, before.Status, d.Session.Status)
}

func TestPlayerSubmitGuard(t *testing.T) {
	p := NewPlayer(arena.TeamA)

	// Nothing live yet.
	_, ok := p.Submit("Elijah")
	require.False(t, ok)

	p.ApplySnapshot(activeSnapshot(1))
	sub, ok := p.Submit("Elijah")
	require.True(t, ok)
	require.Equal(t, Submission{Team: arena.TeamA, Option: "Elijah", QuestionID: "q1"}, sub)

	// Local double-tap is swallowed before it ever reaches the store.
	_, ok = p.Submit("Elisha")
	require.False(t, ok)
}

func TestPlayerChoiceResetsOnNewQuestion(t *testing.T) {
	p := NewPlayer(arena.TeamB)
	p.ApplySnapshot(activeSnapshot(1))
	_, ok := p.Submit("Elisha")
	require.True(t, ok)

	next := activeSnapshot(2)
	next.Session.CurrentQuestionID = "q2"
	p.ApplySnapshot(next)
	require.Empty(t, p.Choice)

	sub, ok := p.Submit("Elijah")
	require.True(t, ok)
	require.Equal(t, "q2", sub.QuestionID)
}

func TestPlayerBlockedWhenTeamAnswered(t *testing.T) {
	p := NewPlayer(arena.TeamA)
	snap := activeSnapshot(1)
	snap.Session.AnswerA = "Elisha" // teammate got there first
	p.ApplySnapshot(snap)

	_, ok := p.Submit("Elijah")
	require.False(t, ok)
	require.Equal(t, "Elisha", p.MyAnswer())
}
