package feed

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/escala365/arena-backend/internal/arena"
	"github.com/escala365/arena-backend/internal/store"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
	}
}

func TestSubscribeReplaysLatestRecord(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := arena.NewSession()
	s.ScoreA = 7
	st := store.NewMemory(s)
	st.Save(ctx, s) // revision 1

	f := New(ctx, st, zap.NewNop())

	out := make(chan Snapshot, 2)
	f.Subscribe("c1", out)

	snap := recvSnapshot(t, out, 100*time.Millisecond)
	if snap.Revision != 1 || snap.Session.ScoreA != 7 {
		t.Fatalf("subscribe must replay the stored record, got %+v", snap)
	}
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewMemory(arena.NewSession())
	f := New(ctx, st, zap.NewNop())

	out1 := make(chan Snapshot, 2)
	out2 := make(chan Snapshot, 2)
	f.Subscribe("c1", out1)
	f.Subscribe("c2", out2)
	recvSnapshot(t, out1, 100*time.Millisecond)
	recvSnapshot(t, out2, 100*time.Millisecond)

	s := arena.NewSession()
	s.Status = arena.StatusSpinning
	f.Publish(Snapshot{Revision: 1, Session: s})

	for _, out := range []chan Snapshot{out1, out2} {
		snap := recvSnapshot(t, out, 100*time.Millisecond)
		if snap.Session.Status != arena.StatusSpinning {
			t.Fatalf("want SPINNING, got %+v", snap)
		}
	}
}

func TestPublishLatestReadsBackTheStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewMemory(arena.NewSession())
	f := New(ctx, st, zap.NewNop())

	out := make(chan Snapshot, 2)
	f.Subscribe("c1", out)
	recvSnapshot(t, out, 100*time.Millisecond)

	// A player's conditional write lands in the store without going
	// through the feed; PublishLatest picks it up.
	s := arena.NewSession()
	s.Status = arena.StatusActive
	s.CurrentQuestionID = "q1"
	st.Save(ctx, s)
	ok, _, _ := st.SubmitAnswer(ctx, arena.TeamA, "Elijah", "q1")
	if !ok {
		t.Fatalf("submit should apply")
	}

	f.PublishLatest()
	snap := recvSnapshot(t, out, 100*time.Millisecond)
	if snap.Session.AnswerA != "Elijah" || snap.Revision != 2 {
		t.Fatalf("latest record not replayed: %+v", snap)
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewMemory(arena.NewSession())
	f := New(ctx, st, zap.NewNop())

	out := make(chan Snapshot, 1)
	f.Subscribe("c1", out) // join snapshot fills the buffer

	f.Publish(Snapshot{Revision: 1, Session: arena.NewSession()})
	f.Publish(Snapshot{Revision: 2, Session: arena.NewSession()})

	// The channel is closed once the client stalls; state is still fully
	// recoverable by resubscribing.
	recvSnapshot(t, out, 100*time.Millisecond) // drain the join snapshot
	recvNoSnapshot(t, out, 100*time.Millisecond)

	out2 := make(chan Snapshot, 2)
	f.Subscribe("c1", out2)
	recvSnapshot(t, out2, 100*time.Millisecond)
}
