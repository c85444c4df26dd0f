// Package feed replicates Session Store changes to every subscribed
// client. It is the durable propagation path: delivery is at-least-once,
// snapshots carry the store revision, and a subscriber that misses
// anything converges by resubscribing (the feed replays the latest record
// from the store on every subscribe).
package feed

import (
	"context"

	"go.uber.org/zap"

	"github.com/escala365/arena-backend/internal/arena"
	"github.com/escala365/arena-backend/internal/store"
)

// Snapshot is one observed version of the arena session. Consumers
// reconcile duplicates by revision: anything at or below what they have
// already seen is discarded.
type Snapshot struct {
	Revision int64         `json:"revision"`
	Session  arena.Session `json:"session"`
}

// DurableChangeFeed is the at-least-once half of the dual-channel model. A
// reimplementation can swap the transport without touching game logic.
type DurableChangeFeed interface {
	Subscribe(id string, outbox chan Snapshot)
	Unsubscribe(id string)
	Publish(snap Snapshot)
	PublishLatest()
}

type Msg interface{ isFeedMsg() }

type Subscribe struct {
	ID     string
	Outbox chan Snapshot
}

type Unsubscribe struct{ ID string }

type Publish struct{ Snap Snapshot }

// PublishLatest reloads the record from the store and fans it out. Guarded
// answer writes use it: the CAS happens at the storage layer, so the feed
// only learns the outcome by reading back.
type PublishLatest struct{}

func (Subscribe) isFeedMsg()     {}
func (Unsubscribe) isFeedMsg()   {}
func (Publish) isFeedMsg()       {}
func (PublishLatest) isFeedMsg() {}

type Feed struct {
	inbox   chan Msg
	store   store.SessionStore
	clients map[string]chan Snapshot
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, st store.SessionStore, log *zap.Logger) *Feed {
	ctx, cancel := context.WithCancel(parent)
	f := &Feed{
		inbox:   make(chan Msg, 64),
		store:   st,
		clients: make(map[string]chan Snapshot),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go f.loop()
	return f
}

func (f *Feed) Subscribe(id string, outbox chan Snapshot) {
	f.inbox <- Subscribe{ID: id, Outbox: outbox}
}

func (f *Feed) Unsubscribe(id string) { f.inbox <- Unsubscribe{ID: id} }

func (f *Feed) Publish(snap Snapshot) { f.inbox <- Publish{Snap: snap} }

func (f *Feed) PublishLatest() { f.inbox <- PublishLatest{} }

func (f *Feed) loop() {
	for {
		select {
		case <-f.ctx.Done():
			f.shutdown()
			return

		case m := <-f.inbox:
			switch msg := m.(type) {
			case Subscribe:
				f.clients[msg.ID] = msg.Outbox
				// Replay the authoritative record so a reconnecting client
				// rebuilds full state without any broadcast history.
				if snap, ok := f.latest(); ok {
					msg.Outbox <- snap
				}

			case Unsubscribe:
				delete(f.clients, msg.ID)

			case Publish:
				f.fanout(msg.Snap)

			case PublishLatest:
				if snap, ok := f.latest(); ok {
					f.fanout(snap)
				}
			}
		}
	}
}

func (f *Feed) latest() (Snapshot, bool) {
	s, rev, err := f.store.Load(f.ctx)
	if err != nil {
		f.log.Warn("feed: load session failed", zap.Error(err))
		return Snapshot{}, false
	}
	return Snapshot{Revision: rev, Session: s}, true
}

func (f *Feed) fanout(snap Snapshot) {
	for id, ch := range f.clients {
		select {
		case ch <- snap:
		default:
			// A stalled client is cut off; it recovers by resubscribing,
			// which replays the latest record.
			close(ch)
			delete(f.clients, id)
			f.log.Warn("feed: dropped slow subscriber", zap.String("client", id))
		}
	}
}

func (f *Feed) shutdown() {
	for id, ch := range f.clients {
		close(ch)
		delete(f.clients, id)
	}
	f.cancel()
}
