// Package bus is the ephemeral broadcast channel: best-effort, at-most-once
// fan-out for time-sensitive choreography (countdown start, reveal, spin,
// reset-now). A dropped event is never an error; every transition it
// announces is also recoverable from the durable feed or a session poll.
package bus

import (
	"context"

	"github.com/escala365/arena-backend/internal/arena"
)

type EventType string

const (
	EventSpin         EventType = "SPIN"
	EventLaunch       EventType = "LAUNCH_QUESTION"
	EventResolve      EventType = "RESOLVE"
	EventShowAnswer   EventType = "SHOW_ANSWER"
	EventStartTimer   EventType = "START_TIMER"
	EventUpdateStakes EventType = "UPDATE_STAKES"
	EventCoinFlip     EventType = "COIN_FLIP"
	EventReset        EventType = "RESET"
	EventForceReload  EventType = "FORCE_RELOAD"
	EventVSAnimation  EventType = "TRIGGER_VS_ANIMATION"
	// Client -> moderator auto-resolve signals.
	EventBothAnswered EventType = "BOTH_ANSWERED"
	EventTimerExpired EventType = "TIMER_EXPIRED"
)

type Event struct {
	Type     EventType       `json:"type"`
	Category string          `json:"category,omitempty"`
	Question *arena.Question `json:"question,omitempty"`
	Winner   arena.Winner    `json:"winner,omitempty"`
	Team     arena.Team      `json:"team,omitempty"`
	Show     bool            `json:"show,omitempty"`
	Seconds  int             `json:"seconds,omitempty"`
	Stakes   int             `json:"stakes,omitempty"`
	Fields   []string        `json:"fields,omitempty"`
}

// EphemeralBus is the at-most-once half of the dual-channel model.
type EphemeralBus interface {
	Subscribe(id string, outbox chan Event)
	Unsubscribe(id string)
	Publish(ev Event)
}

type Msg interface{ isBusMsg() }

type Subscribe struct {
	ID     string
	Outbox chan Event
}

type Unsubscribe struct{ ID string }

type Publish struct{ Event Event }

func (Subscribe) isBusMsg()   {}
func (Unsubscribe) isBusMsg() {}
func (Publish) isBusMsg()     {}

type Bus struct {
	inbox   chan Msg
	clients map[string]chan Event
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context) *Bus {
	ctx, cancel := context.WithCancel(parent)
	b := &Bus{
		inbox:   make(chan Msg, 64),
		clients: make(map[string]chan Event),
		ctx:     ctx,
		cancel:  cancel,
	}
	go b.loop()
	return b
}

func (b *Bus) Subscribe(id string, outbox chan Event) {
	b.inbox <- Subscribe{ID: id, Outbox: outbox}
}

func (b *Bus) Unsubscribe(id string) { b.inbox <- Unsubscribe{ID: id} }

func (b *Bus) Publish(ev Event) { b.inbox <- Publish{Event: ev} }

func (b *Bus) loop() {
	for {
		select {
		case <-b.ctx.Done():
			b.shutdown()
			return

		case m := <-b.inbox:
			switch msg := m.(type) {
			case Subscribe:
				b.clients[msg.ID] = msg.Outbox

			case Unsubscribe:
				delete(b.clients, msg.ID)

			case Publish:
				for _, ch := range b.clients {
					select {
					case ch <- msg.Event:
					default:
						// Best effort: a full outbox just misses this one.
					}
				}
			}
		}
	}
}

func (b *Bus) shutdown() {
	for id, ch := range b.clients {
		close(ch)
		delete(b.clients, id)
	}
	b.cancel()
}
