// Package moderator runs the round state machine. The controller is the
// only writer of match-altering state: every status transition, launch,
// resolution and reset funnels through its single goroutine, which
// serializes redundant auto-resolve triggers and keeps resolution
// idempotent.
package moderator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/escala365/arena-backend/internal/arena"
	"github.com/escala365/arena-backend/internal/bus"
	"github.com/escala365/arena-backend/internal/feed"
	"github.com/escala365/arena-backend/internal/ledger"
	"github.com/escala365/arena-backend/internal/store"
)

// QuestionSource is the read-only slice of the question bank the
// controller needs.
type QuestionSource interface {
	Get(ctx context.Context, id string) (arena.Question, error)
	CategoriesExcluding(ctx context.Context, used []string) ([]string, error)
}

// Command is a moderator console intent. The controller enriches it into a
// full arena command (fetching questions, listing spin categories) before
// applying it.
type Command struct {
	Type        arena.CommandType
	QuestionID  string
	Stakes      int
	Show        bool
	Seconds     int
	GladiatorA  string
	GladiatorB  string
	Confirm     bool
	VSAnimation bool // pure choreography, no state change
}

type Msg interface{ isModeratorMsg() }

type Do struct {
	Cmd   Command
	Reply chan error
}

// ResolveSignal is an ephemeral auto-resolve trigger: a display observed
// both answers in, or the battle countdown expired. Multiple arrivals for
// the same round are expected and harmless.
type ResolveSignal struct {
	Origin bus.EventType
}

// AnswerApplied pokes the controller after a player's conditional write
// succeeded so the change fans out through the durable feed.
type AnswerApplied struct{}

type Shutdown struct{}

func (Do) isModeratorMsg()            {}
func (ResolveSignal) isModeratorMsg() {}
func (AnswerApplied) isModeratorMsg() {}
func (Shutdown) isModeratorMsg()      {}

type Controller struct {
	inbox  chan Msg
	store  store.SessionStore
	bank   QuestionSource
	ledger ledger.Ledger
	feed   feed.DurableChangeFeed
	bus    bus.EphemeralBus
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, st store.SessionStore, qs QuestionSource, lg ledger.Ledger, f feed.DurableChangeFeed, b bus.EphemeralBus, log *zap.Logger) *Controller {
	ctx, cancel := context.WithCancel(parent)
	c := &Controller{
		inbox:  make(chan Msg, 64),
		store:  st,
		bank:   qs,
		ledger: lg,
		feed:   f,
		bus:    b,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go c.loop()
	return c
}

func (c *Controller) Inbox() chan<- Msg { return c.inbox }

func (c *Controller) loop() {
	for {
		select {
		case <-c.ctx.Done():
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case Do:
				err := c.handle(msg.Cmd)
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case ResolveSignal:
				// Resolution is never player-initiated; the signal only
				// asks the moderator to run it. Races with resets or an
				// already-resolved round are silent.
				err := c.handle(Command{Type: arena.CmdResolve})
				if err != nil && !errors.Is(err, arena.ErrNoLiveQuestion) {
					c.log.Warn("auto-resolve failed", zap.String("origin", string(msg.Origin)), zap.Error(err))
				}

			case AnswerApplied:
				c.feed.PublishLatest()

			case Shutdown:
				c.cancel()
				return
			}
		}
	}
}

func (c *Controller) handle(cmd Command) error {
	if cmd.VSAnimation {
		c.bus.Publish(bus.Event{Type: bus.EventVSAnimation})
		return nil
	}

	// Player answers bypass the actor via the conditional store write, so
	// the authoritative state is always re-read, never cached.
	session, _, err := c.store.Load(c.ctx)
	if err != nil {
		return err
	}

	acmd, err := c.enrich(session, cmd)
	if err != nil {
		return err
	}

	events, next, err := arena.Apply(session, acmd)
	if err != nil {
		return err
	}
	if len(events) == 0 && acmd.Type != arena.CmdSetGladiators {
		return nil // idempotent no-op (e.g. resolve on RESOLVED)
	}

	rev, err := c.store.Save(c.ctx, next)
	if err != nil {
		return err
	}
	c.feed.Publish(feed.Snapshot{Revision: rev, Session: next})

	for _, ev := range events {
		c.announce(ev)
		if ev.Type == arena.EvtRoundResolved {
			c.mirrorToGladiators(next, ev)
		}
	}
	return nil
}

// enrich turns a console intent into a full arena command.
func (c *Controller) enrich(session arena.Session, cmd Command) (arena.Command, error) {
	acmd := arena.Command{
		Type:       cmd.Type,
		Stakes:     cmd.Stakes,
		Show:       cmd.Show,
		Seconds:    cmd.Seconds,
		Now:        time.Now(),
		GladiatorA: cmd.GladiatorA,
		GladiatorB: cmd.GladiatorB,
		Confirm:    cmd.Confirm,
	}

	switch cmd.Type {
	case arena.CmdSpin:
		used := make([]string, 0, len(session.UsedQuestions))
		for id := range session.UsedQuestions {
			used = append(used, id)
		}
		cats, err := c.bank.CategoriesExcluding(c.ctx, used)
		if err != nil {
			return arena.Command{}, err
		}
		acmd.Categories = cats

	case arena.CmdLaunch:
		q, err := c.bank.Get(c.ctx, cmd.QuestionID)
		if err != nil {
			return arena.Command{}, err
		}
		acmd.Question = &q

	case arena.CmdResolve:
		if session.CurrentQuestionID == "" {
			return arena.Command{}, arena.ErrNoLiveQuestion
		}
		q, err := c.bank.Get(c.ctx, session.CurrentQuestionID)
		if err != nil {
			return arena.Command{}, err
		}
		acmd.Correct = q.CorrectAnswer
	}
	return acmd, nil
}

func (c *Controller) announce(ev arena.Event) {
	switch ev.Type {
	case arena.EvtCategorySpun:
		c.bus.Publish(bus.Event{Type: bus.EventSpin, Category: ev.Category})
	case arena.EvtQuestionLaunched:
		c.bus.Publish(bus.Event{Type: bus.EventLaunch, Question: ev.Question, Stakes: ev.Stakes})
	case arena.EvtRoundResolved:
		c.bus.Publish(bus.Event{Type: bus.EventResolve, Winner: ev.Winner})
	case arena.EvtStakesChanged:
		c.bus.Publish(bus.Event{Type: bus.EventUpdateStakes, Stakes: ev.Stakes})
	case arena.EvtAnswerRevealed:
		c.bus.Publish(bus.Event{Type: bus.EventShowAnswer, Show: ev.Show})
	case arena.EvtCoinFlipped:
		c.bus.Publish(bus.Event{Type: bus.EventCoinFlip, Team: ev.Team})
	case arena.EvtTimerStarted:
		c.bus.Publish(bus.Event{Type: bus.EventStartTimer, Seconds: ev.Seconds})
	case arena.EvtSessionReset:
		fields := []string{"round"}
		if ev.FullReload {
			fields = []string{"all"}
		}
		c.bus.Publish(bus.Event{Type: bus.EventReset, Fields: fields})
		if ev.FullReload {
			// Blunt recovery: every client throws away local state.
			c.bus.Publish(bus.Event{Type: bus.EventForceReload})
		}
	}
}

// mirrorToGladiators applies the round's signed deltas to the individual
// representatives' XP ledgers. This is a second, parallel zero-sum
// transfer keyed to the same outcome, not derived from team scores. A
// failed call is logged and left to the full-reset recovery path; the team
// scores are already committed.
func (c *Controller) mirrorToGladiators(s arena.Session, ev arena.Event) {
	if s.GladiatorA == "" || s.GladiatorB == "" {
		return
	}
	if err := c.ledger.CreditDebit(c.ctx, s.GladiatorA, ev.Award); err != nil {
		c.log.Error("ledger transfer failed", zap.String("agent", s.GladiatorA), zap.Int("amount", ev.Award), zap.Error(err))
	}
	if err := c.ledger.CreditDebit(c.ctx, s.GladiatorB, ev.AwardB); err != nil {
		c.log.Error("ledger transfer failed", zap.String("agent", s.GladiatorB), zap.Int("amount", ev.AwardB), zap.Error(err))
	}
}
