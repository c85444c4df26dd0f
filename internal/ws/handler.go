package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/escala365/arena-backend/internal/arena"
	"github.com/escala365/arena-backend/internal/bus"
	"github.com/escala365/arena-backend/internal/feed"
	"github.com/escala365/arena-backend/internal/moderator"
	"github.com/escala365/arena-backend/internal/roster"
	"github.com/escala365/arena-backend/internal/store"
	"github.com/escala365/arena-backend/pkg/types"
)

const (
	RoleModerator = "moderator"
	RoleDisplay   = "display"
	RolePlayer    = "player"
)

type Deps struct {
	Controller *moderator.Controller
	Feed       feed.DurableChangeFeed
	Bus        bus.EphemeralBus
	Store      store.SessionStore
	Roster     *roster.Roster
	Log        *zap.Logger
}

// Handler upgrades a client of any of the three roles. Every connection
// receives both streams (durable snapshots + ephemeral broadcasts); what
// it may send back depends on the role.
func Handler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := r.URL.Query().Get("role")
		agentID := r.URL.Query().Get("agent")
		switch role {
		case RoleModerator, RoleDisplay:
		case RolePlayer:
			if agentID == "" {
				http.Error(w, "player role requires agent", http.StatusBadRequest)
				return
			}
		default:
			http.Error(w, "unknown role", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := role + "-" + uuid.NewString()
		snapOut := make(chan feed.Snapshot, 8)
		evOut := make(chan bus.Event, 16)
		d.Feed.Subscribe(clientID, snapOut)
		d.Bus.Subscribe(clientID, evOut)
		defer func() {
			d.Feed.Unsubscribe(clientID)
			d.Bus.Unsubscribe(clientID)
		}()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go writer(writeCtx, conn, snapOut, evOut)

		reader(r.Context(), conn, role, agentID, d)
	}
}

func writer(ctx context.Context, conn *websocket.Conn, snaps <-chan feed.Snapshot, events <-chan bus.Event) {
	for {
		var msg types.ServerMessage
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				// Dropped as a slow subscriber; closing makes the client
				// reconnect and replay from the store.
				conn.Close(websocket.StatusTryAgainLater, "resubscribe")
				return
			}
			msg = types.ServerMessage{Type: "StateSnapshot", Revision: snap.Revision, State: &snap.Session}
		case ev, ok := <-events:
			if !ok {
				return
			}
			msg = types.ServerMessage{Type: "Broadcast", Event: &ev}
		}

		payload, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		_ = conn.Write(wctx, websocket.MessageText, payload)
		cancel()
	}
}

func reader(ctx context.Context, conn *websocket.Conn, role, agentID string, d Deps) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			writeError(ctx, conn, "bad json")
			continue
		}

		switch role {
		case RolePlayer:
			handlePlayer(ctx, conn, agentID, cm, d)
		case RoleDisplay:
			handleDisplay(cm, d)
		case RoleModerator:
			handleModerator(ctx, conn, cm, d)
		}
	}
}

func handlePlayer(ctx context.Context, conn *websocket.Conn, agentID string, cm types.ClientMessage, d Deps) {
	switch cm.Type {
	case "SubmitAnswer":
		team, ok, err := d.Roster.TeamOf(ctx, agentID)
		if err != nil {
			d.Log.Warn("roster lookup failed", zap.String("agent", agentID), zap.Error(err))
			return
		}
		if !ok {
			writeError(ctx, conn, "not assigned to a team")
			return
		}
		applied, _, err := d.Store.SubmitAnswer(ctx, team, cm.Option, cm.SeenQuestionID)
		if err != nil {
			d.Log.Warn("submit answer failed", zap.String("agent", agentID), zap.Error(err))
			return
		}
		if applied {
			d.Controller.Inbox() <- moderator.AnswerApplied{}
		}
		// A rejected condition is an expected race, not an error; say
		// nothing and let the next snapshot tell the client what happened.
	case "BothAnswered", "TimerExpired":
		relaySignal(cm.Type, d)
	}
}

func handleDisplay(cm types.ClientMessage, d Deps) {
	switch cm.Type {
	case "BothAnswered", "TimerExpired":
		relaySignal(cm.Type, d)
	}
}

func relaySignal(kind string, d Deps) {
	origin := bus.EventBothAnswered
	if kind == "TimerExpired" {
		origin = bus.EventTimerExpired
	}
	d.Controller.Inbox() <- moderator.ResolveSignal{Origin: origin}
}

func handleModerator(ctx context.Context, conn *websocket.Conn, cm types.ClientMessage, d Deps) {
	cmd, ok := toCommand(cm)
	if !ok {
		writeError(ctx, conn, "unknown type")
		return
	}
	reply := make(chan error, 1)
	d.Controller.Inbox() <- moderator.Do{Cmd: cmd, Reply: reply}
	select {
	case err := <-reply:
		if err != nil {
			writeError(ctx, conn, err.Error())
		}
	case <-ctx.Done():
	}
}

func toCommand(m types.ClientMessage) (moderator.Command, bool) {
	switch m.Type {
	case "Spin":
		return moderator.Command{Type: arena.CmdSpin}, true
	case "Launch":
		return moderator.Command{Type: arena.CmdLaunch, QuestionID: m.QuestionID, Stakes: m.Stakes}, true
	case "Resolve":
		return moderator.Command{Type: arena.CmdResolve}, true
	case "SetStakes":
		return moderator.Command{Type: arena.CmdSetStakes, Stakes: m.Stakes}, true
	case "ShowAnswer":
		return moderator.Command{Type: arena.CmdShowAnswer, Show: m.Show}, true
	case "CoinFlip":
		return moderator.Command{Type: arena.CmdCoinFlip}, true
	case "StartTimer":
		return moderator.Command{Type: arena.CmdStartTimer, Seconds: m.Seconds}, true
	case "SetGladiators":
		return moderator.Command{Type: arena.CmdSetGladiators, GladiatorA: m.GladiatorA, GladiatorB: m.GladiatorB}, true
	case "SoftReset":
		return moderator.Command{Type: arena.CmdSoftReset}, true
	case "FullReset":
		return moderator.Command{Type: arena.CmdFullReset, Confirm: m.Confirm}, true
	case "VSAnimation":
		return moderator.Command{VSAnimation: true}, true
	default:
		return moderator.Command{}, false
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "Error", Error: msg})
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}
