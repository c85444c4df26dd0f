package view

import (
	"github.com/escala365/arena-backend/internal/arena"
	"github.com/escala365/arena-backend/internal/bus"
	"github.com/escala365/arena-backend/internal/feed"
)

// Submission is a guarded answer write the player client wants to perform:
// the question id is captured at decision time so the conditional update
// drops it if a new question has since been launched.
type Submission struct {
	Team       arena.Team
	Option     string
	QuestionID string
}

// Player is the phone-client reducer for one team member.
type Player struct {
	Team     arena.Team
	Session  arena.Session
	Revision int64
	Question *arena.Question
	Choice   string
}

func NewPlayer(team arena.Team) *Player {
	return &Player{Team: team, Session: arena.NewSession()}
}

func (p *Player) ApplySnapshot(snap feed.Snapshot) {
	if snap.Revision <= p.Revision && p.Revision != 0 {
		return
	}
	prevQuestion := p.Session.CurrentQuestionID
	p.Revision = snap.Revision
	p.Session = snap.Session

	if p.Session.CurrentQuestionID != prevQuestion {
		p.Choice = ""
		if p.Question != nil && p.Question.ID != p.Session.CurrentQuestionID {
			p.Question = nil
		}
	}
}

func (p *Player) ApplyBroadcast(ev bus.Event) {
	switch ev.Type {
	case bus.EventLaunch:
		if ev.Question == nil {
			return
		}
		p.Question = ev.Question
		p.Session.Status = arena.StatusActive
		p.Session.CurrentQuestionID = ev.Question.ID
		p.Session.AnswerA = ""
		p.Session.AnswerB = ""
		p.Session.ShowAnswer = false
		p.Choice = ""
	case bus.EventShowAnswer:
		p.Session.ShowAnswer = ev.Show
	case bus.EventReset:
		p.Question = nil
		p.Choice = ""
	}
}

// MyAnswer is the answer already locked for this player's team, if any.
func (p *Player) MyAnswer() string { return p.Session.Answer(p.Team) }

// Submit checks the local preconditions and returns the guarded write to
// perform. ok is false when the round is not ACTIVE, no question is live,
// or the team already answered; the caller then does nothing.
func (p *Player) Submit(option string) (Submission, bool) {
	if p.Session.Status != arena.StatusActive || p.Session.CurrentQuestionID == "" {
		return Submission{}, false
	}
	if p.MyAnswer() != "" || p.Choice != "" {
		return Submission{}, false
	}
	p.Choice = option
	return Submission{
		Team:       p.Team,
		Option:     option,
		QuestionID: p.Session.CurrentQuestionID,
	}, true
}
