package arena

import (
	"math/rand"
	"time"
)

// pickIndex is a package var so tests can pin the spin and coin flip.
var pickIndex = func(n int) int { return rand.Intn(n) }

// Apply validates cmd against s and returns the events it produced plus the
// next session state. s is never mutated; on error the returned state is s
// unchanged. A guarded answer submission whose condition no longer holds
// produces no events and no error: that race is expected, not a fault.
func Apply(s Session, cmd Command) ([]Event, Session, error) {
	next := clone(s)

	switch cmd.Type {
	case CmdSpin:
		if len(cmd.Categories) == 0 {
			return nil, s, ErrEmptyPool
		}
		cat := cmd.Categories[pickIndex(len(cmd.Categories))]
		next.Status = StatusSpinning
		next.RouletteCategory = cat
		next.CurrentQuestionID = ""
		next.AnswerA = ""
		next.AnswerB = ""
		next.ShowAnswer = false
		return []Event{{Type: EvtCategorySpun, Category: cat}}, next, nil

	case CmdLaunch:
		if cmd.Question == nil {
			return nil, s, ErrNoLiveQuestion
		}
		if s.Status == StatusActive {
			return nil, s, ErrQuestionInFlight
		}
		stakes := cmd.Stakes
		if stakes <= 0 {
			stakes = StakesFor(cmd.Question.Difficulty)
		}
		next.Status = StatusActive
		next.CurrentQuestionID = cmd.Question.ID
		next.StakesXP = stakes
		next.UsedQuestions[cmd.Question.ID] = true
		next.AnswerA = ""
		next.AnswerB = ""
		next.ShowAnswer = false
		next.TimerStatus = TimerStopped
		next.TimerEndAt = time.Time{}
		return []Event{{Type: EvtQuestionLaunched, Question: cmd.Question, Stakes: stakes}}, next, nil

	case CmdSubmitAnswer:
		// Optimistic guard: the question the player saw must still be live,
		// the round ACTIVE, and the team slot empty. Any mismatch is a
		// silent no-op.
		if s.Status != StatusActive || cmd.SeenQuestionID != s.CurrentQuestionID || s.Answer(cmd.Team) != "" {
			return nil, s, nil
		}
		if cmd.Team == TeamA {
			next.AnswerA = cmd.Option
		} else {
			next.AnswerB = cmd.Option
		}
		return []Event{{Type: EvtAnswerLocked, Team: cmd.Team}}, next, nil

	case CmdResolve:
		if s.Status == StatusResolved {
			return nil, s, nil // idempotent
		}
		if s.Status != StatusActive || s.CurrentQuestionID == "" {
			return nil, s, ErrNoLiveQuestion
		}
		ev := settle(&next, cmd.Correct)
		next.Status = StatusResolved
		next.ShowAnswer = true
		return []Event{ev}, next, nil

	case CmdSetStakes:
		if cmd.Stakes < 0 {
			return nil, s, ErrNegativeStakes
		}
		next.StakesXP = cmd.Stakes
		return []Event{{Type: EvtStakesChanged, Stakes: cmd.Stakes}}, next, nil

	case CmdShowAnswer:
		next.ShowAnswer = cmd.Show
		return []Event{{Type: EvtAnswerRevealed, Show: cmd.Show}}, next, nil

	case CmdCoinFlip:
		teams := []Team{TeamA, TeamB}
		win := teams[pickIndex(len(teams))]
		next.LastCoinFlip = win
		return []Event{{Type: EvtCoinFlipped, Team: win}}, next, nil

	case CmdStartTimer:
		next.TimerStatus = TimerRunning
		next.TimerEndAt = cmd.Now.Add(time.Duration(cmd.Seconds) * time.Second)
		return []Event{{Type: EvtTimerStarted, Seconds: cmd.Seconds}}, next, nil

	case CmdSetGladiators:
		next.GladiatorA = cmd.GladiatorA
		next.GladiatorB = cmd.GladiatorB
		return nil, next, nil

	case CmdSoftReset:
		clearRound(&next)
		return []Event{{Type: EvtSessionReset}}, next, nil

	case CmdFullReset:
		if !cmd.Confirm {
			return nil, s, ErrNotConfirmed
		}
		next = NewSession()
		return []Event{{Type: EvtSessionReset, FullReload: true}}, next, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// clearRound drops the current round fields but keeps scores, pot, the used
// set and the configured stakes.
func clearRound(s *Session) {
	s.Status = StatusWaiting
	s.CurrentQuestionID = ""
	s.RouletteCategory = ""
	s.AnswerA = ""
	s.AnswerB = ""
	s.ShowAnswer = false
	s.TimerStatus = TimerStopped
	s.TimerEndAt = time.Time{}
}

func clone(s Session) Session {
	next := s
	next.UsedQuestions = make(map[string]bool, len(s.UsedQuestions))
	for id := range s.UsedQuestions {
		next.UsedQuestions[id] = true
	}
	return next
}
