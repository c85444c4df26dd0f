package arena

// DecideWinner compares both submitted answers against the correct option
// by exact string match.
func DecideWinner(correct, answerA, answerB string) Winner {
	isA := answerA != "" && answerA == correct
	isB := answerB != "" && answerB == correct
	switch {
	case isA && !isB:
		return WinnerA
	case isB && !isA:
		return WinnerB
	case isA && isB:
		return WinnerTie
	default:
		return WinnerNone
	}
}

// settle applies the round outcome to s and returns the RoundResolved event
// carrying the signed gladiator deltas. The transfer is zero-sum for A/B
// wins; a TIE rolls the stakes into the pot; NONE burns the stakes from
// both teams and forfeits any rolled-over pot.
func settle(s *Session, correct string) Event {
	w := DecideWinner(correct, s.AnswerA, s.AnswerB)
	total := s.StakesXP + s.AccumulatedPot

	ev := Event{Type: EvtRoundResolved, Winner: w}
	switch w {
	case WinnerA:
		s.ScoreA += total
		s.ScoreB -= total
		s.AccumulatedPot = 0
		ev.Award, ev.AwardB = total, -total
	case WinnerB:
		s.ScoreB += total
		s.ScoreA -= total
		s.AccumulatedPot = 0
		ev.Award, ev.AwardB = -total, total
	case WinnerTie:
		// Stakes defer to the next round; no transfer now.
		s.AccumulatedPot += s.StakesXP
	case WinnerNone:
		s.ScoreA -= s.StakesXP
		s.ScoreB -= s.StakesXP
		s.AccumulatedPot = 0
		ev.Award, ev.AwardB = -s.StakesXP, -s.StakesXP
	}
	return ev
}
