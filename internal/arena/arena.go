package arena

import (
	"errors"
	"time"
)

var ErrEmptyPool = errors.New("no unused questions in the bank")
var ErrNoLiveQuestion = errors.New("no live question")
var ErrQuestionInFlight = errors.New("a question is already live")
var ErrNegativeStakes = errors.New("stakes must be >= 0")
var ErrNotConfirmed = errors.New("full reset requires confirmation")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusSpinning Status = "SPINNING"
	StatusActive   Status = "ACTIVE"
	StatusResolved Status = "RESOLVED"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

type Winner string

const (
	WinnerA    Winner = "A"
	WinnerB    Winner = "B"
	WinnerTie  Winner = "TIE"
	WinnerNone Winner = "NONE"
)

type TimerStatus string

const (
	TimerStopped TimerStatus = "STOPPED"
	TimerRunning TimerStatus = "RUNNING"
)

// Question is immutable once imported. The session references it by ID and
// never embeds it.
type Question struct {
	ID            string     `json:"id"`
	Category      string     `json:"category"`
	Difficulty    Difficulty `json:"difficulty"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correctAnswer"`
	Reference     string     `json:"reference,omitempty"`
	ImageURL      string     `json:"imageUrl,omitempty"`
}

// Session is the singleton authoritative match record. Empty strings stand
// in for "unset"; the zero time means no deadline.
type Session struct {
	Status            Status          `json:"status"`
	CurrentQuestionID string          `json:"current_question_id,omitempty"`
	RouletteCategory  string          `json:"roulette_category,omitempty"`
	AnswerA           string          `json:"answer_a,omitempty"`
	AnswerB           string          `json:"answer_b,omitempty"`
	ShowAnswer        bool            `json:"show_answer"`
	UsedQuestions     map[string]bool `json:"used_questions"`
	StakesXP          int             `json:"stakes_xp"`
	AccumulatedPot    int             `json:"accumulated_pot"`
	ScoreA            int             `json:"score_a"`
	ScoreB            int             `json:"score_b"`
	GladiatorA        string          `json:"gladiator_a_id,omitempty"`
	GladiatorB        string          `json:"gladiator_b_id,omitempty"`
	LastCoinFlip      Team            `json:"last_coin_flip,omitempty"`
	TimerStatus       TimerStatus     `json:"timer_status"`
	TimerEndAt        time.Time       `json:"timer_end_at,omitempty"`
}

const DefaultStakes = 5

func NewSession() Session {
	return Session{
		Status:        StatusWaiting,
		UsedQuestions: map[string]bool{},
		StakesXP:      DefaultStakes,
		TimerStatus:   TimerStopped,
	}
}

// StakesFor maps difficulty to the default wager for a round.
func StakesFor(d Difficulty) int {
	switch d {
	case DifficultyEasy:
		return 2
	case DifficultyHard:
		return 15
	default:
		return DefaultStakes
	}
}

// Answer returns the team's submitted answer for the live question.
func (s Session) Answer(t Team) string {
	if t == TeamA {
		return s.AnswerA
	}
	return s.AnswerB
}

type CommandType string

const (
	CmdSpin          CommandType = "Spin"
	CmdLaunch        CommandType = "Launch"
	CmdSubmitAnswer  CommandType = "SubmitAnswer"
	CmdResolve       CommandType = "Resolve"
	CmdSetStakes     CommandType = "SetStakes"
	CmdShowAnswer    CommandType = "ShowAnswer"
	CmdCoinFlip      CommandType = "CoinFlip"
	CmdStartTimer    CommandType = "StartTimer"
	CmdSetGladiators CommandType = "SetGladiators"
	CmdSoftReset     CommandType = "SoftReset"
	CmdFullReset     CommandType = "FullReset"
)

type Command struct {
	Type CommandType

	// Spin
	Categories []string

	// Launch
	Question *Question
	Stakes   int // 0 = derive from difficulty

	// SubmitAnswer
	Team           Team
	Option         string
	SeenQuestionID string

	// Resolve
	Correct string

	// ShowAnswer
	Show bool

	// StartTimer
	Seconds int
	Now     time.Time

	// SetGladiators
	GladiatorA string
	GladiatorB string

	// FullReset
	Confirm bool
}

type EventType string

const (
	EvtCategorySpun     EventType = "CategorySpun"
	EvtQuestionLaunched EventType = "QuestionLaunched"
	EvtAnswerLocked     EventType = "AnswerLocked"
	EvtRoundResolved    EventType = "RoundResolved"
	EvtStakesChanged    EventType = "StakesChanged"
	EvtAnswerRevealed   EventType = "AnswerRevealed"
	EvtCoinFlipped      EventType = "CoinFlipped"
	EvtTimerStarted     EventType = "TimerStarted"
	EvtSessionReset     EventType = "SessionReset"
)

type Event struct {
	Type       EventType
	Team       Team
	Category   string
	Question   *Question
	Winner     Winner
	Award      int // signed XP applied to team A's gladiator; B mirrors
	AwardB     int
	Show       bool
	Seconds    int
	Stakes     int
	FullReload bool
}
