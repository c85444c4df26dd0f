// Package store persists the singleton arena session. All durable reads and
// writes of match state go through it; every client can rebuild full state
// from the record alone.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/escala365/arena-backend/internal/arena"
)

var ErrNotFound = errors.New("arena session not found")

// SessionStore is the single shared mutable resource of the game. The
// moderator controller is the only caller of Save; players reach the record
// only through the conditional SubmitAnswer write.
type SessionStore interface {
	Load(ctx context.Context) (arena.Session, int64, error)
	Save(ctx context.Context, s arena.Session) (int64, error)
	// SubmitAnswer sets the team's answer iff the round is ACTIVE, the live
	// question still matches questionID and the slot is empty. It reports
	// whether the write applied; a failed condition is not an error.
	SubmitAnswer(ctx context.Context, team arena.Team, option, questionID string) (bool, int64, error)
}

// sessionRecord is the gorm row backing the session. used_questions is a
// JSON-encoded id list; revision increments on every write and drives the
// change feed.
type sessionRecord struct {
	ID                uint   `gorm:"primaryKey"`
	Status            string `gorm:"size:16;not null;default:'WAITING'"`
	CurrentQuestionID string `gorm:"size:64;not null;default:''"`
	RouletteCategory  string `gorm:"size:128;not null;default:''"`
	AnswerA           string `gorm:"size:500;not null;default:''"`
	AnswerB           string `gorm:"size:500;not null;default:''"`
	ShowAnswer        bool   `gorm:"not null;default:false"`
	UsedQuestions     string `gorm:"type:text;not null;default:'[]'"`
	StakesXP          int    `gorm:"not null;default:5"`
	AccumulatedPot    int    `gorm:"not null;default:0"`
	ScoreA            int    `gorm:"not null;default:0"`
	ScoreB            int    `gorm:"not null;default:0"`
	GladiatorAID      string `gorm:"size:64;not null;default:''"`
	GladiatorBID      string `gorm:"size:64;not null;default:''"`
	LastCoinFlip      string `gorm:"size:8;not null;default:''"`
	TimerStatus       string `gorm:"size:16;not null;default:'STOPPED'"`
	TimerEndAt        *time.Time
	Revision          int64 `gorm:"not null;default:0"`
	UpdatedAt         time.Time
}

func (sessionRecord) TableName() string { return "arena_sessions" }

// The arena session is a singleton: one row, created once, only ever reset
// to baseline.
const singletonID = 1

type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm { return &Gorm{db: db} }

func (g *Gorm) Migrate(ctx context.Context) error {
	if err := g.db.WithContext(ctx).AutoMigrate(&sessionRecord{}); err != nil {
		return fmt.Errorf("migrate arena_sessions: %w", err)
	}
	// Seed the singleton if this is a fresh deployment.
	rec := toRecord(arena.NewSession(), 0)
	res := g.db.WithContext(ctx).Where("id = ?", singletonID).FirstOrCreate(&rec)
	return res.Error
}

func (g *Gorm) Load(ctx context.Context) (arena.Session, int64, error) {
	var rec sessionRecord
	err := g.db.WithContext(ctx).First(&rec, singletonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return arena.Session{}, 0, ErrNotFound
	}
	if err != nil {
		return arena.Session{}, 0, fmt.Errorf("load session: %w", err)
	}
	s, err := fromRecord(rec)
	return s, rec.Revision, err
}

func (g *Gorm) Save(ctx context.Context, s arena.Session) (int64, error) {
	rec := toRecord(s, 0)
	res := g.db.WithContext(ctx).Model(&sessionRecord{}).
		Where("id = ?", singletonID).
		Updates(map[string]any{
			"status":              rec.Status,
			"current_question_id": rec.CurrentQuestionID,
			"roulette_category":   rec.RouletteCategory,
			"answer_a":            rec.AnswerA,
			"answer_b":            rec.AnswerB,
			"show_answer":         rec.ShowAnswer,
			"used_questions":      rec.UsedQuestions,
			"stakes_xp":           rec.StakesXP,
			"accumulated_pot":     rec.AccumulatedPot,
			"score_a":             rec.ScoreA,
			"score_b":             rec.ScoreB,
			"gladiator_a_id":      rec.GladiatorAID,
			"gladiator_b_id":      rec.GladiatorBID,
			"last_coin_flip":      rec.LastCoinFlip,
			"timer_status":        rec.TimerStatus,
			"timer_end_at":        rec.TimerEndAt,
			"revision":            gorm.Expr("revision + 1"),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("save session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	var rev int64
	err := g.db.WithContext(ctx).Model(&sessionRecord{}).
		Where("id = ?", singletonID).Pluck("revision", &rev).Error
	return rev, err
}

func (g *Gorm) SubmitAnswer(ctx context.Context, team arena.Team, option, questionID string) (bool, int64, error) {
	col := "answer_a"
	if team == arena.TeamB {
		col = "answer_b"
	}
	res := g.db.WithContext(ctx).Model(&sessionRecord{}).
		Where("id = ? AND status = ? AND current_question_id = ? AND "+col+" = ''",
			singletonID, string(arena.StatusActive), questionID).
		Updates(map[string]any{
			col:        option,
			"revision": gorm.Expr("revision + 1"),
		})
	if res.Error != nil {
		return false, 0, fmt.Errorf("submit answer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, 0, nil
	}
	var rev int64
	err := g.db.WithContext(ctx).Model(&sessionRecord{}).
		Where("id = ?", singletonID).Pluck("revision", &rev).Error
	return true, rev, err
}

func toRecord(s arena.Session, rev int64) sessionRecord {
	used := make([]string, 0, len(s.UsedQuestions))
	for id := range s.UsedQuestions {
		used = append(used, id)
	}
	raw, _ := json.Marshal(used)

	rec := sessionRecord{
		ID:                singletonID,
		Status:            string(s.Status),
		CurrentQuestionID: s.CurrentQuestionID,
		RouletteCategory:  s.RouletteCategory,
		AnswerA:           s.AnswerA,
		AnswerB:           s.AnswerB,
		ShowAnswer:        s.ShowAnswer,
		UsedQuestions:     string(raw),
		StakesXP:          s.StakesXP,
		AccumulatedPot:    s.AccumulatedPot,
		ScoreA:            s.ScoreA,
		ScoreB:            s.ScoreB,
		GladiatorAID:      s.GladiatorA,
		GladiatorBID:      s.GladiatorB,
		LastCoinFlip:      string(s.LastCoinFlip),
		TimerStatus:       string(s.TimerStatus),
		Revision:          rev,
	}
	if !s.TimerEndAt.IsZero() {
		end := s.TimerEndAt
		rec.TimerEndAt = &end
	}
	return rec
}

func fromRecord(rec sessionRecord) (arena.Session, error) {
	var used []string
	if rec.UsedQuestions != "" {
		if err := json.Unmarshal([]byte(rec.UsedQuestions), &used); err != nil {
			return arena.Session{}, fmt.Errorf("decode used_questions: %w", err)
		}
	}
	s := arena.Session{
		Status:            arena.Status(rec.Status),
		CurrentQuestionID: rec.CurrentQuestionID,
		RouletteCategory:  rec.RouletteCategory,
		AnswerA:           rec.AnswerA,
		AnswerB:           rec.AnswerB,
		ShowAnswer:        rec.ShowAnswer,
		UsedQuestions:     make(map[string]bool, len(used)),
		StakesXP:          rec.StakesXP,
		AccumulatedPot:    rec.AccumulatedPot,
		ScoreA:            rec.ScoreA,
		ScoreB:            rec.ScoreB,
		GladiatorA:        rec.GladiatorAID,
		GladiatorB:        rec.GladiatorBID,
		LastCoinFlip:      arena.Team(rec.LastCoinFlip),
		TimerStatus:       arena.TimerStatus(rec.TimerStatus),
	}
	for _, id := range used {
		s.UsedQuestions[id] = true
	}
	if rec.TimerEndAt != nil {
		s.TimerEndAt = *rec.TimerEndAt
	}
	return s, nil
}
