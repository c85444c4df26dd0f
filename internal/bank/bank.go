// Package bank is the append-only trivia catalogue. Questions arrive by
// bulk import from the moderator console, are read-only at match time, and
// can only be removed by the explicit clear operation.
package bank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/escala365/arena-backend/internal/arena"
)

var ErrNotFound = errors.New("question not found")
var ErrBadQuestion = errors.New("invalid question payload")

type questionRecord struct {
	ID            string `gorm:"primaryKey;size:64"`
	Category      string `gorm:"size:128;not null;index"`
	Difficulty    string `gorm:"size:16;not null"`
	Question      string `gorm:"type:text;not null"`
	Options       string `gorm:"type:text;not null"`
	CorrectAnswer string `gorm:"size:500;not null"`
	Reference     string `gorm:"size:500;not null;default:''"`
	ImageURL      string `gorm:"size:500;not null;default:''"`
}

func (questionRecord) TableName() string { return "arena_questions" }

type Bank struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Bank { return &Bank{db: db} }

func (b *Bank) Migrate(ctx context.Context) error {
	if err := b.db.WithContext(ctx).AutoMigrate(&questionRecord{}); err != nil {
		return fmt.Errorf("migrate arena_questions: %w", err)
	}
	return nil
}

// Import upserts the batch by id. The correct answer must match one option
// verbatim; a bad item aborts the whole batch so a typo'd bank never half
// loads.
func (b *Bank) Import(ctx context.Context, questions []arena.Question) error {
	if len(questions) == 0 {
		return nil
	}
	recs := make([]questionRecord, 0, len(questions))
	for _, q := range questions {
		if err := validate(q); err != nil {
			return fmt.Errorf("question %q: %w", q.ID, err)
		}
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("question %q: %w", q.ID, err)
		}
		recs = append(recs, questionRecord{
			ID:            q.ID,
			Category:      q.Category,
			Difficulty:    string(q.Difficulty),
			Question:      q.Question,
			Options:       string(opts),
			CorrectAnswer: q.CorrectAnswer,
			Reference:     q.Reference,
			ImageURL:      q.ImageURL,
		})
	}
	err := b.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&recs).Error
	if err != nil {
		return fmt.Errorf("import questions: %w", err)
	}
	return nil
}

func (b *Bank) Clear(ctx context.Context) error {
	err := b.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&questionRecord{}).Error
	if err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	return nil
}

func (b *Bank) Get(ctx context.Context, id string) (arena.Question, error) {
	var rec questionRecord
	err := b.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return arena.Question{}, ErrNotFound
	}
	if err != nil {
		return arena.Question{}, fmt.Errorf("get question: %w", err)
	}
	return fromRecord(rec)
}

func (b *Bank) List(ctx context.Context) ([]arena.Question, error) {
	var recs []questionRecord
	if err := b.db.WithContext(ctx).Order("category, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]arena.Question, 0, len(recs))
	for _, rec := range recs {
		q, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// CategoriesExcluding lists the distinct categories that still have at
// least one question outside the used set. The roulette spins over these.
func (b *Bank) CategoriesExcluding(ctx context.Context, used []string) ([]string, error) {
	q := b.db.WithContext(ctx).Model(&questionRecord{}).Distinct("category")
	if len(used) > 0 {
		q = q.Where("id NOT IN ?", used)
	}
	var cats []string
	if err := q.Order("category").Pluck("category", &cats).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func validate(q arena.Question) error {
	if q.ID == "" || q.Question == "" || len(q.Options) == 0 {
		return ErrBadQuestion
	}
	for _, opt := range q.Options {
		if opt == q.CorrectAnswer {
			return nil
		}
	}
	return fmt.Errorf("%w: correct answer is not one of the options", ErrBadQuestion)
}

func fromRecord(rec questionRecord) (arena.Question, error) {
	var opts []string
	if err := json.Unmarshal([]byte(rec.Options), &opts); err != nil {
		return arena.Question{}, fmt.Errorf("decode options for %q: %w", rec.ID, err)
	}
	return arena.Question{
		ID:            rec.ID,
		Category:      rec.Category,
		Difficulty:    arena.Difficulty(rec.Difficulty),
		Question:      rec.Question,
		Options:       opts,
		CorrectAnswer: rec.CorrectAnswer,
		Reference:     rec.Reference,
		ImageURL:      rec.ImageURL,
	}, nil
}
