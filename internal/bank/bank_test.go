package bank

import (
	"errors"
	"testing"

	"github.com/escala365/arena-backend/internal/arena"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		q       arena.Question
		wantErr bool
	}{
		{
			name: "well formed",
			q: arena.Question{
				ID: "q1", Question: "Who led the exodus?",
				Options: []string{"Moses", "Aaron"}, CorrectAnswer: "Moses",
			},
		},
		{
			name: "correct answer must match an option verbatim",
			q: arena.Question{
				ID: "q1", Question: "Who led the exodus?",
				Options: []string{"Moses", "Aaron"}, CorrectAnswer: "moses",
			},
			wantErr: true,
		},
		{
			name:    "missing id",
			q:       arena.Question{Question: "x", Options: []string{"a"}, CorrectAnswer: "a"},
			wantErr: true,
		},
		{
			name:    "no options",
			q:       arena.Question{ID: "q1", Question: "x", CorrectAnswer: "a"},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validate(tc.q)
			if tc.wantErr && !errors.Is(err, ErrBadQuestion) {
				t.Fatalf("want ErrBadQuestion, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
		})
	}
}

func TestQuestionRecordRoundTrip(t *testing.T) {
	q := arena.Question{
		ID: "q9", Category: "PROPHETS", Difficulty: arena.DifficultyHard,
		Question: "Who confronted the prophets of Baal?",
		Options:  []string{"Elijah", "Elisha", "Isaiah", "Jeremiah"},
		CorrectAnswer: "Elijah", Reference: "1 Kings 18",
	}
	rec := questionRecord{
		ID: q.ID, Category: q.Category, Difficulty: string(q.Difficulty),
		Question: q.Question, Options: `["Elijah","Elisha","Isaiah","Jeremiah"]`,
		CorrectAnswer: q.CorrectAnswer, Reference: q.Reference,
	}
	got, err := fromRecord(rec)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.ID != q.ID || got.CorrectAnswer != q.CorrectAnswer || len(got.Options) != 4 || got.Options[0] != "Elijah" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
