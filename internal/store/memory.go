package store

import (
	"context"
	"sync"

	"github.com/escala365/arena-backend/internal/arena"
)

// Memory is an in-process SessionStore used by tests and local runs without
// a database. It applies the same conditional-write semantics as the gorm
// implementation.
type Memory struct {
	mu       sync.Mutex
	session  arena.Session
	revision int64
}

func NewMemory(initial arena.Session) *Memory {
	return &Memory{session: initial}
}

func (m *Memory) Load(ctx context.Context) (arena.Session, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.revision, nil
}

func (m *Memory) Save(ctx context.Context, s arena.Session) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	m.revision++
	return m.revision, nil
}

func (m *Memory) SubmitAnswer(ctx context.Context, team arena.Team, option, questionID string) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session
	if s.Status != arena.StatusActive || s.CurrentQuestionID != questionID || s.Answer(team) != "" {
		return false, m.revision, nil
	}
	if team == arena.TeamA {
		s.AnswerA = option
	} else {
		s.AnswerB = option
	}
	m.session = s
	m.revision++
	return true, m.revision, nil
}
