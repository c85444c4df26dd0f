package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/escala365/arena-backend/internal/arena"
	"github.com/escala365/arena-backend/internal/bank"
	"github.com/escala365/arena-backend/internal/roster"
	"github.com/escala365/arena-backend/internal/store"
)

type Handlers struct {
	Store  store.SessionStore
	Bank   *bank.Bank
	Roster *roster.Roster
	Log    *zap.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// GetSession is the poll fallback: any client that missed broadcasts (or
// everything) rebuilds full state from this one record.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	s, rev, err := h.Store.Load(r.Context())
	if err != nil {
		h.Log.Error("load session", zap.Error(err))
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Revision int64         `json:"revision"`
		Session  arena.Session `json:"session"`
	}{Revision: rev, Session: s})
}

// ImportQuestions bulk-upserts the moderator's JSON bank by question id.
func (h *Handlers) ImportQuestions(w http.ResponseWriter, r *http.Request) {
	var questions []arena.Question
	if err := json.NewDecoder(r.Body).Decode(&questions); err != nil {
		http.Error(w, "payload must be a JSON array of questions", http.StatusBadRequest)
		return
	}
	if err := h.Bank.Import(r.Context(), questions); err != nil {
		if errors.Is(err, bank.ErrBadQuestion) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.Log.Error("import questions", zap.Error(err))
		http.Error(w, "import failed", http.StatusInternalServerError)
		return
	}
	h.Log.Info("question bank imported", zap.Int("count", len(questions)))
	writeJSON(w, http.StatusOK, struct {
		Imported int `json:"imported"`
	}{Imported: len(questions)})
}

func (h *Handlers) ClearQuestions(w http.ResponseWriter, r *http.Request) {
	if err := h.Bank.Clear(r.Context()); err != nil {
		h.Log.Error("clear questions", zap.Error(err))
		http.Error(w, "clear failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.Bank.List(r.Context())
	if err != nil {
		h.Log.Error("list questions", zap.Error(err))
		http.Error(w, "list failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handlers) ListAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.Roster.ListAssignments(r.Context())
	if err != nil {
		h.Log.Error("list assignments", zap.Error(err))
		http.Error(w, "list failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, assignments)
}

// AssignTeam puts an agent on team A or B; an empty or null team
// unassigns them.
func (h *Handlers) AssignTeam(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	var body struct {
		Team *string `json:"team"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	team := arena.Team("")
	if body.Team != nil {
		team = arena.Team(*body.Team)
	}
	if err := h.Roster.Assign(r.Context(), agentID, team); err != nil {
		if errors.Is(err, roster.ErrBadTeam) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.Log.Error("assign team", zap.String("agent", agentID), zap.Error(err))
		http.Error(w, "assign failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
