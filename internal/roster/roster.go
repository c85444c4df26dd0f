// Package roster maps agents to battle teams. Assignments are created and
// edited only from the moderator console; unassigning deletes the row.
package roster

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/escala365/arena-backend/internal/arena"
)

var ErrBadTeam = errors.New("team must be A or B")

type Assignment struct {
	AgentID string     `json:"agentId"`
	Team    arena.Team `json:"team"`
}

type assignmentRecord struct {
	AgentID string `gorm:"primaryKey;size:64"`
	Team    string `gorm:"size:8;not null"`
}

func (assignmentRecord) TableName() string { return "arena_team_assignments" }

type Roster struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Roster { return &Roster{db: db} }

func (r *Roster) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&assignmentRecord{}); err != nil {
		return fmt.Errorf("migrate arena_team_assignments: %w", err)
	}
	return nil
}

// Assign puts the agent on a team, moving them if already assigned. An
// empty team unassigns.
func (r *Roster) Assign(ctx context.Context, agentID string, team arena.Team) error {
	if team == "" {
		err := r.db.WithContext(ctx).Delete(&assignmentRecord{AgentID: agentID}).Error
		if err != nil {
			return fmt.Errorf("unassign %s: %w", agentID, err)
		}
		return nil
	}
	if team != arena.TeamA && team != arena.TeamB {
		return ErrBadTeam
	}
	rec := assignmentRecord{AgentID: agentID, Team: string(team)}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "agent_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"team"}),
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("assign %s to %s: %w", agentID, team, err)
	}
	return nil
}

func (r *Roster) ListAssignments(ctx context.Context) ([]Assignment, error) {
	var recs []assignmentRecord
	if err := r.db.WithContext(ctx).Order("agent_id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	out := make([]Assignment, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Assignment{AgentID: rec.AgentID, Team: arena.Team(rec.Team)})
	}
	return out, nil
}

// TeamOf resolves which team a player writes answers for. ok is false for
// unassigned agents, who are spectators.
func (r *Roster) TeamOf(ctx context.Context, agentID string) (arena.Team, bool, error) {
	var rec assignmentRecord
	err := r.db.WithContext(ctx).First(&rec, "agent_id = ?", agentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("team of %s: %w", agentID, err)
	}
	return arena.Team(rec.Team), true, nil
}
