// Package ledger is the narrow interface to the external experience-point
// store. The arena only ever applies signed deltas to individual agents; it
// never reads balances.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrUnknownAgent = errors.New("agent not found in ledger")

// Ledger applies a signed XP delta to one agent. Calls must be independent
// per agent, tolerate amount=0, and assume no ordering between them.
type Ledger interface {
	CreditDebit(ctx context.Context, agentID string, amount int) error
}

// Gorm adjusts the xp column of the shared agents table, which is owned by
// the profile store and treated as external here.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm { return &Gorm{db: db} }

func (g *Gorm) CreditDebit(ctx context.Context, agentID string, amount int) error {
	if amount == 0 {
		return nil
	}
	res := g.db.WithContext(ctx).Table("agents").
		Where("id = ?", agentID).
		Update("xp", gorm.Expr("xp + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("credit/debit %s by %d: %w", agentID, amount, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	return nil
}
