// Package repository provides database operations for recurring rules, the accounts they
// target and the transactions they materialize.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/couple-finance/internal/domain/recurring"
)

// ErrAlreadyMaterialized is returned when the rule already has a transaction for the date,
// typically written by a concurrent sweep of the other group member.
var ErrAlreadyMaterialized = errors.New("rule already materialized for date")

// RuleRepository reads recurring rules
type RuleRepository interface {
	// ListActiveRules returns the group's active rules in a stable order
	ListActiveRules(ctx context.Context, groupID uuid.UUID) ([]recurring.Rule, error)

	// ListGroupsWithActiveRules returns every group owning at least one active rule
	ListGroupsWithActiveRules(ctx context.Context) ([]uuid.UUID, error)
}

// AccountRepository reads account balances
type AccountRepository interface {
	ListActiveAccounts(ctx context.Context, groupID uuid.UUID) ([]recurring.Account, error)
}

// MaterializationStore applies the side effects of a due rule
type MaterializationStore interface {
	// Materialize atomically inserts the rule's transaction dated on, sets the rule's
	// last execution date and recomputes the target account balance from its full
	// transaction history. It returns ErrAlreadyMaterialized if (rule, on) exists.
	Materialize(ctx context.Context, rule recurring.Rule, on time.Time) (*MaterializedTransaction, error)
}

// MemberRepository reads the push tokens of a group's members
type MemberRepository interface {
	ListPushTokens(ctx context.Context, groupID uuid.UUID) ([]string, error)
}

// MaterializedTransaction is the stored transaction plus the recomputed balance of its account
type MaterializedTransaction struct {
	Transaction         recurring.Transaction
	AccountBalanceMinor int64
}
