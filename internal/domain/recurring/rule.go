// Package recurring holds the scheduling core for recurring income and expense rules:
// the rule model, civil-date helpers and the due-date evaluation shared by the daily
// materialization sweep and the balance projector.
package recurring

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Frequency represents how often a rule fires
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyYearly   Frequency = "yearly"
)

// Valid reports whether f is one of the supported frequencies
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// ParseFrequency converts user input into a Frequency
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
	return f, nil
}

// Direction is the sign of a rule or transaction
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

// Valid reports whether d is income or expense
func (d Direction) Valid() bool {
	return d == DirectionIncome || d == DirectionExpense
}

// Signed applies the direction to a positive minor-unit amount.
func (d Direction) Signed(amountMinor int64) int64 {
	if d == DirectionExpense {
		return -amountMinor
	}
	return amountMinor
}

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidFrequency  = errors.New("invalid frequency")
	ErrInvalidDirection  = errors.New("invalid direction")
	ErrInvalidDayOfMonth = errors.New("day of month must be between 1 and 31")
	ErrInvalidDayOfWeek  = errors.New("day of week must be between 0 and 6")
	ErrMissingStartDate  = errors.New("start date is required")
)

// Rule is a standing instruction to create a transaction periodically.
//
// DayOfMonth is only meaningful for monthly rules and DayOfWeek (0=Sunday) only for
// weekly and biweekly rules. LastExecutionDate is the idempotency token owned by the
// materialization sweep; nothing else writes it.
type Rule struct {
	ID                uuid.UUID
	GroupID           uuid.UUID
	AccountID         uuid.UUID
	CategoryID        *uuid.UUID
	Description       string
	AmountMinor       int64
	Direction         Direction
	Frequency         Frequency
	DayOfMonth        *int
	DayOfWeek         *int
	StartDate         time.Time
	LastExecutionDate *time.Time
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SignedAmount returns the amount with the rule's direction applied
func (r Rule) SignedAmount() int64 {
	return r.Direction.Signed(r.AmountMinor)
}

// Validate reports a rule that cannot be materialized. Anchors are checked as given, so
// callers holding stored rules validate the result of Normalize.
func (r Rule) Validate() error {
	if r.AmountMinor <= 0 {
		return ErrInvalidAmount
	}
	if !r.Direction.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDirection, r.Direction)
	}
	if !r.Frequency.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, r.Frequency)
	}
	if r.StartDate.IsZero() {
		return ErrMissingStartDate
	}
	switch r.Frequency {
	case FrequencyMonthly:
		if r.DayOfMonth == nil || *r.DayOfMonth < 1 || *r.DayOfMonth > 31 {
			return ErrInvalidDayOfMonth
		}
	case FrequencyWeekly, FrequencyBiweekly:
		if r.DayOfWeek == nil || *r.DayOfWeek < 0 || *r.DayOfWeek > 6 {
			return ErrInvalidDayOfWeek
		}
	}
	return nil
}

// Normalize returns a copy of the rule with missing or out-of-range anchors replaced
// by safe defaults. A monthly rule without a day of month fires on the 1st; a weekly
// or biweekly rule without a day of week fires on the weekday of its start date.
func (r Rule) Normalize() Rule {
	out := r
	switch r.Frequency {
	case FrequencyMonthly:
		day := 1
		if r.DayOfMonth != nil {
			day = min(max(*r.DayOfMonth, 1), 31)
		}
		out.DayOfMonth = &day
	case FrequencyWeekly, FrequencyBiweekly:
		var wd int
		if r.DayOfWeek != nil && *r.DayOfWeek >= 0 && *r.DayOfWeek <= 6 {
			wd = *r.DayOfWeek
		} else {
			wd = int(r.StartDate.Weekday())
		}
		out.DayOfWeek = &wd
	}
	if !r.StartDate.IsZero() {
		out.StartDate = DateOf(r.StartDate)
	}
	if r.LastExecutionDate != nil {
		last := DateOf(*r.LastExecutionDate)
		out.LastExecutionDate = &last
	}
	return out
}

// Account is a balance-holding bucket
type Account struct {
	ID                  uuid.UUID
	GroupID             uuid.UUID
	Name                string
	InitialBalanceMinor int64
	CurrentBalanceMinor int64
	IsActive            bool
}

// Transaction is a concrete, persisted movement created by materializing a rule
type Transaction struct {
	ID              uuid.UUID  `json:"id"`
	GroupID         uuid.UUID  `json:"group_id"`
	AccountID       uuid.UUID  `json:"account_id"`
	CategoryID      *uuid.UUID `json:"category_id,omitempty"`
	RecurringRuleID *uuid.UUID `json:"recurring_rule_id,omitempty"`
	Description     string     `json:"description"`
	AmountMinor     int64      `json:"amount_minor"`
	Direction       Direction  `json:"direction"`
	OccurredOn      time.Time  `json:"occurred_on"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewTransactionFromRule builds the transaction a due rule produces on the given date
func NewTransactionFromRule(rule Rule, on time.Time) Transaction {
	ruleID := rule.ID
	return Transaction{
		ID:              uuid.New(),
		GroupID:         rule.GroupID,
		AccountID:       rule.AccountID,
		CategoryID:      rule.CategoryID,
		RecurringRuleID: &ruleID,
		Description:     rule.Description,
		AmountMinor:     rule.AmountMinor,
		Direction:       rule.Direction,
		OccurredOn:      DateOf(on),
	}
}
