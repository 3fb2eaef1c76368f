// Package forecast simulates recurring rules over a fixed horizon to produce a day by day
// balance curve, optionally perturbed by a hypothetical what-if entry, and raises
// negative and low balance alerts.
package forecast

import (
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/couple-finance/internal/domain/recurring"
)

// AlertKind classifies a threshold crossing
type AlertKind string

const (
	AlertNegative AlertKind = "negative"
	AlertLow      AlertKind = "low"
)

// NegativeAlertMessage is the message of the negative balance alert
const NegativeAlertMessage = "balance will go negative"

// ProjectedTransaction is a simulated movement on a projected day
type ProjectedTransaction struct {
	RuleID       *uuid.UUID
	Description  string
	AmountMinor  int64
	Direction    recurring.Direction
	IsRecurring  bool
	IsSimulation bool
}

// SignedAmount returns the amount with its direction applied
func (t ProjectedTransaction) SignedAmount() int64 {
	return t.Direction.Signed(t.AmountMinor)
}

// DayPoint is the balance after all of one day's simulated movements
type DayPoint struct {
	Date         time.Time
	BalanceMinor int64
	Transactions []ProjectedTransaction
	IsNegative   bool
}

// NetChange sums the signed amounts of the day's transactions
func (d DayPoint) NetChange() int64 {
	var sum int64
	for _, tx := range d.Transactions {
		sum += tx.SignedAmount()
	}
	return sum
}

// Alert is raised the first time the projected balance crosses a threshold
type Alert struct {
	Date         time.Time
	Kind         AlertKind
	Message      string
	BalanceMinor int64
}

// Projection is the read-only result of one horizon simulation
type Projection struct {
	StartDate                time.Time
	StartingBalanceMinor     int64
	CurrencyCode             string
	LowBalanceThresholdMinor int64
	Days                     []DayPoint
	Alerts                   []Alert
}

// Alert returns the alert of the given kind, or nil
func (p *Projection) Alert(kind AlertKind) *Alert {
	for i := range p.Alerts {
		if p.Alerts[i].Kind == kind {
			return &p.Alerts[i]
		}
	}
	return nil
}

// EndingBalanceMinor returns the balance on the last projected day
func (p *Projection) EndingBalanceMinor() int64 {
	if len(p.Days) == 0 {
		return p.StartingBalanceMinor
	}
	return p.Days[len(p.Days)-1].BalanceMinor
}

// LowestPoint returns the earliest day holding the minimum balance
func (p *Projection) LowestPoint() (DayPoint, bool) {
	if len(p.Days) == 0 {
		return DayPoint{}, false
	}
	lowest := p.Days[0]
	for _, d := range p.Days[1:] {
		if d.BalanceMinor < lowest.BalanceMinor {
			lowest = d
		}
	}
	return lowest, true
}
