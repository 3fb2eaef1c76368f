package forecast

import (
	"fmt"
	"time"

	"github.com/FACorreiaa/couple-finance/internal/domain/recurring"
	"github.com/FACorreiaa/couple-finance/pkg/money"
)

const (
	// DefaultHorizonDays is the number of days projected after today
	DefaultHorizonDays = 30

	// DefaultLowBalanceThresholdMinor is 100 currency units
	DefaultLowBalanceThresholdMinor int64 = 100_00

	DefaultCurrencyCode = money.BRL
)

// Options tunes a Projector
type Options struct {
	HorizonDays              int
	LowBalanceThresholdMinor int64
	CurrencyCode             string
}

// DefaultOptions returns a 30 day horizon with a low balance threshold of 100
func DefaultOptions() Options {
	return Options{
		HorizonDays:              DefaultHorizonDays,
		LowBalanceThresholdMinor: DefaultLowBalanceThresholdMinor,
		CurrencyCode:             DefaultCurrencyCode,
	}
}

// Projector simulates recurring rules over the horizon. It holds no mutable state and
// is safe for concurrent use.
type Projector struct {
	opts Options
}

// NewProjector creates a projector, filling zero options with defaults
func NewProjector(opts Options) *Projector {
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = DefaultHorizonDays
	}
	if opts.LowBalanceThresholdMinor < 0 {
		opts.LowBalanceThresholdMinor = DefaultLowBalanceThresholdMinor
	}
	if opts.CurrencyCode == "" {
		opts.CurrencyCode = DefaultCurrencyCode
	}
	return &Projector{opts: opts}
}

// Options returns the effective options
func (p *Projector) Options() Options {
	return p.opts
}

// Project walks today through today+horizon and returns the balance curve.
//
// The starting balance is the sum of active accounts (zero when there are none). Each
// day applies every active rule due that day in the order given, then the hypothetical
// entry, and records the balance after all adjustments. Hypothetical entries are always
// expenses. hyp may be nil.
func (p *Projector) Project(accounts []recurring.Account, rules []recurring.Rule, hyp Hypothetical, today time.Time) *Projection {
	start := recurring.DateOf(today)

	var balance int64
	for _, a := range accounts {
		if a.IsActive {
			balance += a.CurrentBalanceMinor
		}
	}

	proj := &Projection{
		StartDate:                start,
		StartingBalanceMinor:     balance,
		CurrencyCode:             p.opts.CurrencyCode,
		LowBalanceThresholdMinor: p.opts.LowBalanceThresholdMinor,
		Days:                     make([]DayPoint, 0, p.opts.HorizonDays+1),
	}

	active := make([]recurring.Rule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			active = append(active, r.Normalize())
		}
	}

	var oneTime *OneTime
	var whatIf *recurring.Rule
	switch h := Canonical(hyp).(type) {
	case OneTime:
		oneTime = &h
	case RecurringWhatIf:
		r := h.asRule()
		whatIf = &r
	}

	var negativeFound, lowFound bool
	for offset := 0; offset <= p.opts.HorizonDays; offset++ {
		day := recurring.AddDays(start, offset)
		var txs []ProjectedTransaction

		// The biweekly anchor is the stored last execution, fixed for the whole scan
		for _, r := range active {
			if !recurring.IsDueInHorizon(r, day, r.LastExecutionDate) {
				continue
			}
			balance += r.SignedAmount()
			ruleID := r.ID
			txs = append(txs, ProjectedTransaction{
				RuleID:      &ruleID,
				Description: r.Description,
				AmountMinor: r.AmountMinor,
				Direction:   r.Direction,
				IsRecurring: true,
			})
		}

		if oneTime != nil && recurring.SameDate(oneTime.Date, day) {
			balance -= oneTime.AmountMinor
			txs = append(txs, simulated(oneTime.Description, oneTime.AmountMinor))
		}
		if whatIf != nil && !day.Before(whatIf.StartDate) && recurring.IsDueInHorizon(*whatIf, day, nil) {
			balance -= whatIf.AmountMinor
			txs = append(txs, simulated(whatIf.Description, whatIf.AmountMinor))
		}

		point := DayPoint{
			Date:         day,
			BalanceMinor: balance,
			Transactions: txs,
			IsNegative:   balance < 0,
		}
		proj.Days = append(proj.Days, point)

		switch {
		case balance < 0 && !negativeFound:
			negativeFound = true
			proj.Alerts = append(proj.Alerts, Alert{
				Date:         day,
				Kind:         AlertNegative,
				Message:      NegativeAlertMessage,
				BalanceMinor: balance,
			})
		case balance >= 0 && balance < p.opts.LowBalanceThresholdMinor && !lowFound:
			lowFound = true
			proj.Alerts = append(proj.Alerts, Alert{
				Date:         day,
				Kind:         AlertLow,
				Message:      p.lowBalanceMessage(),
				BalanceMinor: balance,
			})
		}
	}

	return proj
}

func (p *Projector) lowBalanceMessage() string {
	threshold := money.New(p.opts.LowBalanceThresholdMinor, p.opts.CurrencyCode)
	return fmt.Sprintf("balance will drop below %s", threshold.Display())
}

func simulated(description string, amountMinor int64) ProjectedTransaction {
	return ProjectedTransaction{
		Description:  description,
		AmountMinor:  amountMinor,
		Direction:    recurring.DirectionExpense,
		IsSimulation: true,
	}
}
