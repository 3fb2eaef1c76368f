package forecast

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/couple-finance/internal/domain/recurring"
)

// HypotheticalKind identifies the variant of a what-if entry
type HypotheticalKind string

const (
	KindOneTime   HypotheticalKind = "one-time"
	KindRecurring HypotheticalKind = "recurring"
)

var (
	ErrUnknownKind        = errors.New("unknown hypothetical kind")
	ErrEmptyDescription   = errors.New("description is required")
	ErrMissingDate        = errors.New("date is required")
	ErrFrequencyRequired  = errors.New("frequency is required for recurring entries")
	ErrFrequencyForbidden = errors.New("frequency is only allowed for recurring entries")
)

// Hypothetical is a what-if expense that perturbs one projection and is never stored.
// It is either OneTime or RecurringWhatIf.
type Hypothetical interface {
	Kind() HypotheticalKind
	Validate() error
	entry() whatIf
}

type whatIf struct {
	Description string
	AmountMinor int64
	Date        time.Time
}

// OneTime is a single hypothetical expense on Date
type OneTime struct {
	Description string
	AmountMinor int64
	Date        time.Time
}

func (OneTime) Kind() HypotheticalKind { return KindOneTime }

func (o OneTime) Validate() error {
	return validateEntry(o.entry())
}

func (o OneTime) entry() whatIf {
	return whatIf{Description: o.Description, AmountMinor: o.AmountMinor, Date: o.Date}
}

// RecurringWhatIf is a hypothetical expense repeating from Date with the given frequency
type RecurringWhatIf struct {
	Description string
	AmountMinor int64
	Date        time.Time
	Frequency   recurring.Frequency
}

func (RecurringWhatIf) Kind() HypotheticalKind { return KindRecurring }

func (r RecurringWhatIf) Validate() error {
	if err := validateEntry(r.entry()); err != nil {
		return err
	}
	if !r.Frequency.Valid() {
		return fmt.Errorf("%w: %q", recurring.ErrInvalidFrequency, r.Frequency)
	}
	return nil
}

func (r RecurringWhatIf) entry() whatIf {
	return whatIf{Description: r.Description, AmountMinor: r.AmountMinor, Date: r.Date}
}

// asRule synthesizes the transient rule evaluated for a recurring what-if. Anchors come
// from the entry date and the rule is always an expense.
func (r RecurringWhatIf) asRule() recurring.Rule {
	date := recurring.DateOf(r.Date)
	dom := date.Day()
	dow := int(date.Weekday())
	return recurring.Rule{
		ID:          uuid.Nil,
		Description: r.Description,
		AmountMinor: r.AmountMinor,
		Direction:   recurring.DirectionExpense,
		Frequency:   r.Frequency,
		DayOfMonth:  &dom,
		DayOfWeek:   &dow,
		StartDate:   date,
		IsActive:    true,
	}
}

func validateEntry(e whatIf) error {
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if e.AmountMinor <= 0 {
		return recurring.ErrInvalidAmount
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// NewHypothetical builds the variant matching kind. frequency must be empty for
// one-time entries and set for recurring ones.
func NewHypothetical(kind HypotheticalKind, description string, amountMinor int64, date time.Time, frequency string) (Hypothetical, error) {
	var h Hypothetical
	switch kind {
	case KindOneTime:
		if frequency != "" {
			return nil, ErrFrequencyForbidden
		}
		h = OneTime{Description: description, AmountMinor: amountMinor, Date: recurring.DateOf(date)}
	case KindRecurring:
		if frequency == "" {
			return nil, ErrFrequencyRequired
		}
		f, err := recurring.ParseFrequency(frequency)
		if err != nil {
			return nil, err
		}
		h = RecurringWhatIf{Description: description, AmountMinor: amountMinor, Date: recurring.DateOf(date), Frequency: f}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// Canonical returns hyp with pointer variants dereferenced, and nil for a nil pointer
func Canonical(hyp Hypothetical) Hypothetical {
	switch h := hyp.(type) {
	case *OneTime:
		if h == nil {
			return nil
		}
		return *h
	case *RecurringWhatIf:
		if h == nil {
			return nil
		}
		return *h
	}
	return hyp
}
