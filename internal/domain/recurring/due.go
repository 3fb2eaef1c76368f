package recurring

import "time"

// BiweeklySpacingDays is the minimum number of whole days between two firings of a
// biweekly rule.
const BiweeklySpacingDays = 14

// IsDueOn decides whether a rule must materialize a transaction on date. It applies the
// materialization guards before the frequency check: a rule never fires before its start
// date and never fires twice on the same calendar day.
//
// The last-execution guard is an optimistic idempotency token. Two sweeps running at the
// same time can both read "not executed today"; storage is expected to reject the second
// insert for the same (rule, date).
func IsDueOn(rule Rule, date time.Time) bool {
	r := rule.Normalize()
	day := DateOf(date)

	if !r.StartDate.IsZero() && r.StartDate.After(day) {
		return false
	}
	if r.LastExecutionDate != nil && r.LastExecutionDate.Equal(day) {
		return false
	}
	return matchesFrequency(r, day, r.LastExecutionDate)
}

// IsDueInHorizon is the projection variant of IsDueOn. It skips both materialization
// guards and never reports yearly rules as due. lastFired anchors the biweekly
// spacing; nil means the rule is immediately eligible.
func IsDueInHorizon(rule Rule, date time.Time, lastFired *time.Time) bool {
	r := rule.Normalize()
	// Yearly rules never appear in the horizon.
	if r.Frequency == FrequencyYearly {
		return false
	}

	var anchor *time.Time
	if lastFired != nil {
		a := DateOf(*lastFired)
		anchor = &a
	}
	return matchesFrequency(r, DateOf(date), anchor)
}

// matchesFrequency expects a normalized rule and a civil date
func matchesFrequency(r Rule, day time.Time, lastExecution *time.Time) bool {
	switch r.Frequency {
	case FrequencyDaily:
		return true

	case FrequencyWeekly:
		return int(day.Weekday()) == *r.DayOfWeek

	case FrequencyBiweekly:
		if int(day.Weekday()) != *r.DayOfWeek {
			return false
		}
		return lastExecution == nil || DaysBetween(*lastExecution, day) >= BiweeklySpacingDays

	case FrequencyMonthly:
		// Recomputed per evaluated month: day 31 lands on Feb 28 (or 29), Apr 30, ...
		target := min(*r.DayOfMonth, LastDayOfMonth(day.Year(), day.Month()))
		return day.Day() == target

	case FrequencyYearly:
		return day.Month() == r.StartDate.Month() && day.Day() == r.StartDate.Day()
	}
	return false
}
