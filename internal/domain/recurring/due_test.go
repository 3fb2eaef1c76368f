package recurring

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func intPtr(i int) *int { return &i }

func datePtr(t time.Time) *time.Time { return &t }

func newRule(freq Frequency) Rule {
	return Rule{
		ID:          uuid.New(),
		GroupID:     uuid.New(),
		AccountID:   uuid.New(),
		Description: "Test rule",
		AmountMinor: 10000,
		Direction:   DirectionExpense,
		Frequency:   freq,
		StartDate:   Date(2024, time.January, 1),
		IsActive:    true,
	}
}

// ============================================================================
// Materialization variant
// ============================================================================

func TestIsDueOn_DailyEveryDay(t *testing.T) {
	rule := newRule(FrequencyDaily)
	start := Date(2025, time.January, 1)

	for i := 0; i < 400; i++ {
		d := AddDays(start, i)
		assert.True(t, IsDueOn(rule, d), "daily rule should be due on %s", d.Format(time.DateOnly))
	}
}

func TestIsDueOn_Guards(t *testing.T) {
	today := Date(2026, time.October, 15)

	t.Run("before start date", func(t *testing.T) {
		rule := newRule(FrequencyDaily)
		rule.StartDate = AddDays(today, 1)
		assert.False(t, IsDueOn(rule, today))
	})

	t.Run("on start date", func(t *testing.T) {
		rule := newRule(FrequencyDaily)
		rule.StartDate = today
		assert.True(t, IsDueOn(rule, today))
	})

	t.Run("already executed today", func(t *testing.T) {
		rule := newRule(FrequencyDaily)
		rule.LastExecutionDate = datePtr(today)
		assert.False(t, IsDueOn(rule, today))
	})

	t.Run("executed yesterday", func(t *testing.T) {
		rule := newRule(FrequencyDaily)
		rule.LastExecutionDate = datePtr(AddDays(today, -1))
		assert.True(t, IsDueOn(rule, today))
	})

	t.Run("executed today with time of day", func(t *testing.T) {
		rule := newRule(FrequencyDaily)
		rule.LastExecutionDate = datePtr(time.Date(2026, time.October, 15, 23, 59, 0, 0, time.UTC))
		assert.False(t, IsDueOn(rule, today))
	})
}

func TestIsDueOn_WeeklyWednesday(t *testing.T) {
	rule := newRule(FrequencyWeekly)
	rule.DayOfWeek = intPtr(int(time.Wednesday))

	start := Date(2026, time.October, 1)
	for i := 0; i < 60; i++ {
		d := AddDays(start, i)
		want := d.Weekday() == time.Wednesday
		assert.Equal(t, want, IsDueOn(rule, d), "weekly rule on %s (%s)", d.Format(time.DateOnly), d.Weekday())
	}
}

func TestIsDueOn_Biweekly(t *testing.T) {
	today := Date(2026, time.October, 14) // Wednesday
	rule := newRule(FrequencyBiweekly)
	rule.DayOfWeek = intPtr(int(time.Wednesday))

	tests := []struct {
		name     string
		lastExec *time.Time
		date     time.Time
		want     bool
	}{
		{"never executed", nil, today, true},
		{"executed 10 days ago", datePtr(AddDays(today, -10)), today, false},
		{"executed 7 days ago", datePtr(AddDays(today, -7)), today, false},
		{"executed 13 days ago", datePtr(AddDays(today, -13)), today, false},
		{"executed 14 days ago", datePtr(AddDays(today, -14)), today, true},
		{"executed 21 days ago", datePtr(AddDays(today, -21)), today, true},
		{"wrong weekday", nil, AddDays(today, 1), false},
		{"10 days ago then eligible in 4 more days is not a Wednesday", datePtr(AddDays(today, -10)), AddDays(today, 4), false},
		{"10 days ago then next Wednesday", datePtr(AddDays(today, -10)), AddDays(today, 7), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rule
			r.LastExecutionDate = tt.lastExec
			assert.Equal(t, tt.want, IsDueOn(r, tt.date))
		})
	}
}

func TestIsDueOn_MonthlyClamping(t *testing.T) {
	tests := []struct {
		name       string
		dayOfMonth int
		year       int
		month      time.Month
		wantDay    int
	}{
		{"31st in non-leap February", 31, 2025, time.February, 28},
		{"31st in leap February", 31, 2024, time.February, 29},
		{"30th in leap February", 30, 2024, time.February, 29},
		{"31st in April", 31, 2026, time.April, 30},
		{"31st in October", 31, 2026, time.October, 31},
		{"15th in February", 15, 2025, time.February, 15},
		{"1st", 1, 2026, time.November, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := newRule(FrequencyMonthly)
			rule.DayOfMonth = intPtr(tt.dayOfMonth)

			last := LastDayOfMonth(tt.year, tt.month)
			for day := 1; day <= last; day++ {
				d := Date(tt.year, tt.month, day)
				assert.Equal(t, day == tt.wantDay, IsDueOn(rule, d), "day %d", day)
			}
		})
	}
}

func TestIsDueOn_MonthlyMissingAnchorDefaultsToFirst(t *testing.T) {
	rule := newRule(FrequencyMonthly)
	rule.DayOfMonth = nil

	assert.True(t, IsDueOn(rule, Date(2026, time.November, 1)))
	assert.False(t, IsDueOn(rule, Date(2026, time.November, 2)))
}

func TestIsDueOn_Yearly(t *testing.T) {
	rule := newRule(FrequencyYearly)
	rule.StartDate = Date(2023, time.March, 10)

	assert.True(t, IsDueOn(rule, Date(2026, time.March, 10)))
	assert.False(t, IsDueOn(rule, Date(2026, time.March, 11)))
	assert.False(t, IsDueOn(rule, Date(2026, time.April, 10)))
}

// ============================================================================
// Projection variant
// ============================================================================

func TestIsDueInHorizon_IgnoresMaterializationGuards(t *testing.T) {
	day := Date(2026, time.October, 15)

	rule := newRule(FrequencyDaily)
	rule.LastExecutionDate = datePtr(day)
	assert.True(t, IsDueInHorizon(rule, day, nil))

	rule.StartDate = AddDays(day, 10)
	assert.True(t, IsDueInHorizon(rule, day, nil))
}

func TestIsDueInHorizon_YearlyNeverDue(t *testing.T) {
	rule := newRule(FrequencyYearly)
	rule.StartDate = Date(2020, time.October, 15)

	assert.True(t, IsDueOn(rule, Date(2026, time.October, 15)))
	assert.False(t, IsDueInHorizon(rule, Date(2026, time.October, 15), nil))
}

func TestIsDueInHorizon_BiweeklySpacing(t *testing.T) {
	today := Date(2026, time.October, 14) // Wednesday
	rule := newRule(FrequencyBiweekly)
	rule.DayOfWeek = intPtr(int(time.Wednesday))

	assert.True(t, IsDueInHorizon(rule, today, nil))
	assert.False(t, IsDueInHorizon(rule, today, datePtr(AddDays(today, -10))))
	assert.True(t, IsDueInHorizon(rule, today, datePtr(AddDays(today, -14))))
}

// ============================================================================
// Normalization
// ============================================================================

func TestNormalize_WeeklyWithoutAnchorUsesStartWeekday(t *testing.T) {
	rule := newRule(FrequencyWeekly)
	rule.StartDate = Date(2026, time.October, 4) // Sunday

	n := rule.Normalize()
	if assert.NotNil(t, n.DayOfWeek) {
		assert.Equal(t, int(time.Sunday), *n.DayOfWeek)
	}
	assert.Nil(t, rule.DayOfWeek, "normalize must not mutate the original rule")
}

func TestNormalize_ClampsDayOfMonth(t *testing.T) {
	rule := newRule(FrequencyMonthly)
	rule.DayOfMonth = intPtr(45)

	n := rule.Normalize()
	assert.Equal(t, 31, *n.DayOfMonth)
	assert.Equal(t, 45, *rule.DayOfMonth)
}

func TestValidate(t *testing.T) {
	valid := newRule(FrequencyMonthly)
	valid.DayOfMonth = intPtr(5)

	tests := []struct {
		name    string
		mutate  func(r *Rule)
		wantErr error
	}{
		{"valid", func(r *Rule) {}, nil},
		{"zero amount", func(r *Rule) { r.AmountMinor = 0 }, ErrInvalidAmount},
		{"negative amount", func(r *Rule) { r.AmountMinor = -1 }, ErrInvalidAmount},
		{"bad direction", func(r *Rule) { r.Direction = "transfer" }, ErrInvalidDirection},
		{"bad frequency", func(r *Rule) { r.Frequency = "hourly" }, ErrInvalidFrequency},
		{"missing day of month", func(r *Rule) { r.DayOfMonth = nil }, ErrInvalidDayOfMonth},
		{"missing start", func(r *Rule) { r.StartDate = time.Time{} }, ErrMissingStartDate},
		{"weekly without weekday", func(r *Rule) { r.Frequency = FrequencyWeekly }, ErrInvalidDayOfWeek},
		{"weekly weekday out of range", func(r *Rule) {
			r.Frequency = FrequencyWeekly
			r.DayOfWeek = intPtr(7)
		}, ErrInvalidDayOfWeek},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
