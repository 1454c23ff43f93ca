package duty

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CLOCK TIME - Time of day with wrap-around duty arithmetic
// =============================================================================

// ClockTime is a time of day stored as minutes since midnight.
// Report and debrief times on a Duty are clock times, not instants: a debrief
// that reads earlier than its report means the duty ran past midnight.
type ClockTime struct {
	Minutes int // 0..1439
}

const minutesPerDay = 24 * 60

// NewClockTime builds a clock time from hour and minute.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime{Minutes: hour*60 + minute}
}

// ParseClockTime parses the time formats seen in rosters and manual entry:
// "09:30", "9:30", "0930". Hours 0-23, minutes 0-59.
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ClockTime{}, fmt.Errorf("empty time")
	}

	var hour, minute int
	var err error
	if strings.Contains(s, ":") {
		parts := strings.SplitN(s, ":", 2)
		hour, err = strconv.Atoi(parts[0])
		if err != nil {
			return ClockTime{}, fmt.Errorf("invalid time %q", s)
		}
		minute, err = strconv.Atoi(parts[1])
		if err != nil || len(parts[1]) != 2 {
			return ClockTime{}, fmt.Errorf("invalid time %q", s)
		}
	} else {
		// Compact HHMM form used by some roster exports.
		if len(s) != 4 {
			return ClockTime{}, fmt.Errorf("invalid time %q", s)
		}
		hour, err = strconv.Atoi(s[:2])
		if err != nil {
			return ClockTime{}, fmt.Errorf("invalid time %q", s)
		}
		minute, err = strconv.Atoi(s[2:])
		if err != nil {
			return ClockTime{}, fmt.Errorf("invalid time %q", s)
		}
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("time out of range %q", s)
	}
	return NewClockTime(hour, minute), nil
}

func (c ClockTime) Hour() int   { return c.Minutes / 60 }
func (c ClockTime) Minute() int { return c.Minutes % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Before reports whether c reads earlier on the clock face than other.
func (c ClockTime) Before(other ClockTime) bool { return c.Minutes < other.Minutes }

// DutyMinutes returns the elapsed minutes between report and debrief.
// If crossDay is set, or debrief reads earlier than report, the debrief is
// taken as next-day and a full day is added before subtracting.
func DutyMinutes(report, debrief ClockTime, crossDay bool) int {
	end := debrief.Minutes
	if crossDay || end < report.Minutes {
		end += minutesPerDay
	}
	return end - report.Minutes
}

// DutyHours returns DutyMinutes as decimal hours (e.g. 8.25 for 8h15m).
func DutyHours(report, debrief ClockTime, crossDay bool) decimal.Decimal {
	minutes := DutyMinutes(report, debrief, crossDay)
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60))
}

// RestHours returns the hours between a debrief on one date and a report on a
// later date. Used for layover per-diem accrual.
func RestHours(debriefDate Date, debrief ClockTime, reportDate Date, report ClockTime) decimal.Decimal {
	end := reportDate.normalize().Add(time.Duration(report.Minutes) * time.Minute)
	start := debriefDate.normalize().Add(time.Duration(debrief.Minutes) * time.Minute)
	minutes := int(end.Sub(start).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60))
}
