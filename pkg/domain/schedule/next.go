package schedule

import "time"

// Next returns the first trigger instant strictly after `after`.
//
// FREQUENCY policies are aligned on their start time of the day of `after`
// (midnight when no start time is given).
// CLOCK policies use ISO weekday numbers for weeks (1 = Monday, 7 = Sunday),
// and skip months or years which do not have the day.
//
// Instants are in the location of `after`.
//
// # Returns
//
// - time.Time: next trigger
//
// - bool: false for AUTOMATIC and NONE policies, which are not triggered by clock.
func (p Policy) Next(after time.Time) (time.Time, bool) {
	switch p.kind {
	case KindFrequency:
		return p.nextFrequency(after), true
	case KindClock:
		return p.nextClock(after)
	}
	return time.Time{}, false
}

func (p Policy) nextFrequency(after time.Time) time.Time {
	interval := p.Interval()
	start := TimeOfDay{}
	if p.start != nil {
		start = *p.start
	}
	anchor := start.On(after)

	elapsed := after.Sub(anchor)
	n := elapsed / interval
	if elapsed < 0 && elapsed%interval != 0 {
		// round toward negative infinity
		n -= 1
	}
	return anchor.Add((n + 1) * interval)
}

func (p Policy) nextClock(after time.Time) (time.Time, bool) {
	switch p.unit {
	case Weeks:
		today := p.at.On(after)
		// time.Weekday: Sunday = 0
		wd := int(after.Weekday())
		if wd == 0 {
			wd = 7
		}
		days := (p.day - wd + 7) % 7
		t := today.AddDate(0, 0, days)
		if !t.After(after) {
			t = t.AddDate(0, 0, 7)
		}
		return t, true

	case Monthly:
		y, m, _ := after.Date()
		for i := 0; i <= 12; i++ {
			first := time.Date(y, m+time.Month(i), 1, 0, 0, 0, 0, after.Location())
			if daysIn(first.Year(), first.Month()) < p.day {
				continue
			}
			t := p.at.On(first.AddDate(0, 0, p.day-1))
			if t.After(after) {
				return t, true
			}
		}

	case Yearly:
		for y := after.Year(); y <= after.Year()+8; y++ {
			if daysInYear(y) < p.day {
				continue
			}
			t := p.at.On(time.Date(y, time.January, p.day, 0, 0, 0, 0, after.Location()))
			if t.After(after) {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func daysInYear(y int) int {
	return time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}
