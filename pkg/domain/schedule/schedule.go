// Package schedule parses schedule rows into trigger policies.
//
// A Policy is one of mutually exclusive triggering strategies:
//
// - FREQUENCY: every N seconds, minutes or hours.
//
// - CLOCK: at a time of day, on a day of week, month or year.
//
// - AUTOMATIC: when any of upstream data series gets new data.
//
// - NONE: never triggered by geoflow (manual processes).
package schedule

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/geoflow/geoflow/pkg/domain"
)

type Kind string

const (
	KindFrequency Kind = "FREQUENCY"
	KindClock     Kind = "CLOCK"
	KindAutomatic Kind = "AUTOMATIC"
	KindNone      Kind = "NONE"
)

// Unit is a normalized unit of frequency or clock schedule.
type Unit string

const (
	Seconds Unit = "seconds"
	Minutes Unit = "minutes"
	Hours   Unit = "hours"
	Days    Unit = "days"

	Weeks   Unit = "weeks"
	Monthly Unit = "monthly"
	Yearly  Unit = "yearly"
)

var frequencyUnits = map[string]Unit{
	"s": Seconds, "sec": Seconds, "second": Seconds, "seconds": Seconds,
	"min": Minutes, "minute": Minutes, "minutes": Minutes,
	"h": Hours, "hour": Hours, "hours": Hours,
}

// units of retry and timeout. they can be longer than frequency.
var durationUnits = map[string]Unit{
	"d": Days, "day": Days, "days": Days,
}

var clockUnits = map[string]Unit{
	"w": Weeks, "wk": Weeks, "week": Weeks, "weeks": Weeks,
	"month": Monthly, "monthly": Monthly,
	"year": Yearly, "yearly": Yearly,
}

// bounds of day number in clock units.
var clockDays = map[Unit][2]int{
	Weeks:   {1, 7},
	Monthly: {1, 31},
	Yearly:  {1, 366},
}

func (u Unit) Duration() time.Duration {
	switch u {
	case Seconds:
		return time.Second
	case Minutes:
		return time.Minute
	case Hours:
		return time.Hour
	case Days:
		return 24 * time.Hour
	}
	return 0
}

// limit is the largest amount of the unit which fits in time.Duration.
func (u Unit) limit() int64 {
	d := u.Duration()
	if d <= 0 {
		return math.MaxInt64
	}
	return int64(math.MaxInt64 / d)
}

func lookupUnit(table map[string]Unit, s string) (Unit, bool) {
	u, ok := table[strings.ToLower(strings.TrimSpace(s))]
	return u, ok
}

func expectedOf(table map[string]Unit) string {
	canon := []string{}
	for _, u := range table {
		if !slices.Contains(canon, string(u)) {
			canon = append(canon, string(u))
		}
	}
	slices.Sort(canon)
	return strings.Join(canon, "|")
}

// NormalizeFrequencyUnit converts an alias of frequency unit into the canonical one.
func NormalizeFrequencyUnit(s string) (Unit, error) {
	u, ok := lookupUnit(frequencyUnits, s)
	if !ok {
		return "", &domain.RangeError{Field: "frequency_unit", Value: s, Expected: expectedOf(frequencyUnits)}
	}
	return u, nil
}

// NormalizeClockUnit converts an alias of schedule unit into the canonical one.
func NormalizeClockUnit(s string) (Unit, error) {
	u, ok := lookupUnit(clockUnits, s)
	if !ok {
		return "", &domain.RangeError{Field: "schedule_unit", Value: s, Expected: expectedOf(clockUnits)}
	}
	return u, nil
}

// TimeOfDay is a wall clock time, without date and location.
type TimeOfDay struct {
	Hour, Minute, Second int
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("%w: time of day should be HH:MM[:SS], but %q", domain.ErrInvalid, s)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// On returns the instant of the time of day at the date of d, in d's location.
func (t TimeOfDay) On(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, t.Hour, t.Minute, t.Second, 0, d.Location())
}

// Policy is a parsed, immutable trigger policy.
type Policy struct {
	kind Kind

	// FREQUENCY
	every int
	unit  Unit
	start *TimeOfDay

	// CLOCK
	day int
	at  TimeOfDay

	// AUTOMATIC
	dataIds []int64

	retry        time.Duration
	timeout      time.Duration
	reprocessing *domain.ReprocessingWindow
}

// PolicyNone is the policy of processes which are not triggered by schedule.
func PolicyNone() Policy {
	return Policy{kind: KindNone}
}

func (p Policy) Kind() Kind {
	return p.kind
}

// Frequency returns the frequency and its unit of FREQUENCY policy.
func (p Policy) Frequency() (int, Unit) {
	return p.every, p.unit
}

// Interval returns the period of FREQUENCY policy. Otherwise, 0.
func (p Policy) Interval() time.Duration {
	if p.kind != KindFrequency {
		return 0
	}
	return time.Duration(p.every) * p.unit.Duration()
}

// StartTime returns the time of day where FREQUENCY policy is aligned on.
func (p Policy) StartTime() (TimeOfDay, bool) {
	if p.start == nil {
		return TimeOfDay{}, false
	}
	return *p.start, true
}

// Clock returns the day number, its unit and the time of day of CLOCK policy.
func (p Policy) Clock() (day int, unit Unit, at TimeOfDay) {
	return p.day, p.unit, p.at
}

// DataIds returns the upstream data series ids of AUTOMATIC policy.
func (p Policy) DataIds() []int64 {
	return slices.Clone(p.dataIds)
}

func (p Policy) Retry() time.Duration {
	return p.retry
}

func (p Policy) Timeout() time.Duration {
	return p.timeout
}

// Reprocessing returns the window of historical data to be processed again, if any.
func (p Policy) Reprocessing() (domain.ReprocessingWindow, bool) {
	if p.reprocessing == nil {
		return domain.ReprocessingWindow{}, false
	}
	return *p.reprocessing, true
}

func (p Policy) String() string {
	switch p.kind {
	case KindFrequency:
		return fmt.Sprintf("%s(%d %s)", p.kind, p.every, p.unit)
	case KindClock:
		return fmt.Sprintf("%s(%s #%d at %s)", p.kind, p.unit, p.day, p.at)
	case KindAutomatic:
		return fmt.Sprintf("%s(on %v)", p.kind, p.dataIds)
	}
	return string(p.kind)
}

type policyJSON struct {
	Kind           Kind                       `json:"kind"`
	Frequency      int                        `json:"frequency,omitempty"`
	Unit           Unit                       `json:"unit,omitempty"`
	StartTime      *TimeOfDay                 `json:"start_time,omitempty"`
	Day            int                        `json:"day,omitempty"`
	At             *TimeOfDay                 `json:"at,omitempty"`
	DataIds        []int64                    `json:"data_ids,omitempty"`
	RetrySeconds   float64                    `json:"retry_seconds,omitempty"`
	TimeoutSeconds float64                    `json:"timeout_seconds,omitempty"`
	Reprocessing   *domain.ReprocessingWindow `json:"reprocessing,omitempty"`
}

func (p Policy) MarshalJSON() ([]byte, error) {
	j := policyJSON{
		Kind:           p.kind,
		Frequency:      p.every,
		Unit:           p.unit,
		StartTime:      p.start,
		Day:            p.day,
		DataIds:        p.dataIds,
		RetrySeconds:   p.retry.Seconds(),
		TimeoutSeconds: p.timeout.Seconds(),
		Reprocessing:   p.reprocessing,
	}
	if p.kind == KindClock {
		at := p.at
		j.At = &at
	}
	return json.Marshal(j)
}

func nonEmpty(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// Parse converts a schedule row into a Policy.
//
// # Args
//
// - s: schedule row. Exactly one of frequency form or clock form should be populated.
//
// - allowNone: if true, a schedule without any forms is PolicyNone.
//
// # Returns
//
// - Policy
//
// - error: *domain.ConflictingScheduleError when both forms are given
// (or none of them are given while allowNone is false),
// *domain.RangeError when an unit or a day number is out of its domain,
// or *domain.ValidationError for other malformed fields.
func Parse(s domain.Schedule, allowNone bool) (Policy, error) {
	hasFrequency := s.Frequency != nil || nonEmpty(s.FrequencyUnit)
	hasClock := s.Schedule != nil || nonEmpty(s.ScheduleTime) || nonEmpty(s.ScheduleUnit)

	var p Policy
	var err error
	switch {
	case hasFrequency && hasClock:
		return Policy{}, &domain.ConflictingScheduleError{
			Reason: "both of frequency and schedule (clock) forms are given",
		}
	case hasFrequency:
		p, err = parseFrequency(s)
	case hasClock:
		p, err = parseClock(s)
	case allowNone:
		p = PolicyNone()
	default:
		return Policy{}, &domain.ConflictingScheduleError{
			Reason: "neither of frequency and schedule (clock) forms are given",
		}
	}
	if err != nil {
		return Policy{}, err
	}

	if p.retry, p.timeout, err = retryPolicy(s.RetryPolicy); err != nil {
		return Policy{}, err
	}

	if r := s.Reprocessing; r != nil {
		if !r.StartDate.Before(r.EndDate) {
			return Policy{}, domain.NewValidationError(
				domain.KindSchedule, "reprocessing.end_date", r.EndDate,
				"end_date should be after start_date",
			)
		}
		w := *r
		p.reprocessing = &w
	}
	return p, nil
}

func parseFrequency(s domain.Schedule) (Policy, error) {
	if s.Frequency == nil {
		return Policy{}, domain.NewValidationError(
			domain.KindSchedule, "frequency", nil, "frequency is required with frequency_unit",
		)
	}
	if *s.Frequency <= 0 {
		return Policy{}, &domain.RangeError{Field: "frequency", Value: *s.Frequency, Expected: "> 0"}
	}
	unitName := ""
	if s.FrequencyUnit != nil {
		unitName = *s.FrequencyUnit
	}
	unit, err := NormalizeFrequencyUnit(unitName)
	if err != nil {
		return Policy{}, err
	}
	if limit := unit.limit(); int64(*s.Frequency) > limit {
		return Policy{}, &domain.RangeError{Field: "frequency", Value: *s.Frequency, Expected: fmt.Sprintf("1-%d", limit)}
	}

	p := Policy{kind: KindFrequency, every: *s.Frequency, unit: unit}
	if nonEmpty(s.FrequencyStartTime) {
		start, err := ParseTimeOfDay(*s.FrequencyStartTime)
		if err != nil {
			return Policy{}, domain.NewValidationError(
				domain.KindSchedule, "frequency_start_time", *s.FrequencyStartTime, err.Error(),
			)
		}
		p.start = &start
	}
	return p, nil
}

func parseClock(s domain.Schedule) (Policy, error) {
	if s.Schedule == nil {
		return Policy{}, domain.NewValidationError(
			domain.KindSchedule, "schedule", nil, "day number is required with schedule_unit",
		)
	}
	unitName := ""
	if s.ScheduleUnit != nil {
		unitName = *s.ScheduleUnit
	}
	unit, err := NormalizeClockUnit(unitName)
	if err != nil {
		return Policy{}, err
	}
	bounds := clockDays[unit]
	if day := *s.Schedule; day < bounds[0] || bounds[1] < day {
		return Policy{}, &domain.RangeError{
			Field:    "schedule",
			Value:    day,
			Expected: fmt.Sprintf("%d-%d for %s", bounds[0], bounds[1], unit),
		}
	}

	p := Policy{kind: KindClock, day: *s.Schedule, unit: unit}
	if nonEmpty(s.ScheduleTime) {
		at, err := ParseTimeOfDay(*s.ScheduleTime)
		if err != nil {
			return Policy{}, domain.NewValidationError(
				domain.KindSchedule, "schedule_time", *s.ScheduleTime, err.Error(),
			)
		}
		p.at = at
	}
	return p, nil
}

func retryPolicy(r domain.RetryPolicy) (retry time.Duration, timeout time.Duration, err error) {
	amount := func(field string, n *int, unitField string, unit *string) (time.Duration, error) {
		if n == nil || *n == 0 {
			return 0, nil
		}
		if *n < 0 {
			return 0, &domain.RangeError{Field: field, Value: *n, Expected: ">= 0"}
		}
		name := ""
		if unit != nil {
			name = *unit
		}
		u, ok := lookupUnit(frequencyUnits, name)
		if !ok {
			if u, ok = lookupUnit(durationUnits, name); !ok {
				return 0, &domain.RangeError{
					Field:    unitField,
					Value:    name,
					Expected: expectedOf(frequencyUnits) + "|" + expectedOf(durationUnits),
				}
			}
		}
		if limit := u.limit(); int64(*n) > limit {
			return 0, &domain.RangeError{Field: field, Value: *n, Expected: fmt.Sprintf("0-%d", limit)}
		}
		return time.Duration(*n) * u.Duration(), nil
	}

	if retry, err = amount("schedule_retry", r.ScheduleRetry, "schedule_retry_unit", r.ScheduleRetryUnit); err != nil {
		return 0, 0, err
	}
	if timeout, err = amount("schedule_timeout", r.ScheduleTimeout, "schedule_timeout_unit", r.ScheduleTimeoutUnit); err != nil {
		return 0, 0, err
	}
	return retry, timeout, nil
}

// Automatic builds the data-driven policy of an automatic schedule row.
//
// # Returns
//
// - Policy
//
// - error: *domain.ValidationError when data_ids is empty.
// Or, *domain.RangeError for retry/timeout fields.
func Automatic(a domain.AutomaticSchedule) (Policy, error) {
	if len(a.DataIds) == 0 {
		return Policy{}, domain.NewValidationError(
			domain.KindAutomaticSchedule, "data_ids", a.DataIds,
			"automatic schedule needs at least one data series",
		)
	}
	ids := slices.Clone(a.DataIds)
	slices.Sort(ids)
	p := Policy{kind: KindAutomatic, dataIds: slices.Compact(ids)}

	var err error
	if p.retry, p.timeout, err = retryPolicy(a.RetryPolicy); err != nil {
		return Policy{}, err
	}
	return p, nil
}
