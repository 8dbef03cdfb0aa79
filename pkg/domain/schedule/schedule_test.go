package schedule_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/geoflow/geoflow/pkg/cmp"
	"github.com/geoflow/geoflow/pkg/domain"
	"github.com/geoflow/geoflow/pkg/domain/schedule"
	"github.com/geoflow/geoflow/pkg/utils/pointer"
	"github.com/geoflow/geoflow/pkg/utils/try"
)

func TestParse(t *testing.T) {
	type then struct {
		kind     schedule.Kind
		every    int
		unit     schedule.Unit
		day      int
		at       string
		retry    time.Duration
		timeout  time.Duration
		interval time.Duration
	}

	for name, testcase := range map[string]struct {
		when domain.Schedule
		then then
	}{
		"frequency in minutes": {
			when: domain.Schedule{
				Frequency:     pointer.Ref(5),
				FrequencyUnit: pointer.Ref("minutes"),
			},
			then: then{kind: schedule.KindFrequency, every: 5, unit: schedule.Minutes, interval: 5 * time.Minute},
		},
		"frequency unit alias is normalized": {
			when: domain.Schedule{
				Frequency:     pointer.Ref(30),
				FrequencyUnit: pointer.Ref("sec"),
			},
			then: then{kind: schedule.KindFrequency, every: 30, unit: schedule.Seconds, interval: 30 * time.Second},
		},
		"frequency unit is case insensitive": {
			when: domain.Schedule{
				Frequency:     pointer.Ref(2),
				FrequencyUnit: pointer.Ref("H"),
			},
			then: then{kind: schedule.KindFrequency, every: 2, unit: schedule.Hours, interval: 2 * time.Hour},
		},
		"clock on weekday": {
			when: domain.Schedule{
				Schedule:     pointer.Ref(3),
				ScheduleUnit: pointer.Ref("wk"),
				ScheduleTime: pointer.Ref("12:30"),
			},
			then: then{kind: schedule.KindClock, day: 3, unit: schedule.Weeks, at: "12:30:00"},
		},
		"clock on day of month": {
			when: domain.Schedule{
				Schedule:     pointer.Ref(31),
				ScheduleUnit: pointer.Ref("month"),
				ScheduleTime: pointer.Ref("01:02:03"),
			},
			then: then{kind: schedule.KindClock, day: 31, unit: schedule.Monthly, at: "01:02:03"},
		},
		"clock on day of year": {
			when: domain.Schedule{
				Schedule:     pointer.Ref(366),
				ScheduleUnit: pointer.Ref("yearly"),
			},
			then: then{kind: schedule.KindClock, day: 366, unit: schedule.Yearly, at: "00:00:00"},
		},
		"retry and timeout": {
			when: domain.Schedule{
				Frequency:     pointer.Ref(1),
				FrequencyUnit: pointer.Ref("hour"),
				RetryPolicy: domain.RetryPolicy{
					ScheduleRetry:       pointer.Ref(10),
					ScheduleRetryUnit:   pointer.Ref("min"),
					ScheduleTimeout:     pointer.Ref(2),
					ScheduleTimeoutUnit: pointer.Ref("days"),
				},
			},
			then: then{
				kind: schedule.KindFrequency, every: 1, unit: schedule.Hours, interval: time.Hour,
				retry: 10 * time.Minute, timeout: 48 * time.Hour,
			},
		},
		"no forms": {
			when: domain.Schedule{},
			then: then{kind: schedule.KindNone},
		},
	} {
		t.Run(name, func(t *testing.T) {
			actual := try.To(schedule.Parse(testcase.when, true)).OrFatal(t)

			if actual.Kind() != testcase.then.kind {
				t.Fatalf("kind: actual = %s, expected = %s", actual.Kind(), testcase.then.kind)
			}
			switch actual.Kind() {
			case schedule.KindFrequency:
				every, unit := actual.Frequency()
				if every != testcase.then.every || unit != testcase.then.unit {
					t.Errorf("frequency: actual = %d %s, expected = %d %s", every, unit, testcase.then.every, testcase.then.unit)
				}
			case schedule.KindClock:
				day, unit, at := actual.Clock()
				if day != testcase.then.day || unit != testcase.then.unit || at.String() != testcase.then.at {
					t.Errorf(
						"clock: actual = %d %s %s, expected = %d %s %s",
						day, unit, at, testcase.then.day, testcase.then.unit, testcase.then.at,
					)
				}
			}
			if actual.Interval() != testcase.then.interval {
				t.Errorf("interval: actual = %s, expected = %s", actual.Interval(), testcase.then.interval)
			}
			if actual.Retry() != testcase.then.retry {
				t.Errorf("retry: actual = %s, expected = %s", actual.Retry(), testcase.then.retry)
			}
			if actual.Timeout() != testcase.then.timeout {
				t.Errorf("timeout: actual = %s, expected = %s", actual.Timeout(), testcase.then.timeout)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for name, testcase := range map[string]struct {
		when      domain.Schedule
		allowNone bool
		then      error
	}{
		"both of frequency and schedule_time": {
			when: domain.Schedule{
				Frequency:     pointer.Ref(5),
				FrequencyUnit: pointer.Ref("minutes"),
				ScheduleTime:  pointer.Ref("10:00:00"),
			},
			allowNone: true,
			then:      domain.ErrConflictingSchedule,
		},
		"no forms when none is not allowed": {
			when: domain.Schedule{},
			then: domain.ErrConflictingSchedule,
		},
		"weeks with day 8": {
			when: domain.Schedule{
				Schedule:     pointer.Ref(8),
				ScheduleUnit: pointer.Ref("weeks"),
				ScheduleTime: pointer.Ref("10:00"),
			},
			then: domain.ErrRange,
		},
		"weeks with day 0": {
			when: domain.Schedule{
				Schedule:     pointer.Ref(0),
				ScheduleUnit: pointer.Ref("w"),
			},
			then: domain.ErrRange,
		},
		"monthly with day 32": {
			when: domain.Schedule{
				Schedule:     pointer.Ref(32),
				ScheduleUnit: pointer.Ref("monthly"),
			},
			then: domain.ErrRange,
		},
		"yearly with day 367": {
			when: domain.Schedule{
				Schedule:     pointer.Ref(367),
				ScheduleUnit: pointer.Ref("year"),
			},
			then: domain.ErrRange,
		},
		"unknown schedule unit": {
			when: domain.Schedule{
				Schedule:     pointer.Ref(1),
				ScheduleUnit: pointer.Ref("fortnight"),
			},
			then: domain.ErrRange,
		},
		"unknown frequency unit": {
			when: domain.Schedule{
				Frequency:     pointer.Ref(1),
				FrequencyUnit: pointer.Ref("days"),
			},
			then: domain.ErrRange,
		},
		"zero frequency": {
			when: domain.Schedule{
				Frequency:     pointer.Ref(0),
				FrequencyUnit: pointer.Ref("seconds"),
			},
			then: domain.ErrRange,
		},
		"frequency overflowing a duration": {
			when: domain.Schedule{
				Frequency:     pointer.Ref(3_000_000),
				FrequencyUnit: pointer.Ref("hours"),
			},
			then: domain.ErrRange,
		},
		"frequency unit without frequency": {
			when: domain.Schedule{FrequencyUnit: pointer.Ref("seconds")},
			then: domain.ErrInvalid,
		},
		"broken schedule_time": {
			when: domain.Schedule{
				Schedule:     pointer.Ref(1),
				ScheduleUnit: pointer.Ref("weeks"),
				ScheduleTime: pointer.Ref("25:61"),
			},
			then: domain.ErrInvalid,
		},
		"unknown retry unit": {
			when: domain.Schedule{
				Frequency:     pointer.Ref(1),
				FrequencyUnit: pointer.Ref("seconds"),
				RetryPolicy: domain.RetryPolicy{
					ScheduleRetry:     pointer.Ref(1),
					ScheduleRetryUnit: pointer.Ref("fortnight"),
				},
			},
			then: domain.ErrRange,
		},
		"retry overflowing a duration": {
			when: domain.Schedule{
				Frequency:     pointer.Ref(1),
				FrequencyUnit: pointer.Ref("seconds"),
				RetryPolicy: domain.RetryPolicy{
					ScheduleRetry:     pointer.Ref(200_000),
					ScheduleRetryUnit: pointer.Ref("days"),
				},
			},
			then: domain.ErrRange,
		},
		"timeout overflowing a duration": {
			when: domain.Schedule{
				Frequency:     pointer.Ref(1),
				FrequencyUnit: pointer.Ref("seconds"),
				RetryPolicy: domain.RetryPolicy{
					ScheduleTimeout:     pointer.Ref(1 << 40),
					ScheduleTimeoutUnit: pointer.Ref("seconds"),
				},
			},
			then: domain.ErrRange,
		},
		"reversed reprocessing window": {
			when: domain.Schedule{
				Frequency:     pointer.Ref(1),
				FrequencyUnit: pointer.Ref("hours"),
				Reprocessing: &domain.ReprocessingWindow{
					StartDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
					EndDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				},
			},
			then: domain.ErrInvalid,
		},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := schedule.Parse(testcase.when, testcase.allowNone)
			if !errors.Is(err, testcase.then) {
				t.Errorf("unexpected error: actual = %v, expected = %v", err, testcase.then)
			}
		})
	}

	t.Run("conflicting schedule error is typed", func(t *testing.T) {
		_, err := schedule.Parse(domain.Schedule{
			Frequency:    pointer.Ref(5),
			ScheduleTime: pointer.Ref("10:00:00"),
		}, false)
		var cse *domain.ConflictingScheduleError
		if !errors.As(err, &cse) {
			t.Errorf("error is not ConflictingScheduleError: %v", err)
		}
	})

	t.Run("largest frequency in hours is accepted", func(t *testing.T) {
		limit := int(math.MaxInt64 / int64(time.Hour))
		p := try.To(schedule.Parse(domain.Schedule{
			Frequency:     pointer.Ref(limit),
			FrequencyUnit: pointer.Ref("h"),
		}, false)).OrFatal(t)
		if p.Interval() <= 0 {
			t.Errorf("interval overflows: %s", p.Interval())
		}

		_, err := schedule.Parse(domain.Schedule{
			Frequency:     pointer.Ref(limit + 1),
			FrequencyUnit: pointer.Ref("h"),
		}, false)
		var re *domain.RangeError
		if !errors.As(err, &re) || re.Field != "frequency" {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("range error names the field", func(t *testing.T) {
		_, err := schedule.Parse(domain.Schedule{
			Schedule:     pointer.Ref(8),
			ScheduleUnit: pointer.Ref("weeks"),
		}, false)
		var re *domain.RangeError
		if !errors.As(err, &re) {
			t.Fatalf("error is not RangeError: %v", err)
		}
		if re.Field != "schedule" || re.Value != 8 {
			t.Errorf("unexpected range error: %+v", re)
		}
	})
}

func TestParse_Reprocessing(t *testing.T) {
	window := domain.ReprocessingWindow{
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	p := try.To(schedule.Parse(domain.Schedule{
		Frequency:     pointer.Ref(1),
		FrequencyUnit: pointer.Ref("hours"),
		Reprocessing:  &window,
	}, false)).OrFatal(t)

	actual, ok := p.Reprocessing()
	if !ok {
		t.Fatal("reprocessing window is lost")
	}
	if !actual.StartDate.Equal(window.StartDate) || !actual.EndDate.Equal(window.EndDate) {
		t.Errorf("reprocessing window: actual = %+v, expected = %+v", actual, window)
	}
}

func TestAutomatic(t *testing.T) {
	t.Run("data ids are sorted and deduplicated", func(t *testing.T) {
		p := try.To(schedule.Automatic(domain.AutomaticSchedule{
			DataIds: []int64{3, 1, 3, 2},
			RetryPolicy: domain.RetryPolicy{
				ScheduleTimeout:     pointer.Ref(30),
				ScheduleTimeoutUnit: pointer.Ref("s"),
			},
		})).OrFatal(t)

		if p.Kind() != schedule.KindAutomatic {
			t.Errorf("kind = %s", p.Kind())
		}
		if !cmp.SliceEq(p.DataIds(), []int64{1, 2, 3}) {
			t.Errorf("data ids = %v", p.DataIds())
		}
		if p.Timeout() != 30*time.Second {
			t.Errorf("timeout = %s", p.Timeout())
		}
		if _, ok := p.Next(time.Now()); ok {
			t.Error("automatic policy should not have next trigger")
		}
	})

	t.Run("empty data ids", func(t *testing.T) {
		_, err := schedule.Automatic(domain.AutomaticSchedule{})
		if !errors.Is(err, domain.ErrInvalid) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestPolicy_MarshalJSON(t *testing.T) {
	p := try.To(schedule.Parse(domain.Schedule{
		Frequency:     pointer.Ref(5),
		FrequencyUnit: pointer.Ref("minute"),
	}, false)).OrFatal(t)

	actual := map[string]any{}
	if err := json.Unmarshal(try.To(json.Marshal(p)).OrFatal(t), &actual); err != nil {
		t.Fatal(err)
	}
	expected := map[string]any{
		"kind":      "FREQUENCY",
		"frequency": float64(5),
		"unit":      "minutes",
	}
	if !cmp.MapEq(actual, expected) {
		t.Errorf("json: actual = %+v, expected = %+v", actual, expected)
	}
}
