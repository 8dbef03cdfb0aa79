package schedule_test

import (
	"testing"
	"time"

	"github.com/geoflow/geoflow/pkg/domain"
	"github.com/geoflow/geoflow/pkg/domain/schedule"
	"github.com/geoflow/geoflow/pkg/utils/pointer"
	"github.com/geoflow/geoflow/pkg/utils/try"
)

func TestPolicy_Next(t *testing.T) {
	at := func(s string) time.Time {
		return try.To(time.Parse(time.RFC3339, s)).OrFatal(t)
	}

	for name, testcase := range map[string]struct {
		when  domain.Schedule
		after string
		then  string
	}{
		"every 5 minutes from midnight": {
			when: domain.Schedule{
				Frequency:     pointer.Ref(5),
				FrequencyUnit: pointer.Ref("minutes"),
			},
			after: "2024-03-10T10:07:30Z",
			then:  "2024-03-10T10:10:00Z",
		},
		"every 5 minutes, just on the boundary": {
			when: domain.Schedule{
				Frequency:     pointer.Ref(5),
				FrequencyUnit: pointer.Ref("minutes"),
			},
			after: "2024-03-10T10:10:00Z",
			then:  "2024-03-10T10:15:00Z",
		},
		"every 2 hours aligned on start time": {
			when: domain.Schedule{
				Frequency:          pointer.Ref(2),
				FrequencyUnit:      pointer.Ref("hours"),
				FrequencyStartTime: pointer.Ref("01:30"),
			},
			after: "2024-03-10T10:00:00Z",
			then:  "2024-03-10T11:30:00Z",
		},
		"start time is later than after": {
			when: domain.Schedule{
				Frequency:          pointer.Ref(3),
				FrequencyUnit:      pointer.Ref("hours"),
				FrequencyStartTime: pointer.Ref("20:00:00"),
			},
			after: "2024-03-10T09:00:00Z",
			then:  "2024-03-10T11:00:00Z",
		},
		"weekly, later in the week": {
			// 2024-03-10 is Sunday. 3 is Wednesday.
			when: domain.Schedule{
				Schedule:     pointer.Ref(3),
				ScheduleUnit: pointer.Ref("weeks"),
				ScheduleTime: pointer.Ref("08:00"),
			},
			after: "2024-03-10T10:00:00Z",
			then:  "2024-03-13T08:00:00Z",
		},
		"weekly, same day but time has passed": {
			when: domain.Schedule{
				Schedule:     pointer.Ref(7),
				ScheduleUnit: pointer.Ref("weeks"),
				ScheduleTime: pointer.Ref("08:00"),
			},
			after: "2024-03-10T10:00:00Z",
			then:  "2024-03-17T08:00:00Z",
		},
		"weekly, same day and time is coming": {
			when: domain.Schedule{
				Schedule:     pointer.Ref(7),
				ScheduleUnit: pointer.Ref("weeks"),
				ScheduleTime: pointer.Ref("12:00"),
			},
			after: "2024-03-10T10:00:00Z",
			then:  "2024-03-10T12:00:00Z",
		},
		"monthly skips short months": {
			when: domain.Schedule{
				Schedule:     pointer.Ref(31),
				ScheduleUnit: pointer.Ref("monthly"),
				ScheduleTime: pointer.Ref("00:00"),
			},
			after: "2024-03-31T01:00:00Z",
			then:  "2024-05-31T00:00:00Z",
		},
		"yearly day 366 waits for a leap year": {
			when: domain.Schedule{
				Schedule:     pointer.Ref(366),
				ScheduleUnit: pointer.Ref("yearly"),
			},
			after: "2025-01-01T00:00:00Z",
			then:  "2028-12-31T00:00:00Z",
		},
	} {
		t.Run(name, func(t *testing.T) {
			p := try.To(schedule.Parse(testcase.when, false)).OrFatal(t)

			actual, ok := p.Next(at(testcase.after))
			if !ok {
				t.Fatal("no next trigger")
			}
			if expected := at(testcase.then); !actual.Equal(expected) {
				t.Errorf("next: actual = %s, expected = %s", actual, expected)
			}
		})
	}

	t.Run("none policy is never triggered", func(t *testing.T) {
		if _, ok := schedule.PolicyNone().Next(time.Now()); ok {
			t.Error("none policy has next trigger")
		}
	})
}
