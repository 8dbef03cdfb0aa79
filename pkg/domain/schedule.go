package domain

import "time"

// RetryPolicy is how the executor retries/gives up a triggered process.
//
// geoflow only stores and validates them.
type RetryPolicy struct {
	ScheduleRetry       *int    `json:"schedule_retry" validate:"omitempty,gte=0"`
	ScheduleRetryUnit   *string `json:"schedule_retry_unit"`
	ScheduleTimeout     *int    `json:"schedule_timeout" validate:"omitempty,gte=0"`
	ScheduleTimeoutUnit *string `json:"schedule_timeout_unit"`
}

// Schedule is the fixed-frequency or clock form of a trigger.
//
// At most one of {Frequency, Schedule} forms is populated.
// See package schedule for the parsed form.
type Schedule struct {
	Identified

	Frequency          *int    `json:"frequency"`
	FrequencyUnit      *string `json:"frequency_unit"`
	FrequencyStartTime *string `json:"frequency_start_time"`

	// day number in the ScheduleUnit (day of week, month or year).
	Schedule     *int    `json:"schedule"`
	ScheduleTime *string `json:"schedule_time"`
	ScheduleUnit *string `json:"schedule_unit"`

	RetryPolicy

	Reprocessing *ReprocessingWindow `json:"reprocessing"`
}

func (*Schedule) Kind() Kind { return KindSchedule }

// ReprocessingWindow is a range of historical data to be processed again.
type ReprocessingWindow struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// AutomaticSchedule triggers a process when any of data series in DataIds gets new data.
type AutomaticSchedule struct {
	Identified
	DataIds []int64 `json:"data_ids" ref:"data_series" validate:"required,min=1"`
	RetryPolicy
}

func (*AutomaticSchedule) Kind() Kind { return KindAutomaticSchedule }

// ProcessLink is embedded in every process kind.
type ProcessLink struct {
	Active              bool         `json:"active"`
	ScheduleType        ScheduleType `json:"schedule_type" validate:"schedule_type"`
	ScheduleId          *int64       `json:"schedule_id" ref:"schedule"`
	AutomaticScheduleId *int64       `json:"automatic_schedule_id" ref:"automatic_schedule"`
	ServiceInstanceId   *int64       `json:"service_instance_id" ref:"service_instance"`
}

// Process is an entity executed by a service instance.
type Process interface {
	Entity
	Link() *ProcessLink
}

func (p *ProcessLink) Link() *ProcessLink { return p }
