// Package resolver certifies how a process would be triggered, and by whom.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/geoflow/geoflow/pkg/domain"
	kdb "github.com/geoflow/geoflow/pkg/domain/graph/db"
	"github.com/geoflow/geoflow/pkg/domain/schedule"
	"github.com/geoflow/geoflow/pkg/metrics"
)

// Resolution is "this process, if run, would run under Policy against ServiceInstance".
type Resolution struct {
	Process         domain.Ref              `json:"process"`
	ScheduleType    domain.ScheduleType     `json:"schedule_type"`
	Policy          schedule.Policy         `json:"policy"`
	ServiceInstance *domain.ServiceInstance `json:"service_instance"`

	// Active is true when the process is active.
	Active bool `json:"active"`

	// NextTrigger is the first clock trigger after the resolution.
	// nil for AUTOMATIC and NONE policies.
	NextTrigger *time.Time `json:"next_trigger,omitempty"`
}

// WorkItem is a process assigned to a service instance, with its resolution or resolution error.
type WorkItem struct {
	Process    domain.Ref  `json:"process"`
	Resolution *Resolution `json:"resolution,omitempty"`
	Error      error       `json:"-"`
}

type Resolver interface {
	// Resolve a process.
	//
	// # Returns
	//
	// - Resolution
	//
	// - error: *domain.NotFoundError when the process does not exist.
	// *domain.MisconfiguredScheduleError when schedule_type disagrees with the attached schedule.
	// *domain.NoServiceAssignedError or *domain.ServiceTypeMismatchError for the service instance.
	Resolve(ctx context.Context, kind domain.Kind, id int64) (Resolution, error)

	// ForService lists processes assigned to the service instance, sorted by kind and id.
	//
	// Processes which can not be resolved are listed with their error.
	ForService(ctx context.Context, serviceInstanceId int64) ([]WorkItem, error)
}

type resolver struct {
	db  kdb.Database
	now func() time.Time
}

type Option func(*resolver) *resolver

// WithClock sets the clock which next triggers are computed from.
//
// Default: time.Now
func WithClock(now func() time.Time) Option {
	return func(r *resolver) *resolver {
		r.now = now
		return r
	}
}

func New(db kdb.Database, options ...Option) Resolver {
	r := &resolver{db: db, now: time.Now}
	for _, o := range options {
		r = o(r)
	}
	return r
}

func (r *resolver) Resolve(ctx context.Context, kind domain.Kind, id int64) (Resolution, error) {
	now := r.now()
	res, err := kdb.Read(ctx, r.db, func(tx kdb.Reader) (Resolution, error) {
		return Resolve(ctx, tx, kind, id, now)
	})
	metrics.ObserveResolution(kind, err)
	return res, err
}

func (r *resolver) ForService(ctx context.Context, serviceInstanceId int64) ([]WorkItem, error) {
	now := r.now()
	return kdb.Read(ctx, r.db, func(tx kdb.Reader) ([]WorkItem, error) {
		return ForService(ctx, tx, serviceInstanceId, now)
	})
}

// Resolve resolves a process with rows visible from r, at now.
func Resolve(ctx context.Context, r kdb.Reader, kind domain.Kind, id int64, now time.Time) (Resolution, error) {
	if !kind.IsProcess() {
		return Resolution{}, fmt.Errorf("%w: %s is not a process", domain.ErrInvalid, kind)
	}
	e, err := r.Get(ctx, kind, id)
	if err != nil {
		return Resolution{}, err
	}
	return resolve(ctx, r, e.(domain.Process), now)
}

func resolve(ctx context.Context, r kdb.Reader, p domain.Process, now time.Time) (Resolution, error) {
	ref := domain.Ref{Kind: p.Kind(), Id: p.Identity()}
	link := p.Link()

	policy, err := policyOf(ctx, r, ref, link)
	if err != nil {
		return Resolution{}, err
	}

	if link.ServiceInstanceId == nil {
		return Resolution{}, &domain.NoServiceAssignedError{Process: ref}
	}
	e, err := r.Get(ctx, domain.KindServiceInstance, *link.ServiceInstanceId)
	if err != nil {
		return Resolution{}, err
	}
	si := e.(*domain.ServiceInstance)
	expected, _ := ref.Kind.ServiceType()
	if si.ServiceType != expected {
		return Resolution{}, &domain.ServiceTypeMismatchError{
			Process:         ref,
			ServiceInstance: si.Id,
			Expected:        expected,
			Actual:          si.ServiceType,
		}
	}

	res := Resolution{
		Process:         ref,
		ScheduleType:    link.ScheduleType,
		Policy:          policy,
		ServiceInstance: si,
		Active:          link.Active,
	}
	if next, ok := policy.Next(now); ok {
		res.NextTrigger = &next
	}
	return res, nil
}

func policyOf(ctx context.Context, r kdb.Reader, ref domain.Ref, link *domain.ProcessLink) (schedule.Policy, error) {
	st := link.ScheduleType
	misconfigured := func(format string, args ...any) error {
		return &domain.MisconfiguredScheduleError{
			Process: ref, ScheduleType: st, Reason: fmt.Sprintf(format, args...),
		}
	}

	if link.ScheduleId != nil && link.AutomaticScheduleId != nil {
		return schedule.Policy{}, misconfigured("both of schedule and automatic schedule are attached")
	}

	switch {
	case st.UsesSchedule():
		if link.ScheduleId == nil {
			return schedule.Policy{}, misconfigured("no schedule is attached")
		}
		e, err := r.Get(ctx, domain.KindSchedule, *link.ScheduleId)
		if err != nil {
			return schedule.Policy{}, err
		}
		policy, err := schedule.Parse(*e.(*domain.Schedule), false)
		if err != nil {
			return schedule.Policy{}, misconfigured("%s", err)
		}
		if _, ok := policy.Reprocessing(); st == domain.ScheduleTypeReprocessingHistorical && !ok {
			return schedule.Policy{}, misconfigured("schedule has no reprocessing window")
		}
		return policy, nil

	case st == domain.ScheduleTypeAutomatic:
		if link.AutomaticScheduleId == nil {
			return schedule.Policy{}, misconfigured("no automatic schedule is attached")
		}
		e, err := r.Get(ctx, domain.KindAutomaticSchedule, *link.AutomaticScheduleId)
		if err != nil {
			return schedule.Policy{}, err
		}
		policy, err := schedule.Automatic(*e.(*domain.AutomaticSchedule))
		if err != nil {
			return schedule.Policy{}, misconfigured("%s", err)
		}
		return policy, nil

	case st == domain.ScheduleTypeManual:
		if link.ScheduleId != nil || link.AutomaticScheduleId != nil {
			return schedule.Policy{}, misconfigured("manual process should not have schedule")
		}
		return schedule.PolicyNone(), nil
	}
	return schedule.Policy{}, misconfigured("unknown schedule type")
}

// ForService lists processes assigned to the service instance with rows visible from r, at now.
func ForService(ctx context.Context, r kdb.Reader, serviceInstanceId int64, now time.Time) ([]WorkItem, error) {
	if _, err := r.Get(ctx, domain.KindServiceInstance, serviceInstanceId); err != nil {
		return nil, err
	}

	items := []WorkItem{}
	for _, k := range domain.ProcessKinds() {
		found, err := r.Find(ctx, k, kdb.ByRef("service_instance_id", serviceInstanceId))
		if err != nil {
			return nil, err
		}
		for _, e := range found {
			item := WorkItem{Process: domain.Ref{Kind: k, Id: e.Identity()}}
			res, err := resolve(ctx, r, e.(domain.Process), now)
			if err != nil {
				item.Error = err
			} else {
				item.Resolution = &res
			}
			items = append(items, item)
		}
	}
	return items, nil
}
