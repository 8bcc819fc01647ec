package service

import (
	"context"
	"time"

	"github.com/iliyamo/cocktail-hub/internal/fanout"
	"github.com/iliyamo/cocktail-hub/internal/logger"
	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/observability"
	"github.com/iliyamo/cocktail-hub/internal/queue"
)

// PlanFailedPublisher delivers failed plans to the reconciliation queue.
type PlanFailedPublisher interface {
	PublishPlanFailed(ctx context.Context, ev queue.PlanFailedEvent) error
}

// ActivityPublisher delivers committed plans to the activity feed.
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, ev queue.ActivityEvent) error
}

const publishTimeout = 3 * time.Second

// Reporter forwards plan outcomes to the brokers.  Publish errors are
// logged and counted, never returned: the write already happened.  A nil
// *Reporter and nil publishers are valid.
type Reporter struct {
	failed   PlanFailedPublisher
	activity ActivityPublisher
	metrics  *observability.Metrics
	log      *logger.Logger
	now      func() time.Time
}

func NewReporter(failed PlanFailedPublisher, activity ActivityPublisher, m *observability.Metrics, log *logger.Logger) *Reporter {
	if log == nil {
		log = logger.Nop()
	}
	return &Reporter{failed: failed, activity: activity, metrics: m, log: log, now: time.Now}
}

// PlanFailed publishes a PlanFailedEvent when err carries a partial failure.
func (r *Reporter) PlanFailed(ctx context.Context, p model.Principal, err error) {
	if r == nil || r.failed == nil {
		return
	}
	pf, ok := fanout.AsPartialFailure(err)
	if !ok {
		return
	}
	ev := queue.NewPlanFailedEvent(pf, p, r.now())
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if perr := r.failed.PublishPlanFailed(ctx, ev); perr != nil {
		r.metrics.IncPublishFailure("rabbitmq")
		r.log.Error("publish failed plan", "event", ev.Event, "failed_step", ev.FailedStep, "error", perr)
	}
}

// PlanCommitted publishes an ActivityEvent for res.
func (r *Reporter) PlanCommitted(ctx context.Context, p model.Principal, res fanout.Result) {
	if r == nil || r.activity == nil {
		return
	}
	ev := queue.NewActivityEvent(res, p, r.now())
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := r.activity.PublishActivity(ctx, ev); err != nil {
		r.metrics.IncPublishFailure("kafka")
		r.log.Warn("publish activity", "event", ev.Event, "error", err)
	}
}
