package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cocktail-hub/internal/fanout"
	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/store"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func samplePartialFailure() *fanout.PartialFailure {
	return &fanout.PartialFailure{
		Event:    "like.create",
		Strategy: "sequential",
		Committed: []fanout.StepOutcome{{
			Index: 1,
			Step:  fanout.WriteStep{Target: model.EntityLike, Op: fanout.OpInsert},
			ID:    "l1",
		}},
		FailedStep: 2,
		Step:       fanout.WriteStep{Target: model.EntityCocktail, Op: fanout.OpArrayPush, ID: "k1", Field: "likes"},
		Cause:      store.ErrNotFound,
	}
}

func TestNewPlanFailedEvent(t *testing.T) {
	ev := NewPlanFailedEvent(samplePartialFailure(), model.CustomerPrincipal{ID: "c1"}, at)

	assert.Equal(t, "like.create", ev.Event)
	assert.Equal(t, 2, ev.FailedStep)
	assert.Equal(t, "array_push", ev.FailedOp)
	assert.Equal(t, "cocktail", ev.FailedTarget)
	assert.Equal(t, "c1", ev.PrincipalID)
	assert.Equal(t, "customer", ev.Role)
	assert.Equal(t, "not found", ev.Cause)
	assert.Equal(t, "2026-03-01T12:00:00Z", ev.OccurredAt)
	assert.Equal(t, []CommittedStep{{Step: 1, Op: "insert", Target: "like", ID: "l1"}}, ev.Committed)
	assert.True(t, ev.NeedsReconciliation())

	ev = NewPlanFailedEvent(&fanout.PartialFailure{Event: "x", FailedStep: 1, Compensated: true}, nil, at)
	assert.Empty(t, ev.PrincipalID)
	assert.NotNil(t, ev.Committed)
	assert.False(t, ev.NeedsReconciliation())
}

func TestNewActivityEventDedupesEntities(t *testing.T) {
	res := fanout.Result{Event: "like.create", Committed: []fanout.StepOutcome{
		{Index: 1, Step: fanout.WriteStep{Target: model.EntityLike, Op: fanout.OpInsert}, ID: "l1"},
		{Index: 2, Step: fanout.WriteStep{Target: model.EntityBartender, Op: fanout.OpIncrement}, ID: "b1"},
		{Index: 3, Step: fanout.WriteStep{Target: model.EntityBartender, Op: fanout.OpIncrement}, ID: "b1"},
	}}
	ev := NewActivityEvent(res, model.BartenderPrincipal{ID: "b1"}, at)
	assert.Equal(t, 3, ev.Steps)
	assert.Equal(t, []fanout.EntityRef{
		{Type: model.EntityLike, ID: "l1"},
		{Type: model.EntityBartender, ID: "b1"},
	}, ev.Entities)
}

func TestFormatLine(t *testing.T) {
	line := FormatLine(NewPlanFailedEvent(samplePartialFailure(), model.CustomerPrincipal{ID: "c1"}, at))
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "event=like.create")
	assert.Contains(t, line, "failed_step=2 (array_push cocktail)")
	assert.Contains(t, line, "status=needs_reconciliation")
	assert.Contains(t, line, "committed=[1:insert:like/l1]")

	pf := samplePartialFailure()
	pf.RolledBack = true
	assert.Contains(t, FormatLine(NewPlanFailedEvent(pf, nil, at)), "status=rolled_back")
}

func TestReconciliationLogAppends(t *testing.T) {
	dir := t.TempDir()
	r := &ReconciliationLog{Dir: filepath.Join(dir, "logs")}
	ev := NewPlanFailedEvent(samplePartialFailure(), nil, at)

	body, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, handleMessage(context.Background(), body, r.Handle))
	require.NoError(t, handleMessage(context.Background(), body, r.Handle))

	data, err := os.ReadFile(filepath.Join(dir, "logs", "reconciliation.log"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "Plan failed"))
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	called := false
	err := handleMessage(context.Background(), []byte("{"), func(context.Context, PlanFailedEvent) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)

	boom := errors.New("boom")
	err = handleMessage(context.Background(), []byte(`{"event":"x"}`), func(_ context.Context, ev PlanFailedEvent) error {
		assert.Equal(t, "x", ev.Event)
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

type writerMock struct{ mock.Mock }

func (m *writerMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(msgs).Error(0)
}

func (m *writerMock) Close() error { return m.Called().Error(0) }

func TestKafkaPublisherKeysByPrincipal(t *testing.T) {
	w := &writerMock{}
	w.On("WriteMessages", mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 || string(msgs[0].Key) != "c1" {
			return false
		}
		var ev ActivityEvent
		return json.Unmarshal(msgs[0].Value, &ev) == nil && ev.Event == "like.create"
	})).Return(nil).Once()
	w.On("WriteMessages", mock.Anything).Return(errors.New("broker down")).Once()

	p := NewKafkaPublisher(w)
	require.NoError(t, p.PublishActivity(context.Background(), ActivityEvent{Event: "like.create", PrincipalID: "c1"}))
	assert.Error(t, p.PublishActivity(context.Background(), ActivityEvent{Event: "like.create", PrincipalID: "c1"}))
	w.AssertExpectations(t)
}

func TestNewKafkaWriterDefaults(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "")
	assert.Equal(t, DefaultActivityTopic, w.Topic)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}
