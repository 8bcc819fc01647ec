package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cocktail-hub/internal/logger"
)

// Handler processes one failed plan.  A returned error rejects the message
// without requeueing it.
type Handler func(ctx context.Context, ev PlanFailedEvent) error

// StartReconciliationConsumer consumes PlanFailedQueue until ctx is done,
// redialing the broker with exponential backoff.  It returns ctx.Err().
func StartReconciliationConsumer(ctx context.Context, url string, handle Handler, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("reconciliation consumer: dial failed", "error", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, handle, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("reconciliation consumer: loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, handle Handler, log *logger.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("reconciliation consumer: set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(PlanFailedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(PlanFailedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(ctx, d.Body, handle); err != nil {
				log.Error("reconciliation consumer: handle message failed", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(ctx context.Context, body []byte, handle Handler) error {
	var ev PlanFailedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return handle(ctx, ev)
}

// ReconciliationLog appends one line per failed plan to
// <dir>/reconciliation.log.
type ReconciliationLog struct {
	Dir string

	mu sync.Mutex
}

// Handle is a Handler.
func (r *ReconciliationLog) Handle(_ context.Context, ev PlanFailedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir := r.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "reconciliation.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as a single log line.
func FormatLine(ev PlanFailedEvent) string {
	committed := make([]string, 0, len(ev.Committed))
	for _, c := range ev.Committed {
		s := fmt.Sprintf("%d:%s:%s/%s", c.Step, c.Op, c.Target, c.ID)
		if c.Field != "" {
			s += "." + c.Field
		}
		committed = append(committed, s)
	}
	status := "needs_reconciliation"
	switch {
	case ev.RolledBack:
		status = "rolled_back"
	case ev.Compensated:
		status = "compensated"
	case len(ev.Committed) == 0:
		status = "no_writes"
	}
	return fmt.Sprintf("[%s] Plan failed | event=%s | strategy=%s | principal=%s | failed_step=%d (%s %s) | status=%s | committed=[%s] | cause=%q\n",
		ev.OccurredAt, ev.Event, ev.Strategy, ev.PrincipalID, ev.FailedStep, ev.FailedOp, ev.FailedTarget,
		status, strings.Join(committed, ","), ev.Cause)
}
