package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/slot-sniper/internal/model"
	apperrors "github.com/jwalitptl/slot-sniper/pkg/errors"
	"github.com/jwalitptl/slot-sniper/pkg/logger"
	"github.com/jwalitptl/slot-sniper/pkg/metrics"
)

const defaultSuspendTimeout = 30 * time.Second

// Fanout dispatches one appointment to every configured sink in order.
// A failing sink is logged and counted, never propagated: one broken
// channel must not block the others or roll back the identity store
// write that already happened.
type Fanout struct {
	sinks          []Sink
	suspendTimeout time.Duration
	logger         *logger.Logger
	metrics        *metrics.Metrics
}

func NewFanout(sinks []Sink, suspendTimeout time.Duration, log *logger.Logger, m *metrics.Metrics) *Fanout {
	if suspendTimeout <= 0 {
		suspendTimeout = defaultSuspendTimeout
	}
	return &Fanout{
		sinks:          sinks,
		suspendTimeout: suspendTimeout,
		logger:         log,
		metrics:        m,
	}
}

// Sinks returns the configured sinks in delivery order.
func (f *Fanout) Sinks() []Sink { return f.sinks }

// Notify renders and delivers the appointment through every sink.
// It returns the number of sinks that failed.
func (f *Fanout) Notify(ctx context.Context, loc model.Locator, appt model.Appointment) int {
	failed := 0
	for _, sink := range f.sinks {
		if err := f.notifyOne(ctx, sink, loc, appt); err != nil {
			failed++
			f.metrics.SinkFailures.WithLabelValues(sink.Name()).Inc()
			f.logger.Warn(err, "notification failed",
				"sink", sink.Name(), "locator", loc.Name)
			continue
		}
		f.metrics.SinkDeliveries.WithLabelValues(sink.Name()).Inc()
	}
	return failed
}

func (f *Fanout) notifyOne(ctx context.Context, sink Sink, loc model.Locator, appt model.Appointment) error {
	// Appointment fields override locator fields on collision: the
	// appointment data is the more specific of the two.
	message, err := Render(sink.Template(), loc.TemplateContext(), appt.TemplateContext())
	if err != nil {
		return err
	}

	if sink.Mode() == ModeSuspending {
		return f.deliverSuspending(ctx, sink, message)
	}
	if err := sink.Deliver(ctx, message); err != nil {
		return apperrors.NewDelivery(sink.Name(), err)
	}
	return nil
}

// deliverSuspending runs the sink off the cycle goroutine and waits at
// most suspendTimeout for it. On timeout the goroutine is left to drain
// against its cancelled context and the fan-out moves on.
func (f *Fanout) deliverSuspending(ctx context.Context, sink Sink, message string) error {
	deliverCtx, cancel := context.WithTimeout(ctx, f.suspendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sink.Deliver(deliverCtx, message)
	}()

	select {
	case err := <-done:
		if err != nil {
			return apperrors.NewDelivery(sink.Name(), err)
		}
		return nil
	case <-deliverCtx.Done():
		return apperrors.NewDelivery(sink.Name(),
			fmt.Errorf("timed out after %s", f.suspendTimeout))
	}
}
