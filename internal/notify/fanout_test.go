package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/slot-sniper/internal/model"
	"github.com/jwalitptl/slot-sniper/pkg/logger"
	"github.com/jwalitptl/slot-sniper/pkg/metrics"
)

type fakeSink struct {
	baseSink
	delivered []string
	err       error
	block     time.Duration
}

func (s *fakeSink) Deliver(ctx context.Context, message string) error {
	if s.block > 0 {
		select {
		case <-time.After(s.block):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.err != nil {
		return s.err
	}
	s.delivered = append(s.delivered, message)
	return nil
}

func newFakeSink(name string, mode Mode) *fakeSink {
	return &fakeSink{baseSink: baseSink{name: name, mode: mode, template: DefaultTemplate}}
}

func testLocator() model.Locator {
	return model.Locator{
		Name:      "ClinicA",
		SearchKey: "1*2*-1*-1",
		Extra:     map[string]string{"label": "cardiology"},
	}
}

func testAppointment() model.Appointment {
	return model.Appointment{
		Date:       time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		ClinicID:   "77",
		ClinicName: "Downtown Clinic",
		DoctorName: "Dr. Smith",
		ServiceID:  "2",
	}
}

func newFanout(sinks ...Sink) *Fanout {
	return NewFanout(sinks, time.Second, logger.Nop(), metrics.NewUnregistered("test"))
}

func TestFanout_DeliversToEverySink(t *testing.T) {
	s1 := newFakeSink("s1", ModeBlocking)
	s2 := newFakeSink("s2", ModeBlocking)

	failed := newFanout(s1, s2).Notify(context.Background(), testLocator(), testAppointment())

	assert.Zero(t, failed)
	require.Len(t, s1.delivered, 1)
	require.Len(t, s2.delivered, 1)
	assert.Contains(t, s1.delivered[0], "Dr. Smith")
	assert.Contains(t, s1.delivered[0], "2025-03-01 10:00")
}

func TestFanout_FailingSinkDoesNotBlockOthers(t *testing.T) {
	failing := newFakeSink("failing", ModeBlocking)
	failing.err = errors.New("channel down")
	ok := newFakeSink("ok", ModeBlocking)

	failed := newFanout(failing, ok).Notify(context.Background(), testLocator(), testAppointment())

	assert.Equal(t, 1, failed)
	assert.Len(t, ok.delivered, 1)
}

func TestFanout_TemplateErrorDoesNotBlockOthers(t *testing.T) {
	broken := newFakeSink("broken", ModeBlocking)
	broken.template = "{missing_field}"
	ok := newFakeSink("ok", ModeBlocking)

	failed := newFanout(broken, ok).Notify(context.Background(), testLocator(), testAppointment())

	assert.Equal(t, 1, failed)
	assert.Empty(t, broken.delivered)
	assert.Len(t, ok.delivered, 1)
}

func TestFanout_SuspendingSinkIsAwaited(t *testing.T) {
	async := newFakeSink("async", ModeSuspending)
	async.block = 10 * time.Millisecond

	failed := newFanout(async).Notify(context.Background(), testLocator(), testAppointment())

	assert.Zero(t, failed)
	assert.Len(t, async.delivered, 1)
}

func TestFanout_HungSuspendingSinkTimesOut(t *testing.T) {
	hung := newFakeSink("hung", ModeSuspending)
	hung.block = time.Minute
	ok := newFakeSink("ok", ModeBlocking)

	fanout := NewFanout([]Sink{hung, ok}, 20*time.Millisecond, logger.Nop(), metrics.NewUnregistered("test"))

	start := time.Now()
	failed := fanout.Notify(context.Background(), testLocator(), testAppointment())

	assert.Equal(t, 1, failed)
	assert.Len(t, ok.delivered, 1)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFanout_ExtraLocatorFieldsAvailable(t *testing.T) {
	sink := newFakeSink("s", ModeBlocking)
	sink.template = "{label}: {doctor_name}"

	failed := newFanout(sink).Notify(context.Background(), testLocator(), testAppointment())

	assert.Zero(t, failed)
	require.Len(t, sink.delivered, 1)
	assert.Equal(t, "cardiology: Dr. Smith", sink.delivered[0])
}
