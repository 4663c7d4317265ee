package sniper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/slot-sniper/internal/history"
	"github.com/jwalitptl/slot-sniper/internal/model"
	"github.com/jwalitptl/slot-sniper/internal/notify"
	apperrors "github.com/jwalitptl/slot-sniper/pkg/errors"
	"github.com/jwalitptl/slot-sniper/pkg/logger"
	"github.com/jwalitptl/slot-sniper/pkg/metrics"
)

type fakeFetcher struct {
	// results and errs are keyed by city ID so tests can give each
	// locator its own outcome.
	results map[int][]model.Appointment
	errs    map[int]error
	calls   []int
	filters []model.SearchFilter
}

func (f *fakeFetcher) FindTerms(_ context.Context, filter model.SearchFilter, _ int) ([]model.Appointment, error) {
	f.calls = append(f.calls, filter.CityID)
	f.filters = append(f.filters, filter)
	if err := f.errs[filter.CityID]; err != nil {
		return nil, err
	}
	return f.results[filter.CityID], nil
}

// memStore is an in-memory Store with togglable failure injection.
type memStore struct {
	known     map[string]map[time.Time]bool
	recorded  int
	checkErr  error
	recordErr error
}

func newMemStore() *memStore {
	return &memStore{known: map[string]map[time.Time]bool{}}
}

func (s *memStore) IsKnown(_ context.Context, doctorName string, at time.Time) (bool, error) {
	if s.checkErr != nil {
		return false, s.checkErr
	}
	return s.known[doctorName][at], nil
}

func (s *memStore) Record(_ context.Context, doctorName string, at time.Time) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	if s.known[doctorName] == nil {
		s.known[doctorName] = map[time.Time]bool{}
	}
	s.known[doctorName][at] = true
	s.recorded++
	return nil
}

var _ history.Store = (*memStore)(nil)

type captureSink struct {
	name     string
	messages []string
	err      error
}

func (s *captureSink) Name() string      { return s.name }
func (s *captureSink) Mode() notify.Mode { return notify.ModeBlocking }
func (s *captureSink) Template() string  { return notify.DefaultTemplate }
func (s *captureSink) Deliver(_ context.Context, message string) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, message)
	return nil
}

func smithSlot() model.Appointment {
	return model.Appointment{
		Date:       time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		ClinicID:   "77",
		ClinicName: "Downtown Clinic",
		DoctorName: "Dr. Smith",
		ServiceID:  "2",
	}
}

func newTestEngine(fetcher Fetcher, store history.Store, locators []model.Locator, cfg Config, sinks ...notify.Sink) *Engine {
	m := metrics.NewUnregistered("test")
	fanout := notify.NewFanout(sinks, time.Second, logger.Nop(), m)
	if cfg.LookupDays == 0 {
		cfg.LookupDays = 10
	}
	return NewEngine(fetcher, store, fanout, locators, cfg, logger.Nop(), m)
}

func TestRunOnce_NewSlotIsRecordedAndNotified(t *testing.T) {
	fetcher := &fakeFetcher{results: map[int][]model.Appointment{1: {smithSlot()}}}
	store := newMemStore()
	sink := &captureSink{name: "s1"}

	engine := newTestEngine(fetcher, store, []model.Locator{
		{Name: "ClinicA", SearchKey: "1*2*-1*-1"},
	}, Config{}, sink)

	summary := engine.RunOnce(context.Background())

	assert.Equal(t, 1, summary.LocatorsProcessed)
	assert.Equal(t, 1, summary.AppointmentsFound)
	assert.Equal(t, 1, summary.NotificationsSent)
	assert.Zero(t, summary.Errors)
	assert.Equal(t, 1, store.recorded)

	require.Len(t, sink.messages, 1)
	assert.Contains(t, sink.messages[0], "Dr. Smith")
	assert.Contains(t, sink.messages[0], "2025-03-01 10:00")

	known, err := store.IsKnown(context.Background(), "Dr. Smith", smithSlot().Date)
	require.NoError(t, err)
	assert.True(t, known)
}

func TestRunOnce_SecondRunIsQuiet(t *testing.T) {
	fetcher := &fakeFetcher{results: map[int][]model.Appointment{1: {smithSlot()}}}
	store := newMemStore()
	sink := &captureSink{name: "s1"}

	engine := newTestEngine(fetcher, store, []model.Locator{
		{Name: "ClinicA", SearchKey: "1*2*-1*-1"},
	}, Config{}, sink)

	engine.RunOnce(context.Background())
	summary := engine.RunOnce(context.Background())

	assert.Zero(t, summary.NotificationsSent)
	assert.Equal(t, 1, store.recorded, "second run must not record again")
	assert.Len(t, sink.messages, 1, "second run must not deliver again")
}

func TestRunOnce_AdapterErrorIsIsolatedPerLocator(t *testing.T) {
	fetcher := &fakeFetcher{
		results: map[int][]model.Appointment{2: {smithSlot()}},
		errs:    map[int]error{1: apperrors.NewAdapter("portal down", errors.New("boom"))},
	}
	store := newMemStore()
	sink := &captureSink{name: "s1"}

	engine := newTestEngine(fetcher, store, []model.Locator{
		{Name: "A", SearchKey: "1*2*-1*-1"},
		{Name: "B", SearchKey: "2*2*-1*-1"},
	}, Config{}, sink)

	summary := engine.RunOnce(context.Background())

	assert.Equal(t, []int{1, 2}, fetcher.calls, "B must still be fetched after A fails")
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.NotificationsSent)
	assert.Len(t, sink.messages, 1)
}

func TestRunOnce_MalformedSearchKeyIsIsolated(t *testing.T) {
	fetcher := &fakeFetcher{results: map[int][]model.Appointment{2: {smithSlot()}}}
	store := newMemStore()

	engine := newTestEngine(fetcher, store, []model.Locator{
		{Name: "broken", SearchKey: "not-a-key"},
		{Name: "B", SearchKey: "2*2*-1*-1"},
	}, Config{}, &captureSink{name: "s1"})

	summary := engine.RunOnce(context.Background())

	assert.Equal(t, []int{2}, fetcher.calls, "broken locator must not reach the adapter")
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.NotificationsSent)
}

func TestRunOnce_GlobalFacilityIDsNarrowEveryLocator(t *testing.T) {
	fetcher := &fakeFetcher{}
	engine := newTestEngine(fetcher, newMemStore(), []model.Locator{
		{Name: "A", SearchKey: "1*2*-1*-1"},
		{Name: "B", SearchKey: "2*2*55*-1"},
	}, Config{FacilityIDs: []int{55, 90}}, &captureSink{name: "s1"})

	engine.RunOnce(context.Background())

	require.Len(t, fetcher.filters, 2)
	assert.Equal(t, []int{55, 90}, fetcher.filters[0].ClinicIDs)
	assert.Equal(t, []int{55, 90}, fetcher.filters[1].ClinicIDs,
		"a clinic already in the search key is not repeated")
}

func TestRunOnce_DisabledLocatorIsSkippedNotFailed(t *testing.T) {
	disabled := false
	fetcher := &fakeFetcher{}
	engine := newTestEngine(fetcher, newMemStore(), []model.Locator{
		{Name: "off", SearchKey: "1*2*-1*-1", Enabled: &disabled},
	}, Config{}, &captureSink{name: "s1"})

	summary := engine.RunOnce(context.Background())

	assert.Zero(t, summary.LocatorsProcessed)
	assert.Equal(t, 1, summary.LocatorsSkipped)
	assert.Zero(t, summary.Errors)
	assert.Empty(t, fetcher.calls)
}

func TestRunOnce_WriteHappensBeforeNotify(t *testing.T) {
	fetcher := &fakeFetcher{results: map[int][]model.Appointment{1: {smithSlot()}}}
	store := newMemStore()
	failing := &captureSink{name: "failing", err: errors.New("channel down")}

	engine := newTestEngine(fetcher, store, []model.Locator{
		{Name: "ClinicA", SearchKey: "1*2*-1*-1"},
	}, Config{}, failing)

	summary := engine.RunOnce(context.Background())

	// The store reflects the slot even though delivery failed.
	known, err := store.IsKnown(context.Background(), "Dr. Smith", smithSlot().Date)
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, 1, summary.Errors)
}

func TestRunOnce_PerSinkIsolation(t *testing.T) {
	fetcher := &fakeFetcher{results: map[int][]model.Appointment{1: {smithSlot()}}}
	failing := &captureSink{name: "failing", err: errors.New("channel down")}
	ok := &captureSink{name: "ok"}

	engine := newTestEngine(fetcher, newMemStore(), []model.Locator{
		{Name: "ClinicA", SearchKey: "1*2*-1*-1"},
	}, Config{}, failing, ok)

	summary := engine.RunOnce(context.Background())

	assert.Len(t, ok.messages, 1, "healthy sink must still deliver")
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.NotificationsSent)
}

func TestRunOnce_StorageCheckFailure_FailClosed(t *testing.T) {
	fetcher := &fakeFetcher{results: map[int][]model.Appointment{
		1: {smithSlot()},
		2: {smithSlot()},
	}}
	store := newMemStore()
	store.checkErr = apperrors.NewStorageUnavailable(errors.New("permission denied"))
	sink := &captureSink{name: "s1"}

	engine := newTestEngine(fetcher, store, []model.Locator{
		{Name: "A", SearchKey: "1*2*-1*-1"},
		{Name: "B", SearchKey: "2*2*-1*-1"},
	}, Config{FailOpen: false, LookupDays: 10}, sink)

	summary := engine.RunOnce(context.Background())

	assert.Empty(t, sink.messages, "fail-closed must send nothing")
	assert.Zero(t, summary.NotificationsSent)
	assert.Equal(t, 2, summary.Errors)
	assert.Equal(t, []int{1, 2}, fetcher.calls, "other locators still polled")
}

func TestRunOnce_StorageCheckFailure_FailOpen(t *testing.T) {
	fetcher := &fakeFetcher{results: map[int][]model.Appointment{1: {smithSlot()}}}
	store := newMemStore()
	store.checkErr = apperrors.NewStorageUnavailable(errors.New("permission denied"))
	sink := &captureSink{name: "s1"}

	engine := newTestEngine(fetcher, store, []model.Locator{
		{Name: "A", SearchKey: "1*2*-1*-1"},
	}, Config{FailOpen: true, LookupDays: 10}, sink)

	summary := engine.RunOnce(context.Background())

	assert.Len(t, sink.messages, 1, "fail-open treats the slot as new")
	assert.Equal(t, 1, summary.NotificationsSent)
}

func TestRunOnce_RecordFailureStillNotifies(t *testing.T) {
	fetcher := &fakeFetcher{results: map[int][]model.Appointment{1: {smithSlot()}}}
	store := newMemStore()
	store.recordErr = apperrors.NewStorageUnavailable(errors.New("disk full"))
	sink := &captureSink{name: "s1"}

	engine := newTestEngine(fetcher, store, []model.Locator{
		{Name: "A", SearchKey: "1*2*-1*-1"},
	}, Config{}, sink)

	summary := engine.RunOnce(context.Background())

	assert.Len(t, sink.messages, 1, "notification still attempted")
	assert.Equal(t, 1, summary.Errors)
}
