// Package sniper runs the poll cycle: for every enabled locator it
// fetches available slots, drops the ones already notified, records the
// new ones and fans them out to the notification sinks. Failures are
// isolated per locator and per sink; a cycle never aborts early.
package sniper

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/slot-sniper/internal/history"
	"github.com/jwalitptl/slot-sniper/internal/model"
	"github.com/jwalitptl/slot-sniper/internal/notify"
	"github.com/jwalitptl/slot-sniper/pkg/logger"
	"github.com/jwalitptl/slot-sniper/pkg/metrics"
)

// Fetcher is the portal adapter boundary. Implementations return slots
// already filtered to the lookup horizon, with authentication resolved.
type Fetcher interface {
	FindTerms(ctx context.Context, filter model.SearchFilter, horizonDays int) ([]model.Appointment, error)
}

// CycleSummary reports what one poll cycle did.
type CycleSummary struct {
	CycleID           uuid.UUID
	LocatorsProcessed int
	LocatorsSkipped   int
	AppointmentsFound int
	NotificationsSent int
	Errors            int
	Duration          time.Duration
}

// Config tunes the engine.
type Config struct {
	// LookupDays is the horizon: how many days ahead to search.
	LookupDays int `mapstructure:"lookup_days" validate:"required,min=1"`

	// FailOpen controls the dedup check when the identity store cannot
	// be opened: fail-open treats the slot as not known and proceeds
	// (duplicate-prone), the fail-closed default abandons the locator's
	// remaining slots (miss-prone).
	FailOpen bool `mapstructure:"fail_open"`

	// FacilityIDs restricts every locator to these clinic groups, on
	// top of whatever the locator's own search key names.
	FacilityIDs []int `mapstructure:"facility_ids"`
}

type Engine struct {
	fetcher  Fetcher
	store    history.Store
	fanout   *notify.Fanout
	locators []model.Locator
	cfg      Config
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewEngine(
	fetcher Fetcher,
	store history.Store,
	fanout *notify.Fanout,
	locators []model.Locator,
	cfg Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		fetcher:  fetcher,
		store:    store,
		fanout:   fanout,
		locators: locators,
		cfg:      cfg,
		logger:   log,
		metrics:  m,
	}
}

// RunOnce performs one full pass over all locators in configured order.
// The engine keeps no state across runs, so overlapping invocations are
// safe even though the scheduler never overlaps them.
func (e *Engine) RunOnce(ctx context.Context) CycleSummary {
	timer := prometheus.NewTimer(e.metrics.CycleDuration)
	defer timer.ObserveDuration()

	summary := CycleSummary{CycleID: uuid.New()}
	started := time.Now()

	for _, loc := range e.locators {
		if !loc.IsEnabled() {
			e.logger.Info("skipping disabled locator", "locator", loc.Name)
			summary.LocatorsSkipped++
			e.metrics.LocatorsSkipped.Inc()
			continue
		}

		summary.LocatorsProcessed++
		e.metrics.LocatorsProcessed.Inc()
		e.pollLocator(ctx, loc, &summary)
	}

	summary.Duration = time.Since(started)
	e.metrics.CyclesTotal.Inc()
	e.logger.Info("poll cycle finished",
		"cycle_id", summary.CycleID.String(),
		"locators", summary.LocatorsProcessed,
		"found", summary.AppointmentsFound,
		"notified", summary.NotificationsSent,
		"errors", summary.Errors,
	)
	return summary
}

func (e *Engine) pollLocator(ctx context.Context, loc model.Locator, summary *CycleSummary) {
	filter, err := model.ParseSearchKey(loc.SearchKey)
	if err != nil {
		summary.Errors++
		e.metrics.LocatorErrors.WithLabelValues(loc.Name, "config").Inc()
		e.logger.Error(err, "locator search key is invalid", "locator", loc.Name)
		return
	}
	filter.ClinicIDs = mergeIDs(filter.ClinicIDs, e.cfg.FacilityIDs)

	appointments, err := e.fetcher.FindTerms(ctx, filter, e.cfg.LookupDays)
	if err != nil {
		summary.Errors++
		e.metrics.LocatorErrors.WithLabelValues(loc.Name, "adapter").Inc()
		e.logger.Error(err, "looking for appointments failed", "locator", loc.Name)
		return
	}
	if len(appointments) == 0 {
		e.logger.Info("no appointments found", "locator", loc.Name)
		return
	}

	for _, appt := range appointments {
		summary.AppointmentsFound++
		e.metrics.AppointmentsFound.Inc()
		e.logger.Info("appointment found",
			"locator", loc.Name,
			"doctor", appt.DoctorName,
			"clinic", appt.ClinicName,
			"date", appt.Date.Format(time.RFC3339),
		)

		known, err := e.store.IsKnown(ctx, appt.DoctorName, appt.Date)
		if err != nil {
			summary.Errors++
			e.metrics.StoreOperations.WithLabelValues("is_known", "error").Inc()
			if !e.cfg.FailOpen {
				// Fail-closed: without a readable store the dedup answer
				// is unknowable, so the locator's remaining slots are
				// abandoned rather than risking duplicate alerts.
				e.logger.Error(err, "identity store check failed, abandoning locator", "locator", loc.Name)
				return
			}
			e.logger.Warn(err, "identity store check failed, fail-open treats slot as new", "locator", loc.Name)
			known = false
		} else {
			e.metrics.StoreOperations.WithLabelValues("is_known", "success").Inc()
		}

		if known {
			e.metrics.DuplicatesSkipped.Inc()
			e.logger.Info("already notified", "locator", loc.Name, "doctor", appt.DoctorName)
			continue
		}

		// Record before notifying. A crash between the two misses one
		// alert; the reverse order would repeat alerts forever, and a
		// repeated alert is judged worse than a rare silent miss.
		if err := e.store.Record(ctx, appt.DoctorName, appt.Date); err != nil {
			summary.Errors++
			e.metrics.StoreOperations.WithLabelValues("record", "error").Inc()
			e.logger.Warn(err, "recording slot failed, dedup state may be inconsistent",
				"locator", loc.Name, "doctor", appt.DoctorName)
		} else {
			e.metrics.StoreOperations.WithLabelValues("record", "success").Inc()
		}

		failed := e.fanout.Notify(ctx, loc, appt)
		summary.Errors += failed
		summary.NotificationsSent++
		e.metrics.NotificationsSent.Inc()
		e.logger.Info("notification sent",
			"locator", loc.Name, "doctor", appt.DoctorName, "failed_sinks", failed)
	}
}

func mergeIDs(base, extra []int) []int {
	for _, id := range extra {
		seen := false
		for _, have := range base {
			if have == id {
				seen = true
				break
			}
		}
		if !seen {
			base = append(base, id)
		}
	}
	return base
}
