package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Poll cycle metrics
	CyclesTotal       prometheus.Counter
	CycleDuration     prometheus.Histogram
	LocatorsProcessed prometheus.Counter
	LocatorsSkipped   prometheus.Counter
	LocatorErrors     *prometheus.CounterVec
	AppointmentsFound prometheus.Counter
	NotificationsSent prometheus.Counter
	DuplicatesSkipped prometheus.Counter

	// Identity store metrics
	StoreOperations *prometheus.CounterVec

	// Sink metrics
	SinkDeliveries *prometheus.CounterVec
	SinkFailures   *prometheus.CounterVec
}

// New creates and registers all application metrics
func New(namespace string) *Metrics {
	return &Metrics{
		CyclesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of completed poll cycles",
		}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Time spent running a full poll cycle",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		LocatorsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locators_processed_total",
			Help:      "Total number of enabled locators polled",
		}),
		LocatorsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locators_skipped_total",
			Help:      "Total number of disabled locators skipped",
		}),
		LocatorErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locator_errors_total",
			Help:      "Total number of per-locator failures",
		}, []string{"locator", "kind"}),
		AppointmentsFound: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_found_total",
			Help:      "Total number of appointment slots returned by the portal",
		}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Total number of new slots pushed to sinks",
		}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_skipped_total",
			Help:      "Total number of slots already present in the identity store",
		}),
		StoreOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of identity store operations",
		}, []string{"operation", "status"}),
		SinkDeliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_deliveries_total",
			Help:      "Total number of successful sink deliveries",
		}, []string{"sink"}),
		SinkFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_failures_total",
			Help:      "Total number of failed sink deliveries",
		}, []string{"sink"}),
	}
}

// NewUnregistered returns metrics backed by a private registry, for tests
// where promauto's default registration would collide across cases.
func NewUnregistered(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cycles_total", Help: "Total number of completed poll cycles",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "cycle_duration_seconds", Help: "Time spent running a full poll cycle",
		}),
		LocatorsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "locators_processed_total", Help: "Total number of enabled locators polled",
		}),
		LocatorsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "locators_skipped_total", Help: "Total number of disabled locators skipped",
		}),
		LocatorErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "locator_errors_total", Help: "Total number of per-locator failures",
		}, []string{"locator", "kind"}),
		AppointmentsFound: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "appointments_found_total", Help: "Total number of appointment slots returned by the portal",
		}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "notifications_sent_total", Help: "Total number of new slots pushed to sinks",
		}),
		DuplicatesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "duplicates_skipped_total", Help: "Total number of slots already present in the identity store",
		}),
		StoreOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "store_operations_total", Help: "Total number of identity store operations",
		}, []string{"operation", "status"}),
		SinkDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sink_deliveries_total", Help: "Total number of successful sink deliveries",
		}, []string{"sink"}),
		SinkFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sink_failures_total", Help: "Total number of failed sink deliveries",
		}, []string{"sink"}),
	}
}
