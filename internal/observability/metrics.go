package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "overlay",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "overlay",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	dispatchMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "overlay",
			Subsystem: "dispatch",
			Name:      "messages_total",
			Help:      "Display messages delivered to clients, by outcome.",
		},
		[]string{"outcome"},
	)
	displayLifecycle = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "overlay",
			Subsystem: "display",
			Name:      "lifecycle_total",
			Help:      "Proxy display object lifecycle operations.",
		},
		[]string{"op"},
	)
	hitTestDispatch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "overlay",
			Subsystem: "hittest",
			Name:      "dispatch_total",
			Help:      "Inbound interactions routed through the hit-test table.",
		},
		[]string{"result"},
	)
	regionChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "overlay",
			Subsystem: "region",
			Name:      "changes_total",
			Help:      "Region selection state changes by kind.",
		},
		[]string{"kind"},
	)
	activeClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "overlay",
			Subsystem: "transport",
			Name:      "clients_active",
			Help:      "Currently connected display clients.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			dispatchMessages,
			displayLifecycle,
			hitTestDispatch,
			regionChanges,
			activeClients,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordDispatch counts delivered and skipped (offline or failed) sends.
func RecordDispatch(delivered, skipped int) {
	RegisterMetrics()
	if delivered > 0 {
		dispatchMessages.WithLabelValues("delivered").Add(float64(delivered))
	}
	if skipped > 0 {
		dispatchMessages.WithLabelValues("skipped").Add(float64(skipped))
	}
}

func RecordDisplay(op string) {
	RegisterMetrics()
	displayLifecycle.WithLabelValues(op).Inc()
}

func RecordHitTest(hit bool) {
	RegisterMetrics()
	result := "miss"
	if hit {
		result = "hit"
	}
	hitTestDispatch.WithLabelValues(result).Inc()
}

func RecordRegionChange(kind string) {
	RegisterMetrics()
	regionChanges.WithLabelValues(kind).Inc()
}

func ClientConnected() {
	RegisterMetrics()
	activeClients.Inc()
}

func ClientDisconnected() {
	RegisterMetrics()
	activeClients.Dec()
}
