package groupwire

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// Observer provides hooks for monitoring client operations. The
// library itself performs no logging or UI action; hosts that want
// visibility attach an observer. Observer methods should be fast and
// non-blocking.
type Observer interface {
	// OnRequestStart is called when an HTTP round trip starts.
	OnRequestStart(method, path string)

	// OnRequestEnd is called when an HTTP round trip completes.
	// err is nil on 2xx responses.
	OnRequestEnd(method, path string, duration time.Duration, err error)

	// OnTokenRefresh is called after each token acquisition attempt,
	// with the acquisition error or nil.
	OnTokenRefresh(err error)

	// OnOutcome is called once per interpreted payload with the
	// normalized result.
	OnOutcome(dataType DataType, kind Kind, code string)
}

// NoopObserver is the default observer; it does nothing.
type NoopObserver struct{}

// OnRequestStart does nothing
func (n *NoopObserver) OnRequestStart(method, path string) {}

// OnRequestEnd does nothing
func (n *NoopObserver) OnRequestEnd(method, path string, duration time.Duration, err error) {}

// OnTokenRefresh does nothing
func (n *NoopObserver) OnTokenRefresh(err error) {}

// OnOutcome does nothing
func (n *NoopObserver) OnOutcome(dataType DataType, kind Kind, code string) {}

// CompositeObserver fans out to multiple observers in order. A panic
// in one observer is caught so it cannot affect the others or the
// request that triggered it.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver combines observers into one.
func NewCompositeObserver(observers ...Observer) Observer {
	return &CompositeObserver{observers: observers}
}

func (c *CompositeObserver) each(fn func(Observer)) {
	for _, obs := range c.observers {
		func() {
			defer func() {
				_ = recover()
			}()
			fn(obs)
		}()
	}
}

// OnRequestStart notifies all observers
func (c *CompositeObserver) OnRequestStart(method, path string) {
	c.each(func(o Observer) { o.OnRequestStart(method, path) })
}

// OnRequestEnd notifies all observers
func (c *CompositeObserver) OnRequestEnd(method, path string, duration time.Duration, err error) {
	c.each(func(o Observer) { o.OnRequestEnd(method, path, duration, err) })
}

// OnTokenRefresh notifies all observers
func (c *CompositeObserver) OnTokenRefresh(err error) {
	c.each(func(o Observer) { o.OnTokenRefresh(err) })
}

// OnOutcome notifies all observers
func (c *CompositeObserver) OnOutcome(dataType DataType, kind Kind, code string) {
	c.each(func(o Observer) { o.OnOutcome(dataType, kind, code) })
}

// LogObserver logs request lifecycle events through logrus with
// structured fields.
type LogObserver struct {
	log *logrus.Logger
}

// NewLogObserver creates a logging observer. A nil logger gets a
// JSON-formatted logrus logger at info level.
func NewLogObserver(logger *logrus.Logger) *LogObserver {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}
	return &LogObserver{log: logger}
}

// OnRequestStart logs request initiation at debug level
func (l *LogObserver) OnRequestStart(method, path string) {
	l.log.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
	}).Debug("request start")
}

// OnRequestEnd logs request completion, warning on failure
func (l *LogObserver) OnRequestEnd(method, path string, duration time.Duration, err error) {
	entry := l.log.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Warn("request failed")
		return
	}
	entry.Debug("request done")
}

// OnTokenRefresh logs token acquisition results
func (l *LogObserver) OnTokenRefresh(err error) {
	if err != nil {
		l.log.WithError(err).Warn("token refresh failed")
		return
	}
	l.log.Debug("token refreshed")
}

// OnOutcome logs the normalized outcome
func (l *LogObserver) OnOutcome(dataType DataType, kind Kind, code string) {
	l.log.WithFields(logrus.Fields{
		"data_type": string(dataType),
		"kind":      kind.String(),
		"code":      code,
	}).Debug("outcome")
}

// MetricsObserver exports request lifecycle metrics to Prometheus.
// It is safe for concurrent use.
type MetricsObserver struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	tokenRefreshes   *prometheus.CounterVec
	outcomesTotal    *prometheus.CounterVec
	requestsInFlight *prometheus.GaugeVec
}

// NewMetricsObserver creates a metrics observer on the default
// registerer.
func NewMetricsObserver() *MetricsObserver {
	return NewMetricsObserverWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsObserverWithRegistry creates a metrics observer using the
// supplied registerer, so tests and multi-client hosts can isolate
// registries.
func NewMetricsObserverWithRegistry(registry prometheus.Registerer) *MetricsObserver {
	return &MetricsObserver{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "groupwire_requests_total",
				Help: "Total number of gateway requests made",
			},
			[]string{"method", "path", "result"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "groupwire_request_duration_seconds",
				Help:    "Duration of gateway requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		tokenRefreshes: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "groupwire_token_refresh_total",
				Help: "Total number of anti-forgery token acquisitions",
			},
			[]string{"result"},
		),
		outcomesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "groupwire_outcomes_total",
				Help: "Total number of interpreted response outcomes",
			},
			[]string{"data_type", "kind"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "groupwire_requests_in_flight",
				Help: "Number of gateway requests currently in flight",
			},
			[]string{"method", "path"},
		),
	}
}

// OnRequestStart tracks in-flight requests
func (m *MetricsObserver) OnRequestStart(method, path string) {
	m.requestsInFlight.WithLabelValues(method, path).Inc()
}

// OnRequestEnd records counts and latency
func (m *MetricsObserver) OnRequestEnd(method, path string, duration time.Duration, err error) {
	m.requestsInFlight.WithLabelValues(method, path).Dec()
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.requestsTotal.WithLabelValues(method, path, result).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// OnTokenRefresh counts token acquisitions by result
func (m *MetricsObserver) OnTokenRefresh(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.tokenRefreshes.WithLabelValues(result).Inc()
}

// OnOutcome counts interpreted outcomes
func (m *MetricsObserver) OnOutcome(dataType DataType, kind Kind, code string) {
	m.outcomesTotal.WithLabelValues(string(dataType), kind.String()).Inc()
}
