package groupwire

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingObserver captures lifecycle events for assertions.
type recordingObserver struct {
	starts    []string
	ends      []string
	refreshes []error
	outcomes  []string
}

func (r *recordingObserver) OnRequestStart(method, path string) {
	r.starts = append(r.starts, method+" "+path)
}

func (r *recordingObserver) OnRequestEnd(method, path string, duration time.Duration, err error) {
	r.ends = append(r.ends, method+" "+path)
}

func (r *recordingObserver) OnTokenRefresh(err error) {
	r.refreshes = append(r.refreshes, err)
}

func (r *recordingObserver) OnOutcome(dataType DataType, kind Kind, code string) {
	r.outcomes = append(r.outcomes, string(dataType)+"/"+kind.String())
}

// panicObserver panics on every hook.
type panicObserver struct{}

func (panicObserver) OnRequestStart(method, path string)                   { panic("boom") }
func (panicObserver) OnRequestEnd(m, p string, d time.Duration, err error) { panic("boom") }
func (panicObserver) OnTokenRefresh(err error)                             { panic("boom") }
func (panicObserver) OnOutcome(dataType DataType, kind Kind, code string)  { panic("boom") }

func TestCompositeObserver_FansOut(t *testing.T) {
	a := &recordingObserver{}
	b := &recordingObserver{}
	obs := NewCompositeObserver(a, b)

	obs.OnRequestStart("GET", "/x")
	obs.OnRequestEnd("GET", "/x", time.Millisecond, nil)
	obs.OnTokenRefresh(nil)
	obs.OnOutcome(DataTypeJSON, KindSuccess, "")

	for _, r := range []*recordingObserver{a, b} {
		assert.Equal(t, []string{"GET /x"}, r.starts)
		assert.Equal(t, []string{"GET /x"}, r.ends)
		assert.Len(t, r.refreshes, 1)
		assert.Equal(t, []string{"json/success"}, r.outcomes)
	}
}

func TestCompositeObserver_IsolatesPanics(t *testing.T) {
	after := &recordingObserver{}
	obs := NewCompositeObserver(panicObserver{}, after)

	assert.NotPanics(t, func() {
		obs.OnRequestStart("GET", "/x")
		obs.OnOutcome(DataTypeXML, KindError, "E1")
	})
	assert.Len(t, after.starts, 1, "observers after the panicking one still run")
	assert.Len(t, after.outcomes, 1)
}

func TestLogObserver_WritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	obs := NewLogObserver(logger)
	obs.OnRequestEnd("POST", "/op.php", 5*time.Millisecond, errors.New("refused"))
	obs.OnTokenRefresh(nil)

	out := buf.String()
	assert.Contains(t, out, `"method":"POST"`)
	assert.Contains(t, out, `"path":"/op.php"`)
	assert.Contains(t, out, "request failed")
	assert.Contains(t, out, "token refreshed")
}

func TestLogObserver_NilLoggerGetsDefault(t *testing.T) {
	obs := NewLogObserver(nil)
	require.NotNil(t, obs)
	assert.NotPanics(t, func() {
		obs.OnRequestStart("GET", "/x")
	})
}

func TestMetricsObserver_Counts(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs := NewMetricsObserverWithRegistry(registry)

	obs.OnRequestStart("GET", "/op.php")
	obs.OnRequestEnd("GET", "/op.php", 3*time.Millisecond, nil)
	obs.OnRequestStart("POST", "/op.php")
	obs.OnRequestEnd("POST", "/op.php", 3*time.Millisecond, errors.New("x"))
	obs.OnTokenRefresh(nil)
	obs.OnTokenRefresh(errors.New("x"))
	obs.OnOutcome(DataTypeJSON, KindError, "E1")

	assert.Equal(t, float64(1),
		testutil.ToFloat64(obs.requestsTotal.WithLabelValues("GET", "/op.php", "ok")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(obs.requestsTotal.WithLabelValues("POST", "/op.php", "error")))
	assert.Equal(t, float64(0),
		testutil.ToFloat64(obs.requestsInFlight.WithLabelValues("GET", "/op.php")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(obs.tokenRefreshes.WithLabelValues("ok")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(obs.tokenRefreshes.WithLabelValues("error")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(obs.outcomesTotal.WithLabelValues("json", "error")))
}

func TestMetricsObserver_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetricsObserverWithRegistry(prometheus.NewRegistry())
		NewMetricsObserverWithRegistry(prometheus.NewRegistry())
	})
}
