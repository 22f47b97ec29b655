package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPassFinished(t *testing.T) {
	m := New()

	m.PassStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.running))

	m.PassFinished("success", 3*time.Second, 1, 4)
	m.PassFinished("error", time.Second, 0, 0)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.running))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passes.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passes.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reposFailed))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.postsUpdated))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PassStarted()
		m.PassFinished("success", time.Second, 0, 0)
		m.Reaped(2)
		m.Request("GET", 200)
	})
}
