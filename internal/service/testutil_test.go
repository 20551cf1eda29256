package service

import (
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/igrejaonline/portal/internal/metrics"
)

func testutilCount(m *metrics.Metrics, event, result string) float64 {
	return testutil.ToFloat64(m.AuthEvents.WithLabelValues(event, result))
}
