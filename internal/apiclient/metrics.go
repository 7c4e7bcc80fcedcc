package apiclient

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests *prometheus.CounterVec
	refresh  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authorpanel_api_requests_total",
				Help: "API requests issued by the panel client",
			},
			[]string{"method", "status"},
		),
		refresh: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authorpanel_token_refresh_total",
				Help: "Access token refresh exchanges by result",
			},
			[]string{"result"},
		),
	}
}

func (m *metrics) observeRequest(method string, status int) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(method, label).Inc()
}

func (m *metrics) observeRefresh(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.refresh.WithLabelValues(result).Inc()
}
