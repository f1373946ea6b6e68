package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oportunia_token_refresh_total",
		Help: "OAuth token refresh attempts by provider slot and result",
	}, []string{"slot", "result"})

	UsageDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oportunia_usage_decisions_total",
		Help: "Usage gate decisions by feature and outcome",
	}, []string{"feature", "allowed"})
)
