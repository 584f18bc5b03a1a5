package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokemate_catalog_requests_total",
			Help: "Total number of catalog requests by resource and outcome",
		},
		[]string{"resource", "outcome"},
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokemate_catalog_request_duration_seconds",
			Help:    "Duration of catalog requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource"},
	)

	GenerationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokemate_generation_requests_total",
			Help: "Total number of generative text requests by outcome",
		},
		[]string{"outcome"},
	)

	TeamParses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokemate_team_parses_total",
			Help: "Generated team payload parses by mode (strict, fragment, failed)",
		},
		[]string{"mode"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokemate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokemate_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokemate_tool_calls_total",
			Help: "Total number of agent tool calls by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)
)

// Outcome maps an error to the outcome label value
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
