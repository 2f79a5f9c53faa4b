package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Link attempt results.
const (
	ResultLinked          = "linked"
	ResultMissingParam    = "missing_parameter"
	ResultInvalidState    = "invalid_state"
	ResultExpiredState    = "expired_state"
	ResultExchangeFailed  = "code_exchange_failed"
	ResultNotOwned        = "installation_not_owned"
	ResultUpstreamFailure = "upstream_unavailable"
	ResultStoreFailure    = "store_failure"
)

var (
	LinkAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ghlink_link_attempts_total",
		Help: "Installation link callbacks by result.",
	}, []string{"result"})

	StateTokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ghlink_state_tokens_issued_total",
		Help: "Total number of state tokens issued.",
	})

	UpstreamRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ghlink_upstream_request_duration_seconds",
		Help:    "Duration of calls to the GitHub API by operation and outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
)

// Register registers the custom metrics. It should be called once at startup.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register custom metrics.")
		return
	}

	for name, c := range map[string]prometheus.Collector{
		"LinkAttemptsTotal":       LinkAttemptsTotal,
		"StateTokensIssuedTotal":  StateTokensIssuedTotal,
		"UpstreamRequestDuration": UpstreamRequestDuration,
	} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to register metric")
		}
	}

	log.Info().Msg("Custom Prometheus metrics registered.")
}

// ObserveUpstream records the duration of one GitHub call started at start.
func ObserveUpstream(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	UpstreamRequestDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}
