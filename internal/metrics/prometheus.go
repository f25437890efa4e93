package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	ProvisionsResolvedTotal *prometheus.CounterVec
	ProvisionsFailedTotal   prometheus.Counter
	StagedConvertedTotal    prometheus.Counter
	AvatarEnqueuedTotal     prometheus.Counter
)

// InitCustomMetrics initializes and registers the reconciliation metrics.
// It should be called once at application startup; until then the Inc helpers
// are no-ops so library consumers and tests need no registry.
func InitCustomMetrics(reg prometheus.Registerer) {
	ProvisionsResolvedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "idlink_provisions_resolved_total",
		Help: "Total number of identity assertions resolved to a user, by outcome.",
	}, []string{"outcome"})
	ProvisionsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "idlink_provisions_failed_total",
		Help: "Total number of identity assertions that failed provisioning.",
	})
	StagedConvertedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "idlink_staged_converted_total",
		Help: "Total number of staged accounts converted to active.",
	})
	AvatarEnqueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "idlink_avatar_enqueued_total",
		Help: "Total number of avatar fetch jobs enqueued.",
	})

	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register custom metrics.")
		return
	}
	for _, c := range []prometheus.Collector{
		ProvisionsResolvedTotal,
		ProvisionsFailedTotal,
		StagedConvertedTotal,
		AvatarEnqueuedTotal,
	} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register metric")
		}
	}
	log.Info().Msg("Custom Prometheus metrics registered.")
}

func IncProvisionResolved(outcome string) {
	if ProvisionsResolvedTotal != nil {
		ProvisionsResolvedTotal.WithLabelValues(outcome).Inc()
	}
}

func IncProvisionFailed() {
	if ProvisionsFailedTotal != nil {
		ProvisionsFailedTotal.Inc()
	}
}

func IncStagedConverted() {
	if StagedConvertedTotal != nil {
		StagedConvertedTotal.Inc()
	}
}

func IncAvatarEnqueued() {
	if AvatarEnqueuedTotal != nil {
		AvatarEnqueuedTotal.Inc()
	}
}
