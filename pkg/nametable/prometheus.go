package nametable

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

type (
	metricsVecs struct {
		labelNames  []string
		subscribers *prometheus.GaugeVec
		updates     *prometheus.CounterVec
	}

	metrics struct {
		labels      prometheus.Labels
		subscribers prometheus.Gauge
		updates     prometheus.Counter
	}

	serviceMetricsVecs struct {
		metricsVecs
		publications *prometheus.GaugeVec
		subSequences *prometheus.GaugeVec
	}

	serviceMetrics struct {
		metrics
		publications prometheus.Gauge
		subSequences prometheus.Gauge
	}
)

var serviceVecs = newServiceMetricsVecs()

var (
	servicesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nametable_services",
		Help: "A gauge for the current number of service types held in the name table.",
	})

	localPublicationsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nametable_local_publications",
		Help: "A gauge for the current number of publications owned by the local node.",
	})
)

func newMetricsVecs(name string, labels []string) metricsVecs {
	subscribers := promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_subscribers", name),
			Help: fmt.Sprintf("A gauge for the current number of subscribers to a %s.", name),
		},
		labels,
	)

	updates := promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_updates", name),
			Help: fmt.Sprintf("A counter for number of updates to a %s.", name),
		},
		labels,
	)

	return metricsVecs{
		labelNames:  labels,
		subscribers: subscribers,
		updates:     updates,
	}
}

func serviceLabels(svcType uint32) prometheus.Labels {
	return prometheus.Labels{
		"type": strconv.FormatUint(uint64(svcType), 10),
	}
}

func labelNames(labels prometheus.Labels) []string {
	names := []string{}
	for label := range labels {
		names = append(names, label)
	}
	return names
}

func newServiceMetricsVecs() serviceMetricsVecs {
	labels := labelNames(serviceLabels(0))
	vecs := newMetricsVecs("nametable", labels)

	publications := promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nametable_publications",
			Help: "A gauge for the current number of publications of a service type.",
		},
		labels,
	)

	subSequences := promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nametable_subsequences",
			Help: "A gauge for the current number of distinct ranges of a service type.",
		},
		labels,
	)

	return serviceMetricsVecs{
		metricsVecs:  vecs,
		publications: publications,
		subSequences: subSequences,
	}
}

func (mv metricsVecs) newMetrics(labels prometheus.Labels) metrics {
	return metrics{
		labels:      labels,
		subscribers: mv.subscribers.With(labels),
		updates:     mv.updates.With(labels),
	}
}

func (smv serviceMetricsVecs) newServiceMetrics(labels prometheus.Labels) serviceMetrics {
	metrics := smv.newMetrics(labels)
	return serviceMetrics{
		metrics:      metrics,
		publications: smv.publications.With(labels),
		subSequences: smv.subSequences.With(labels),
	}
}

func (smv serviceMetricsVecs) unregister(labels prometheus.Labels) {
	if !smv.metricsVecs.subscribers.Delete(labels) {
		log.Warnf("unable to delete nametable_subscribers metric with labels %s", labels)
	}
	if !smv.metricsVecs.updates.Delete(labels) {
		log.Warnf("unable to delete nametable_updates metric with labels %s", labels)
	}
	if !smv.publications.Delete(labels) {
		log.Warnf("unable to delete nametable_publications metric with labels %s", labels)
	}
	if !smv.subSequences.Delete(labels) {
		log.Warnf("unable to delete nametable_subsequences metric with labels %s", labels)
	}
}

func (m metrics) setSubscribers(n int) {
	m.subscribers.Set(float64(n))
}

func (m metrics) incUpdates() {
	m.updates.Inc()
}

func (sm serviceMetrics) setPublications(n int) {
	sm.publications.Set(float64(n))
}

func (sm serviceMetrics) setSubSequences(n int) {
	sm.subSequences.Set(float64(n))
}
