// ABOUTME: Prometheus metrics for the CRM store, notification bus and chat bridge
// ABOUTME: Collects entity counts per scrape and counts chat widget events
package metrics

import (
	"net/http"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leadpipe"

// Snapshotter is satisfied by *store.Store.
type Snapshotter interface {
	Snapshot() store.Fixtures
}

// StatsSource is satisfied by *notify.Bus.
type StatsSource interface {
	Stats() models.NotificationStats
}

type Metrics struct {
	registry   *prometheus.Registry
	chatEvents *prometheus.CounterVec
	toasts     *prometheus.CounterVec
}

// New registers collectors over s and n on a private registry. Either may be nil.
func New(s Snapshotter, n StatsSource) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chatEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_events_total",
			Help:      "Chat widget events handled, by type.",
		}, []string{"type"}),
		toasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Notifications posted to the bus, by type.",
		}, []string{"type"}),
	}
	m.registry.MustRegister(m.chatEvents, m.toasts)
	if s != nil {
		m.registry.MustRegister(&storeCollector{src: s})
	}
	if n != nil {
		m.registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "notifications_unread",
				Help:      "Notifications not yet read.",
			}, func() float64 { return float64(n.Stats().Unread) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "notifications",
				Help:      "Notifications currently held by the bus.",
			}, func() float64 { return float64(n.Stats().Total) }),
		)
	}
	return m
}

// ObserveChatEvent counts one widget event.
func (m *Metrics) ObserveChatEvent(eventType string) {
	m.chatEvents.WithLabelValues(eventType).Inc()
}

// ObserveNotification counts one notification; subscribe it to the bus.
func (m *Metrics) ObserveNotification(n models.Notification) {
	m.toasts.WithLabelValues(n.Type).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var (
	leadsDesc = prometheus.NewDesc(namespace+"_leads", "Leads by status.", []string{"status"}, nil)
	dealsDesc = prometheus.NewDesc(namespace+"_deals", "Deals by pipeline stage.", []string{"stage"}, nil)
	valueDesc = prometheus.NewDesc(namespace+"_deal_value", "Summed deal value by pipeline stage.", []string{"stage"}, nil)
	actsDesc  = prometheus.NewDesc(namespace+"_activities", "Activities by completion.", []string{"status"}, nil)
	convsDesc = prometheus.NewDesc(namespace+"_conversations", "Chat conversations by status.", []string{"status"}, nil)
)

// storeCollector takes one snapshot per scrape.
type storeCollector struct {
	src Snapshotter
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- leadsDesc
	ch <- dealsDesc
	ch <- valueDesc
	ch <- actsDesc
	ch <- convsDesc
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.src.Snapshot()

	leads := map[string]int{}
	for _, s := range models.LeadStatuses {
		leads[s] = 0
	}
	for _, l := range snap.Leads {
		leads[l.Status]++
	}
	for status, n := range leads {
		ch <- prometheus.MustNewConstMetric(leadsDesc, prometheus.GaugeValue, float64(n), status)
	}

	counts := map[string]int{}
	values := map[string]float64{}
	for _, s := range models.Stages {
		counts[s] = 0
		values[s] = 0
	}
	for _, d := range snap.Deals {
		counts[d.Stage]++
		values[d.Stage] += d.Value
	}
	for stage, n := range counts {
		ch <- prometheus.MustNewConstMetric(dealsDesc, prometheus.GaugeValue, float64(n), stage)
		ch <- prometheus.MustNewConstMetric(valueDesc, prometheus.GaugeValue, values[stage], stage)
	}

	var done, pending int
	for _, a := range snap.Activities {
		if a.Completed {
			done++
		} else {
			pending++
		}
	}
	ch <- prometheus.MustNewConstMetric(actsDesc, prometheus.GaugeValue, float64(done), "completed")
	ch <- prometheus.MustNewConstMetric(actsDesc, prometheus.GaugeValue, float64(pending), "pending")

	convs := map[string]int{models.ConversationActive: 0, models.ConversationCompleted: 0}
	for _, cv := range snap.Conversations {
		convs[cv.Status]++
	}
	for status, n := range convs {
		ch <- prometheus.MustNewConstMetric(convsDesc, prometheus.GaugeValue, float64(n), status)
	}
}
