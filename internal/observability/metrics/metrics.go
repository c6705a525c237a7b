package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "quickie"

// GatewayMetrics exposes counters/histograms for remote data calls.
type GatewayMetrics struct {
	callsTotal      *prometheus.CounterVec
	callLatency     *prometheus.HistogramVec
	realtimeDropped *prometheus.CounterVec
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Total gateway calls by table, operation and outcome",
		}, []string{"table", "op", "status"}),
		callLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "call_latency_seconds",
			Help:      "Latency of gateway calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table", "op"}),
		realtimeDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "realtime_dropped_total",
			Help:      "Change events dropped because a subscriber queue was full",
		}, []string{"table"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.callsTotal, m.callLatency, m.realtimeDropped)
	return m
}

func (m *GatewayMetrics) ObserveCall(table, op string, seconds float64, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.callsTotal.WithLabelValues(table, op, status).Inc()
	m.callLatency.WithLabelValues(table, op).Observe(seconds)
}

func (m *GatewayMetrics) ObserveDropped(table string) {
	if m == nil {
		return
	}
	m.realtimeDropped.WithLabelValues(table).Inc()
}

// SiteMetrics tracks visitor-facing flows: bookings, cart, contact forms and the admin live feed.
type SiteMetrics struct {
	bookingSubmissions *prometheus.CounterVec
	availabilityChecks *prometheus.CounterVec
	cartAdditions      *prometheus.CounterVec
	contactSubmissions *prometheus.CounterVec
	liveViewers        prometheus.Gauge
}

func NewSiteMetrics(reg prometheus.Registerer) *SiteMetrics {
	m := &SiteMetrics{
		bookingSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking submissions by outcome",
		}, []string{"outcome"}),
		availabilityChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "availability_checks_total",
			Help:      "Availability lookups by outcome",
		}, []string{"outcome"}),
		cartAdditions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "cart_additions_total",
			Help:      "Shopping list additions by result",
		}, []string{"result"}),
		contactSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "contact",
			Name:      "submissions_total",
			Help:      "Contact and service request submissions",
		}, []string{"form", "outcome"}),
		liveViewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "admin",
			Name:      "live_viewers",
			Help:      "Open admin live feed connections",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingSubmissions, m.availabilityChecks, m.cartAdditions, m.contactSubmissions, m.liveViewers)
	return m
}

func (m *SiteMetrics) ObserveBookingSubmission(outcome string) {
	if m == nil {
		return
	}
	m.bookingSubmissions.WithLabelValues(outcome).Inc()
}

func (m *SiteMetrics) ObserveAvailabilityCheck(outcome string) {
	if m == nil {
		return
	}
	m.availabilityChecks.WithLabelValues(outcome).Inc()
}

func (m *SiteMetrics) ObserveCartAddition(result string) {
	if m == nil {
		return
	}
	m.cartAdditions.WithLabelValues(result).Inc()
}

func (m *SiteMetrics) ObserveContactSubmission(form, outcome string) {
	if m == nil {
		return
	}
	m.contactSubmissions.WithLabelValues(form, outcome).Inc()
}

func (m *SiteMetrics) LiveViewerConnected() {
	if m == nil {
		return
	}
	m.liveViewers.Inc()
}

func (m *SiteMetrics) LiveViewerDisconnected() {
	if m == nil {
		return
	}
	m.liveViewers.Dec()
}
