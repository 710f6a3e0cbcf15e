package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// outbound collaborators
	EmailsTotal          *prometheus.CounterVec
	ReceiptVerifications *prometheus.CounterVec
	SignatureUploads     *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "certhub",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "certhub",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "certhub",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "certhub",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "certhub",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		EmailsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "certhub",
				Subsystem: "email",
				Name:      "sent_total",
				Help:      "Outbound emails by kind and result.",
			},
			[]string{"kind", "result"}, // kind=certificate|summary, result=ok|error
		),
		ReceiptVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "certhub",
				Subsystem: "appstore",
				Name:      "verifications_total",
				Help:      "Receipt verification attempts by environment and result.",
			},
			[]string{"environment", "result"},
		),
		SignatureUploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "certhub",
				Subsystem: "blob",
				Name:      "signature_uploads_total",
				Help:      "Signature image uploads by result.",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.EmailsTotal, p.ReceiptVerifications, p.SignatureUploads,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

// nil-safe helpers so collaborators can run without metrics in tests

func (p *Prom) ObserveEmail(kind string, err error) {
	if p == nil {
		return
	}
	p.EmailsTotal.WithLabelValues(kind, resultLabel(err)).Inc()
}

func (p *Prom) ObserveReceipt(environment string, result string) {
	if p == nil {
		return
	}
	p.ReceiptVerifications.WithLabelValues(environment, result).Inc()
}

func (p *Prom) ObserveUpload(err error) {
	if p == nil {
		return
	}
	p.SignatureUploads.WithLabelValues(resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
