package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	submissions     prometheus.Counter
	answersGraded   prometheus.Counter
	answersSkipped  prometheus.Counter
	scores          prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_submissions_total",
			Help: "Attempts stored",
		}),
		answersGraded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_answers_graded_total",
			Help: "Answers graded against a known question",
		}),
		answersSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_answers_skipped_total",
			Help: "Answers dropped because their question did not resolve",
		}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_attempt_score",
			Help:    "Total score per attempt",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.submissions,
		m.answersGraded,
		m.answersSkipped,
		m.scores,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordSubmission counts one stored attempt.
func (m *Metrics) RecordSubmission(graded, skipped, score int) {
	m.submissions.Inc()
	m.answersGraded.Add(float64(graded))
	m.answersSkipped.Add(float64(skipped))
	m.scores.Observe(float64(score))
}

// Middleware records request counts and latency by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
