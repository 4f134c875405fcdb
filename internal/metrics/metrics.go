package metrics

import (
    "net/http"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    conversions = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "docconvert",
            Name:      "conversions_total",
            Help:      "Total conversions by document class, target format and result",
        },
        []string{"class", "format", "result"},
    )

    conversionDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "docconvert",
            Name:      "conversion_duration_seconds",
            Help:      "End-to-end conversion duration by document class",
            Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
        },
        []string{"class"},
    )

    strategyAttempts = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "docconvert",
            Name:      "strategy_attempts_total",
            Help:      "Extraction attempts by strategy and outcome",
        },
        []string{"strategy", "outcome"},
    )

    strategyLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "docconvert",
            Name:      "strategy_duration_seconds",
            Help:      "Duration of extraction attempts by strategy",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"strategy"},
    )

    degradedTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "docconvert",
            Name:      "degraded_conversions_total",
            Help:      "Conversions that fell past the primary strategy, by final strategy",
        },
        []string{"strategy"},
    )

    availabilityEvents = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "docconvert",
            Name:      "availability_events_total",
            Help:      "Strategy availability transitions by strategy and action",
        },
        []string{"strategy", "action"},
    )

    pagesRendered = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "docconvert",
            Name:      "pages_rendered_total",
            Help:      "Pages rasterized, labeled by purpose (ocr, pdf_fallback, analysis)",
        },
        []string{"purpose"},
    )

    classifiedTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "docconvert",
            Name:      "documents_classified_total",
            Help:      "Documents classified by resulting class",
        },
        []string{"class"},
    )
)

// Init registers collectors.
func Init() {
    prometheus.MustRegister(conversions, conversionDuration, strategyAttempts, strategyLatency, degradedTotal, availabilityEvents, pagesRendered, classifiedTotal)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveConversion(class, format, result string, dur time.Duration) {
    conversions.WithLabelValues(class, format, result).Inc()
    conversionDuration.WithLabelValues(class).Observe(dur.Seconds())
}

func ObserveAttempt(strategy, outcome string, dur time.Duration) {
    strategyAttempts.WithLabelValues(strategy, outcome).Inc()
    strategyLatency.WithLabelValues(strategy).Observe(dur.Seconds())
}

func IncDegraded(strategy string) { degradedTotal.WithLabelValues(strategy).Inc() }
func IncClassified(class string)  { classifiedTotal.WithLabelValues(class).Inc() }
func IncRendered(purpose string)  { pagesRendered.WithLabelValues(purpose).Inc() }

func StrategyDown(strategy string) { availabilityEvents.WithLabelValues(strategy, "down").Inc() }
func StrategyUp(strategy string)   { availabilityEvents.WithLabelValues(strategy, "up").Inc() }
