// Package metrics holds the Prometheus collectors for auth, ledger and HTTP
// outcomes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	tokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crowdfund",
			Subsystem: "auth",
			Name:      "tokens_issued_total",
			Help:      "Refresh tokens issued, by flow.",
		},
		[]string{"flow"},
	)

	tokensRevoked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crowdfund",
			Subsystem: "auth",
			Name:      "tokens_revoked_total",
			Help:      "Refresh tokens revoked, by reason.",
		},
		[]string{"reason"},
	)

	tokenReuse = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "crowdfund",
			Subsystem: "auth",
			Name:      "token_reuse_detected_total",
			Help:      "Presentations of an already rotated or revoked refresh token.",
		},
	)

	redemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crowdfund",
			Subsystem: "ledger",
			Name:      "redemptions_total",
			Help:      "Reward redemption attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	donations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "crowdfund",
			Subsystem: "ledger",
			Name:      "donations_total",
			Help:      "Donations recorded.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crowdfund",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "crowdfund",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(
		tokensIssued,
		tokensRevoked,
		tokenReuse,
		redemptions,
		donations,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry for scraping
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// TokenIssued counts a refresh token minted by flow (authenticate, refresh)
func TokenIssued(flow string) { tokensIssued.WithLabelValues(flow).Inc() }

// TokensRevoked counts n tokens revoked for reason
func TokensRevoked(reason string, n int64) {
	if n > 0 {
		tokensRevoked.WithLabelValues(reason).Add(float64(n))
	}
}

// TokenReuseDetected counts a replayed refresh token
func TokenReuseDetected() { tokenReuse.Inc() }

// Redemption counts a redemption attempt by outcome
func Redemption(outcome string) { redemptions.WithLabelValues(outcome).Inc() }

// DonationRecorded counts a committed donation
func DonationRecorded() { donations.Inc() }

// ObserveHTTP records one handled request
func ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
