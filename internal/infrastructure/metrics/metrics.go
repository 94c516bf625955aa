package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopify_bridge"

// Recorder exposes bridge counters on its own registry
type Recorder struct {
	registry        *prometheus.Registry
	installs        *prometheus.CounterVec
	uninstalls      *prometheus.CounterVec
	hmacRejections  *prometheus.CounterVec
	sideEffects     *prometheus.CounterVec
	ssoTokensIssued prometheus.Counter
}

// NewRecorder creates a recorder with Go runtime and process collectors registered
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		installs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_installs_total",
			Help:      "OAuth install attempts by outcome.",
		}, []string{"outcome"}),
		uninstalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uninstalls_total",
			Help:      "Verified app/uninstalled webhooks by outcome of the store write.",
		}, []string{"outcome"}),
		hmacRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hmac_rejections_total",
			Help:      "Requests rejected for a bad Shopify signature.",
		}, []string{"kind"}),
		sideEffects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effects_total",
			Help:      "Post-install and post-uninstall side effects by name and outcome.",
		}, []string{"name", "outcome"}),
		ssoTokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sso_tokens_issued_total",
			Help:      "SSO handoff tokens issued.",
		}),
	}
}

func (r *Recorder) ObserveInstall(outcome string) { r.installs.WithLabelValues(outcome).Inc() }

func (r *Recorder) ObserveUninstall(outcome string) { r.uninstalls.WithLabelValues(outcome).Inc() }

func (r *Recorder) ObserveHMACRejection(kind string) { r.hmacRejections.WithLabelValues(kind).Inc() }

func (r *Recorder) ObserveSideEffect(name string, outcome string) {
	r.sideEffects.WithLabelValues(name, outcome).Inc()
}

func (r *Recorder) ObserveSSOIssued() { r.ssoTokensIssued.Inc() }

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Nop discards every observation
type Nop struct{}

func (Nop) ObserveInstall(string) {}
func (Nop) ObserveUninstall(string) {}
func (Nop) ObserveHMACRejection(string) {}
func (Nop) ObserveSideEffect(string, string) {}
func (Nop) ObserveSSOIssued() {}
