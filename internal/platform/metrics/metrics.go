// Package metrics exposes the Prometheus scrape endpoint. Individual
// counters live next to the code they measure and register through
// promauto on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "custodia_build_info",
	Help: "Build metadata, value is always 1.",
}, []string{"version"})

// SetBuildInfo records the running version for dashboards.
func SetBuildInfo(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
