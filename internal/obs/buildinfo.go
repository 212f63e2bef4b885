package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var buildInfoOnce sync.Once

// InitBuildInfo publishes a constant-valued gauge carrying the build's
// version and commit as labels. Safe to call more than once; only the
// first call registers.
func InitBuildInfo(version, commit string) {
	buildInfoOnce.Do(func() {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "build_info",
			Help:        "Guildstock API build information.",
			ConstLabels: prometheus.Labels{"version": version, "commit": commit},
		})
		g.Set(1)
		prometheus.MustRegister(g)
	})
}
