package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	LaunchResultStarted  = "started"
	LaunchResultNotFound = "not_found"
	LaunchResultFailed   = "failed"
)

var (
	registry = prometheus.NewRegistry()

	serviceReady = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "launchpad",
		Name:      "service_ready",
		Help:      "Readiness state of services (1=ready, 0=not ready).",
	}, []string{"service"})

	launches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "launchpad",
		Name:      "launches_total",
		Help:      "Launch attempts per service partitioned by result.",
	}, []string{"service", "result"})

	probeLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "launchpad",
		Name:      "probe_latency_seconds",
		Help:      "Latency of health check attempts in seconds.",
	}, []string{"service"})

	terminated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "launchpad",
		Name:      "processes_terminated_total",
		Help:      "Processes terminated by image name, during stale cleanup or shutdown.",
	}, []string{"image"})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "launchpad",
		Name:      "build_info",
		Help:      "Build metadata for the running launchpad binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(serviceReady, launches, probeLatency, terminated, buildInfo)
}

// Registry returns the Prometheus registry containing all launchpad metrics.
func Registry() *prometheus.Registry {
	return registry
}

// SetServiceReady records the readiness state for the provided service.
func SetServiceReady(service string, ready bool) {
	if service == "" {
		return
	}
	value := 0.0
	if ready {
		value = 1.0
	}
	serviceReady.WithLabelValues(service).Set(value)
}

// IncLaunch counts a launch attempt with its outcome.
func IncLaunch(service, result string) {
	if service == "" || result == "" {
		return
	}
	launches.WithLabelValues(service, result).Inc()
}

// ObserveProbeLatency records the latency of a single health check attempt.
func ObserveProbeLatency(service string, d time.Duration) {
	label := service
	if label == "" {
		label = "unknown"
	}
	probeLatency.WithLabelValues(label).Observe(d.Seconds())
}

// AddTerminated increments the terminated-process counter for an image name.
func AddTerminated(image string, n int) {
	if image == "" || n <= 0 {
		return
	}
	terminated.WithLabelValues(image).Add(float64(n))
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
