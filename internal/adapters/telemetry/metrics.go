package telemetry

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports"
	"go.trai.ch/zerr"
)

const namespace = "sa"

// Metrics implements ports.Metrics on a private Prometheus registry.
type Metrics struct {
	registry       *prometheus.Registry
	indexRequests  *prometheus.CounterVec
	httpCache      *prometheus.CounterVec
	contentCache   *prometheus.CounterVec
	resolverSteps  *prometheus.CounterVec
	installedFiles *prometheus.CounterVec
}

var _ ports.Metrics = (*Metrics)(nil)

// NewMetrics registers every counter on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		indexRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_requests_total",
			Help:      "Registry HTTP requests by host and status code.",
		}, []string{"host", "status"}),
		httpCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_cache_lookups_total",
			Help:      "Index response cache lookups by result.",
		}, []string{"result"}),
		contentCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_cache_ensures_total",
			Help:      "Content cache ensure calls by result.",
		}, []string{"result"}),
		resolverSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_steps_total",
			Help:      "Resolver decisions, conflicts and backjumps.",
		}, []string{"kind"}),
		installedFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installed_files_total",
			Help:      "Files placed into environments by mode.",
		}, []string{"mode"}),
	}
	m.registry.MustRegister(m.indexRequests, m.httpCache, m.contentCache, m.resolverSteps, m.installedFiles)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IndexRequest counts a registry request.
func (m *Metrics) IndexRequest(host string, status int) {
	m.indexRequests.WithLabelValues(host, strconv.Itoa(status)).Inc()
}

// HTTPCache counts a response cache lookup.
func (m *Metrics) HTTPCache(result string) {
	m.httpCache.WithLabelValues(result).Inc()
}

// ContentCache counts a content cache ensure.
func (m *Metrics) ContentCache(result string) {
	m.contentCache.WithLabelValues(result).Inc()
}

// ResolverStep counts resolver work.
func (m *Metrics) ResolverStep(kind string) {
	m.resolverSteps.WithLabelValues(kind).Inc()
}

// InstalledFiles counts placed files.
func (m *Metrics) InstalledFiles(mode string, n int) {
	if n <= 0 {
		return
	}
	m.installedFiles.WithLabelValues(mode).Add(float64(n))
}

// WriteTextfile writes the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return domain.FilesystemError(err, "mkdir", filepath.Dir(path))
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return zerr.With(zerr.Wrap(err, "write metrics textfile"), "path", path)
	}
	return nil
}
