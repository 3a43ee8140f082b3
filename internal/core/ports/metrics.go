package ports

// Metrics records operational counters.
//
//go:generate mockgen -source=metrics.go -destination=mocks/mock_metrics.go -package=mocks
type Metrics interface {
	// IndexRequest counts a registry request by host and HTTP status.
	IndexRequest(host string, status int)

	// HTTPCache counts a response-cache lookup: hit, miss or revalidated.
	HTTPCache(result string)

	// ContentCache counts a cache ensure: hit, stored or mismatch.
	ContentCache(result string)

	// ResolverStep counts resolver work: decision, conflict or backjump.
	ResolverStep(kind string)

	// InstalledFiles counts files placed by mode: link, copy or unchanged.
	InstalledFiles(mode string, n int)

	// WriteTextfile writes every metric in the Prometheus text format.
	WriteTextfile(path string) error
}
