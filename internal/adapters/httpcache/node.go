package httpcache

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/grindlemire/graft"
	"go.trai.ch/sa/internal/adapters/config"
	"go.trai.ch/sa/internal/adapters/telemetry"
	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports"
)

// NodeID is the unique identifier for the HTTP client Graft node.
const NodeID graft.ID = "adapter.httpcache"

func init() {
	graft.Register(graft.Node[*Client]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.SettingsNodeID, telemetry.MetricsNodeID},
		Run: func(ctx context.Context) (*Client, error) {
			settingsStore, err := graft.Dep[ports.SettingsStore](ctx)
			if err != nil {
				return nil, err
			}
			metrics, err := graft.Dep[ports.Metrics](ctx)
			if err != nil {
				return nil, err
			}
			settings, err := settingsStore.Load()
			if err != nil {
				return nil, err
			}
			return New(Options{
				Dir:        filepath.Join(settings.CacheDir, domain.HTTPCacheDirName),
				HTTPClient: &http.Client{Timeout: settings.HTTPTimeout},
				Freshness:  settings.FreshnessWindow,
				Retries:    settings.Retries,
				RateLimit:  settings.RateLimit,
				Metrics:    metrics,
			})
		},
	})
}
