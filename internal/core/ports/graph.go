package ports

import (
	"io"

	"go.trai.ch/sa/internal/core/domain"
)

// GraphRenderer writes a resolved graph in a visual format.
//
//go:generate mockgen -source=graph.go -destination=mocks/mock_graph.go -package=mocks
type GraphRenderer interface {
	// Render writes the subgraph reachable from roots, or the whole graph
	// when roots is empty.
	Render(w io.Writer, g *domain.ResolvedGraph, roots []domain.PackageName) error
}
