// Package ports defines the interfaces between the core and its adapters.
package ports

import (
	"context"

	"go.trai.ch/sa/internal/core/domain"
)

// MetadataProvider answers version and dependency queries against package indexes.
//
//go:generate mockgen -source=metadata.go -destination=mocks/mock_metadata.go -package=mocks
type MetadataProvider interface {
	// Versions lists the published versions of name, in index order.
	// It returns domain.ErrUnknownPackage when no index knows the name.
	Versions(ctx context.Context, name domain.PackageName) ([]domain.Candidate, error)

	// Dependencies returns the requirements declared by dist of candidate.
	Dependencies(ctx context.Context, candidate domain.Candidate, dist domain.Distribution) ([]domain.Requirement, error)
}

// MetadataProviderFactory builds providers over an ordered list of indexes.
type MetadataProviderFactory interface {
	// New returns a provider querying indexes in order. With merge set,
	// version lists from every index are combined, earlier indexes winning.
	New(indexes []domain.Index, merge bool) MetadataProvider
}
