package ports

import (
	"context"

	"go.trai.ch/sa/internal/core/domain"
)

// Resolver turns root requirements into a consistent set of package versions.
//
//go:generate mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks
type Resolver interface {
	// Resolve returns the resolved graph or a *domain.NoSatisfyingVersionError
	// describing the conflict.
	Resolve(
		ctx context.Context,
		roots []domain.Requirement,
		target domain.Target,
		opts domain.ResolveOptions,
	) (*domain.ResolvedGraph, error)
}

// ResolverFactory builds resolvers over a metadata provider.
type ResolverFactory interface {
	// New returns a resolver that queries provider.
	New(provider MetadataProvider) Resolver
}
