package ports

import (
	"context"

	"go.trai.ch/sa/internal/core/domain"
)

// AdvisorySource loads a vulnerability advisory database.
//
//go:generate mockgen -source=advisory.go -destination=mocks/mock_advisory.go -package=mocks
type AdvisorySource interface {
	Load(ctx context.Context, location string) ([]domain.Advisory, error)
}
