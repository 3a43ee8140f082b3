package ports

import (
	"context"

	"go.trai.ch/sa/internal/core/domain"
)

// Installer materializes cached packages into an environment.
//
//go:generate mockgen -source=installer.go -destination=mocks/mock_installer.go -package=mocks
type Installer interface {
	// Install links every item into env. A failing package does not stop the
	// others; the returned error is a *domain.InstallError naming them.
	Install(ctx context.Context, env string, items []domain.InstallItem) (*domain.InstallReport, error)

	// Installed returns the records of every package installed in env,
	// sorted by name.
	Installed(env string) ([]domain.InstalledRecord, error)

	// Uninstall deletes the files and records of names from env and returns
	// the names that were installed.
	Uninstall(env string, names []domain.PackageName) ([]domain.PackageName, error)
}
