package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sa/internal/adapters/telemetry"
	"go.trai.ch/sa/internal/app"
	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func components(t *testing.T, mirrors []domain.Index) (*app.Components, *mocks.MockLogger) {
	t.Helper()
	ctrl := gomock.NewController(t)

	settings := mocks.NewMockSettingsStore(ctrl)
	settings.EXPECT().Load().Return(domain.Settings{Mirrors: mirrors}, nil).AnyTimes()
	log := mocks.NewMockLogger(ctrl)

	a := app.New(app.Deps{
		Settings: settings,
		Tracer:   telemetry.NoOpTracer{},
		Logger:   log,
	})
	return &app.Components{App: a, Logger: log, Metrics: telemetry.NewMetrics()}, log
}

func provide(c *app.Components) ComponentProvider {
	return func(context.Context) (*app.Components, error) { return c, nil }
}

func TestRun_ProviderError(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	code := run(t.Context(), []string{"version"}, new(bytes.Buffer), &stderr, func(context.Context) (*app.Components, error) {
		return nil, errors.New("cache root is not writable")
	})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error: cache root is not writable")
}

func TestRun_Version(t *testing.T) {
	t.Parallel()

	c, _ := components(t, nil)
	var stdout bytes.Buffer
	code := run(t.Context(), []string{"version"}, &stdout, new(bytes.Buffer), provide(c))
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "sa version dev")
}

func TestRun_MirrorListWritesMetrics(t *testing.T) {
	t.Parallel()

	c, _ := components(t, []domain.Index{{Name: "eu", URL: "https://eu.example/simple"}})
	metricsFile := filepath.Join(t.TempDir(), "sa.prom")

	var stdout bytes.Buffer
	code := run(t.Context(), []string{"mirror", "list", "--metrics-file", metricsFile}, &stdout, new(bytes.Buffer), provide(c))
	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "https://eu.example/simple")

	_, err := os.Stat(metricsFile)
	require.NoError(t, err)
}

func TestRun_ErrorIsLogged(t *testing.T) {
	t.Parallel()

	c, log := components(t, nil)
	log.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, domain.ErrMirrorNotFound)
	})

	code := run(t.Context(), []string{"mirror", "remove", "nope"}, new(bytes.Buffer), new(bytes.Buffer), provide(c))
	assert.Equal(t, 1, code)
}
