// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/sa/internal/adapters/advisory"
	_ "go.trai.ch/sa/internal/adapters/cas"
	_ "go.trai.ch/sa/internal/adapters/config"
	_ "go.trai.ch/sa/internal/adapters/fs"
	_ "go.trai.ch/sa/internal/adapters/graphviz"
	_ "go.trai.ch/sa/internal/adapters/httpcache"
	_ "go.trai.ch/sa/internal/adapters/index"
	_ "go.trai.ch/sa/internal/adapters/installer"
	_ "go.trai.ch/sa/internal/adapters/lockfile"
	_ "go.trai.ch/sa/internal/adapters/logger"
	_ "go.trai.ch/sa/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/sa/internal/app"
	_ "go.trai.ch/sa/internal/engine/resolver"
	_ "go.trai.ch/sa/internal/engine/scheduler"
)
