//go:build !cgo

package telemetry

import _ "modernc.org/sqlite"

// driverName selects the pure-Go SQLite driver for CGO_ENABLED=0 builds.
const driverName = "sqlite"
