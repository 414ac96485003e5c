//go:build cgo

package telemetry

import _ "github.com/mattn/go-sqlite3"

// driverName selects the cgo SQLite driver when cgo is available.
const driverName = "sqlite3"
