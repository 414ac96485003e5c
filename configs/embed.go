// Package configs provides embedded configuration templates for gujimcp.
//
// The templates are used by `gujimcp config init`:
//   - project-config.example.yaml: written to .gujimcp.yaml (corpus location, limits)
//   - user-config.example.yaml: written to ~/.config/gujimcp/config.yaml (logging, cache, telemetry)
//
// Configuration hierarchy (see internal/config Load()):
//  1. Hardcoded defaults (NewConfig())
//  2. User config (~/.config/gujimcp/config.yaml)
//  3. Project config (.gujimcp.yaml)
//  4. Environment variables (GUJIMCP_*)
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for corpus-level configuration.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
