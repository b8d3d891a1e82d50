// Package configs provides embedded configuration templates for qmdsync.
//
// The templates are used by `qmdsync config init`:
//   - vault-config.example.yaml becomes .qmdsync.yaml in the vault root
//   - user-config.example.yaml becomes ~/.config/qmdsync/config.yaml
//
// Keys must match internal/config; unknown keys are rejected on load.
package configs

import _ "embed"

// UserConfigTemplate is the template for machine-level settings that apply
// to every vault, such as the qmd executable and log level.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// VaultConfigTemplate is the template for per-vault settings, such as the
// sync mode and collection name.
//
//go:embed vault-config.example.yaml
var VaultConfigTemplate string
