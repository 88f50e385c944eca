// Package cmd provides CLI commands for the macadam binary.
package cmd

import (
	"github.com/pithecene-io/macadam/cli/config"
	"github.com/pithecene-io/macadam/manifest"
	"github.com/urfave/cli/v2"
)

// Shared flags.
var (
	// ConfigFlag selects the project configuration file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the project config file",
		Value:   config.FileName,
	}

	// ManifestFlag selects the manifest (lockfile) path.
	ManifestFlag = &cli.StringFlag{
		Name:  "manifest",
		Usage: "Path to the manifest file",
		Value: manifest.FileName,
	}

	// FormatFlag selects output format for read-only commands.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}
)

// Exit codes for sync.
const (
	exitSuccess     = 0
	exitConfigError = 1
	exitSyncFailure = 2
	exitDrift       = 3
)
