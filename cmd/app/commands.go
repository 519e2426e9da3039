package main

import (
	"slices"

	"github.com/urfave/cli/v3"
)

// getCommands returns the operational commands followed by the catalog
// management commands.
func getCommands(version string) []*cli.Command {
	return slices.Concat(getSystemCommands(version), getCatalogCommands())
}
