package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/macadam/manifest"
)

// MigrateCommand returns the migrate-manifest command, which converts a
// legacy flat manifest into the current input-keyed schema.
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate-manifest",
		Usage: "Convert a legacy manifest to the current schema",
		Flags: []cli.Flag{
			ManifestFlag,
			&cli.StringFlag{
				Name:     "input",
				Usage:    "Input name the legacy entries belong to",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			path := c.String("manifest")
			if _, err := manifest.Migrate(path, c.String("input")); err != nil {
				return cli.Exit(err.Error(), exitConfigError)
			}
			fmt.Printf("migrated %s\n", path)
			return nil
		},
	}
}
