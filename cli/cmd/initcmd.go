package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// starterConfig is written by `macadam init`. The creator id must be
// filled in before the first cloud sync.
const starterConfig = `creator:
  type: user
  id: 0

codegen:
  style: nested
  typescript: false
  strip_extensions: true

inputs:
  assets:
    path: "assets/**/*"
    output_path: "src/shared"
`

// InitCommand returns the init command.
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a starter config file",
		Flags: []cli.Flag{ConfigFlag},
		Action: func(c *cli.Context) error {
			path := c.String("config")
			if _, err := os.Stat(path); err == nil {
				return cli.Exit(fmt.Sprintf("%s already exists", path), exitConfigError)
			}
			if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
				return cli.Exit(fmt.Sprintf("write %s: %v", path, err), exitConfigError)
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
}
