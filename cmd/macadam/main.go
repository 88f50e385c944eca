// Command macadam synchronizes game assets with an upload target and
// generates code bindings for the results.
//
// Exit codes:
//
//	0  success
//	1  configuration or usage error
//	2  sync completed with failures or was aborted
//	3  dry run found assets out of sync
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/macadam/cli/cmd"
	"github.com/pithecene-io/macadam/types"
)

// commit is set at build time via -ldflags "-X main.commit=...".
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:    "macadam",
		Usage:   "Sync game assets and generate bindings",
		Version: fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Commands: []*cli.Command{
			cmd.SyncCommand(),
			cmd.ListCommand(),
			cmd.InitCommand(),
			cmd.MigrateCommand(),
			cmd.VersionCommand(commit),
		},
		ExitErrHandler: exitErrHandler,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitErrHandler preserves command exit codes while suppressing the
// default "exit status N" noise for empty messages.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	if exitErr, ok := err.(cli.ExitCoder); ok {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(exitErr.ExitCode())
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
