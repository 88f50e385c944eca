package cmd

import (
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/macadam/cli/render"
	"github.com/pithecene-io/macadam/manifest"
)

// ListRow is one manifest entry in list output.
type ListRow struct {
	Key  string `json:"key"`
	Hash string `json:"hash"`
	ID   string `json:"id"`
}

// ListCommand returns the list command. It reads the manifest only and
// never contacts a backend.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List synced assets from the manifest",
		Flags: []cli.Flag{
			ManifestFlag,
			FormatFlag,
			&cli.StringFlag{
				Name:  "input",
				Usage: "Only show entries from this input",
			},
		},
		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	m, err := manifest.Load(c.String("manifest"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	filter := c.String("input")
	rows := make([]ListRow, 0, m.Len())
	for input, entries := range m.Inputs {
		if filter != "" && input != filter {
			continue
		}
		for path, entry := range entries {
			rows = append(rows, ListRow{
				Key:  input + ":" + path,
				Hash: entry.Hash,
				ID:   entry.ID,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

	return r.Render(rows)
}
