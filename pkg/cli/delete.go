package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/usecase/thought"
)

func deleteCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a thought permanently",
		ArgsUsage: "<thought-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			if id == "" {
				return goerr.New("thought ID is required")
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			uc := thought.New(repo, nil)
			if err := uc.Delete(ctx, model.ThoughtID(id)); err != nil {
				return goerr.Wrap(err, "failed to delete thought")
			}

			fmt.Fprintf(c.Root().Writer, "Deleted thought %s\n", id)
			return nil
		},
	}
}
