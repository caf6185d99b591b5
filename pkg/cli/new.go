package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/usecase/thought"
)

func newCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)

	return &cli.Command{
		Name:      "new",
		Usage:     "Capture a new thought",
		ArgsUsage: "<text>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			text := strings.Join(c.Args().Slice(), " ")
			if text == "" {
				return goerr.New("thought text is required")
			}
			if cfg.userID == "" {
				return goerr.New("user is required")
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			// Capture never calls the model; enrichment runs server-side
			uc := thought.New(repo, nil)
			t, err := uc.Capture(ctx, cfg.userID, text)
			if err != nil {
				return goerr.Wrap(err, "failed to capture thought")
			}

			fmt.Fprintf(c.Root().Writer, "Queued thought %s\n", t.ID)
			return nil
		},
	}
}
