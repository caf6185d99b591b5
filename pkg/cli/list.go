package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/usecase/thought"
)

func listCommand() *cli.Command {
	var (
		cfg   config
		limit int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of thoughts to show",
			Value:       50,
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List captured thoughts, most recent first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if cfg.userID == "" {
				return goerr.New("user is required")
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			uc := thought.New(repo, nil)
			thoughts, err := uc.List(ctx, cfg.userID, int(limit))
			if err != nil {
				return goerr.Wrap(err, "failed to list thoughts")
			}

			if len(thoughts) == 0 {
				fmt.Fprintln(c.Root().Writer, "No thoughts captured yet.")
				return nil
			}

			for _, t := range thoughts {
				fmt.Fprintln(c.Root().Writer, formatThought(t))
			}
			return nil
		},
	}
}

func formatThought(t *model.Thought) string {
	title := t.Title
	if title == "" {
		title = "Untitled Thought"
	}

	line := fmt.Sprintf("%s  [%s] %s", t.ID, t.Status, title)
	switch t.Status {
	case model.StatusProcessed:
		line += fmt.Sprintf("\n    %s\n    #%s", t.Summary, strings.Join(t.Keywords, " #"))
	case model.StatusFailed:
		line += fmt.Sprintf("\n    error: %s", t.ErrorMsg)
	}
	return line
}
