package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/usecase/batch"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/usecase/waiter"
)

func batchCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)

	return &cli.Command{
		Name:  "batch",
		Usage: "Request a sweep of all unprocessed thoughts",
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

			batchUC := batch.New(repo, nil)
			wt := waiter.New(repo)

			req, err := batchUC.Request(ctx, cfg.userID)
			if err != nil {
				return goerr.Wrap(err, "failed to submit batch request")
			}

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(c.Root().Writer))
			sp.Suffix = " Processing thoughts..."
			sp.Start()
			outcome, err := wt.WaitBatch(ctx, req.ID)
			sp.Stop()

			if err != nil {
				return goerr.Wrap(err, "failed to wait for batch result")
			}

			switch outcome.State {
			case waiter.StateResolvedSuccess:
				fmt.Fprintln(c.Root().Writer, outcome.Request.Message)
			case waiter.StateResolvedFailure:
				fmt.Fprintf(c.Root().Writer, "Batch failed: %s\n", outcome.Request.ErrorMsg)
			case waiter.StateTimedOut:
				fmt.Fprintln(c.Root().Writer, "Batch is still running. Check back in a moment.")
			}
			return nil
		},
	}
}
