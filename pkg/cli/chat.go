package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/usecase/chat"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/usecase/waiter"
)

func chatCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)

	return &cli.Command{
		Name:  "chat",
		Usage: "Ask questions about your captured thoughts",
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

			// The worker side answers; this client only creates the query
			// record and waits for its terminal snapshot
			chatUC := chat.New(repo, nil)
			wt := waiter.New(repo)

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			fmt.Fprintln(c.Root().Writer, "Chat session started. Type 'exit' to quit.")

			for {
				line, err := rl.Readline()
				if err == readline.ErrInterrupt || err == io.EOF {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}
				if line == "exit" {
					break
				}
				if line == "" {
					continue
				}

				if err := askOnce(ctx, c.Root().Writer, chatUC, wt, cfg.userID, line); err != nil {
					return err
				}
			}

			fmt.Fprintln(c.Root().Writer, "\nChat session completed")
			return nil
		},
	}
}

func askOnce(ctx context.Context, w io.Writer, chatUC *chat.UseCase, wt *waiter.Waiter, userID, line string) error {
	q, err := chatUC.Ask(ctx, userID, line)
	if err != nil {
		return goerr.Wrap(err, "failed to submit query")
	}

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	sp.Suffix = " Thinking..."
	sp.Start()
	outcome, err := wt.WaitChat(ctx, q.ID)
	sp.Stop()

	if err != nil {
		return goerr.Wrap(err, "failed to wait for answer")
	}

	switch outcome.State {
	case waiter.StateResolvedSuccess:
		fmt.Fprintf(w, "%s\n", outcome.Query.Answer)
	case waiter.StateResolvedFailure:
		fmt.Fprintf(w, "Sorry, something went wrong: %s\n", outcome.Query.ErrorMsg)
	case waiter.StateTimedOut:
		fmt.Fprintln(w, "Still working on it. Check back in a moment.")
	}
	return nil
}
