package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "thoughtcatcher",
		Usage: "Capture thoughts and enrich them with AI metadata",
		Commands: []*cli.Command{
			serveCommand(),
			newCommand(),
			listCommand(),
			deleteCommand(),
			chatCommand(),
			batchCommand(),
			uploadCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
