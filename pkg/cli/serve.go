package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/adapter"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/dispatch"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/server"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/usecase/audio"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/usecase/batch"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/usecase/chat"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/usecase/thought"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/utils/logging"
)

func serveCommand() *cli.Command {
	var (
		cfg        config
		addr       string
		configPath string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP listen address",
			Value:       ":8080",
			Sources:     cli.EnvVars("THOUGHTCATCHER_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML server configuration",
			Sources:     cli.EnvVars("THOUGHTCATCHER_CONFIG"),
			Destination: &configPath,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the worker dispatcher and HTTP entry point",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.New(cfg.logLevel, os.Stdout)
			if cfg.logFormat == "json" {
				logger = logging.NewJSON(cfg.logLevel, os.Stdout)
			}
			logging.SetDefault(logger)
			ctx = logging.With(ctx, logger)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			sf, err := loadServeFile(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				sf.Server.Addr = addr
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			aiService, err := cfg.newAI(ctx)
			if err != nil {
				return err
			}

			storage, err := cfg.newStorage(ctx)
			if err != nil {
				return err
			}

			authClient, err := adapter.NewGoogleAuth(ctx, sf.Auth.Audience)
			if err != nil {
				return err
			}

			thoughtUC := thought.New(repo, aiService)
			chatUC := chat.New(repo, aiService)
			batchUC := batch.New(repo, aiService)
			audioUC := audio.New(repo, aiService, storage)

			dispatcher := dispatch.New(repo, thoughtUC, chatUC, batchUC)
			srv := server.New(sf.Server, authClient, batchUC, audioUC)

			logger.Info("starting", "addr", sf.Server.Addr, "local", cfg.local)

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				return dispatcher.Run(egCtx)
			})
			eg.Go(func() error {
				return srv.Run(egCtx)
			})

			if err := eg.Wait(); err != nil {
				return goerr.Wrap(err, "server terminated")
			}
			return nil
		},
	}
}
