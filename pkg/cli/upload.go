package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func uploadCommand() *cli.Command {
	var cfg config
	var filePath string

	flags := append(globalFlags(&cfg), storageFlags(&cfg)...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Path to the audio file to upload",
			Required:    true,
			Destination: &filePath,
		},
	)

	return &cli.Command{
		Name:  "upload",
		Usage: "Upload an audio note for transcription",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if cfg.userID == "" {
				return goerr.New("user is required")
			}

			storage, err := cfg.newStorage(ctx)
			if err != nil {
				return err
			}

			src, err := os.Open(filepath.Clean(filePath))
			if err != nil {
				return goerr.Wrap(err, "failed to open audio file", goerr.Value("path", filePath))
			}
			defer src.Close()

			// The ingestion worker only picks up objects under this prefix
			key := fmt.Sprintf("user_audio/%s/%s", cfg.userID, filepath.Base(filePath))

			dst, err := storage.Put(ctx, key)
			if err != nil {
				return goerr.Wrap(err, "failed to open object writer", goerr.Value("key", key))
			}

			if _, err := io.Copy(dst, src); err != nil {
				dst.Close()
				return goerr.Wrap(err, "failed to upload audio file", goerr.Value("key", key))
			}
			if err := dst.Close(); err != nil {
				return goerr.Wrap(err, "failed to finalize upload", goerr.Value("key", key))
			}

			fmt.Fprintf(c.Root().Writer, "Uploaded %s\n", key)
			return nil
		},
	}
}
