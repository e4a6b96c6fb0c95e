package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"appsmith/logger"
)

func main() {
	// Load .env file if any
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("Warning: failed to load .env file")
		}
	}
	log.Logger = logger.Get()

	rootCmd := &cli.Command{
		Name:  "smith",
		Usage: "Generate, test, and commit a small app through an AnythingLLM workspace",
		Commands: []*cli.Command{
			NewRunCommand(),
		},
	}

	if err := rootCmd.Run(context.Background(), os.Args); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
