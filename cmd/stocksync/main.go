package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/stocksync/internal/cli"
)

func main() {
	// Overload lets a local .env take precedence over the shell environment.
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	os.Exit(cli.Execute(context.Background(), os.Stderr))
}
