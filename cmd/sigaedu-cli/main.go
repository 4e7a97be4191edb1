package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"sigaedu-backend/cmd/sigaedu-cli/commands"
	"sigaedu-backend/lib/telemetry"
)

func main() {
	err := telemetry.SetupFromEnv(context.Background(), "sigaedu-cli")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		// a missing telemetry config just means no exporters, anything
		// else is worth surfacing before running without telemetry
		slog.Warn("failed to setup telemetry", "err", err)
	}
	commands.ExecuteContext(context.Background())
}
