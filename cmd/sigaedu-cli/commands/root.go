package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"sigaedu-backend/lib/restyutil"
	"sigaedu-backend/lib/scrapers/sigaedu"
	"sigaedu-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var debug *bool

var rootCmd = &cobra.Command{
	Use:   "sigaedu-cli",
	Short: "sigaedu-cli extracts enrollment, term and grade report data from a SIGA-EDU portal.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*debug)
		if *debug {
			sigaedu.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/sigaedu"))
		}
	},
}

func init() {
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging and HTTP exchange dumps.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}
