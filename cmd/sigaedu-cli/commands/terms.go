package commands

import (
	"github.com/spf13/cobra"
)

var termsEnrollment *int

func init() {
	termsEnrollment = termsCmd.Flags().Int("enrollment", 0, "The enrollment id to list terms for.")
	termsCmd.MarkFlagRequired("enrollment")
	rootCmd.AddCommand(termsCmd)
}

var termsCmd = &cobra.Command{
	Use:   "terms --enrollment <id>",
	Short: "Lists the terms available under an enrollment.",
	Run: func(cmd *cobra.Command, args []string) {
		scraper, _ := createScraper(cmd.Context())

		terms, err := scraper.ListTerms(cmd.Context(), *termsEnrollment)
		if err != nil {
			fatal("failed to list terms", err)
		}
		renderListing("Período letivo", terms)
	},
}
