package commands

import (
	"os"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(enrollmentsCmd)
}

func renderListing(header string, listing map[int]string) {
	ids := make([]int, 0, len(listing))
	for id := range listing {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", header})
	for _, id := range ids {
		t.AppendRow(table.Row{id, listing[id]})
	}
	t.Render()
}

var enrollmentsCmd = &cobra.Command{
	Use:   "enrollments",
	Short: "Logs in and lists the available enrollments.",
	Run: func(cmd *cobra.Command, args []string) {
		scraper, _ := createScraper(cmd.Context())

		enrollments, err := scraper.ListEnrollments(cmd.Context())
		if err != nil {
			fatal("failed to list enrollments", err)
		}
		renderListing("Matrícula", enrollments)
	},
}
