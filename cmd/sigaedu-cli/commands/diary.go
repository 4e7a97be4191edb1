package commands

import (
	"database/sql"
	"fmt"
	"os"
	"slices"
	"strings"

	"sigaedu-backend/lib/diarystore"
	dsdb "sigaedu-backend/lib/diarystore/db"
	"sigaedu-backend/lib/scrapers/sigaedu"
	"sigaedu-backend/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var diaryEnrollment *int
var diaryTerm *int
var diaryDb *string

func init() {
	diaryEnrollment = diaryCmd.Flags().Int("enrollment", 0, "The enrollment id the term belongs to.")
	diaryTerm = diaryCmd.Flags().Int("term", 0, "The term id to fetch the grade report for.")
	diaryDb = diaryCmd.Flags().String("db", "", "Optionally push a snapshot of the report to this database.")
	diaryCmd.MarkFlagRequired("enrollment")
	diaryCmd.MarkFlagRequired("term")
	rootCmd.AddCommand(diaryCmd)
}

func formatGrades(course sigaedu.Course) string {
	parts := make([]string, len(course.Grades))
	for i, g := range course.Grades {
		if g.Value == nil {
			parts[i] = g.Label
			continue
		}
		parts[i] = fmt.Sprintf("%s: %.1f", g.Label, *g.Value)
	}
	return strings.Join(parts, "\n")
}

func formatNormalized(course sigaedu.Course) string {
	values, ok := course.NormalizedAverages()
	if !ok {
		return "-"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			parts[i] = "-"
			continue
		}
		parts[i] = fmt.Sprintf("%.1f", *v)
	}
	return strings.Join(parts, " | ")
}

func pushSnapshot(cmd *cobra.Command, path, user string, diary *sigaedu.Diary) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		fatal("failed to open db", err)
	}
	defer database.Close()
	_, err = database.Exec(dsdb.Schema)
	if err != nil {
		fatal("failed to apply db schema", err)
	}

	courses := diary.Courses()
	snapshots := make([]diarystore.CourseSnapshot, len(courses))
	for i, course := range courses {
		snapshots[i] = diarystore.CourseSnapshot{
			Course:       course.Name,
			FinalAverage: course.FinalAverage,
			Status:       course.Status,
		}
	}

	store := diarystore.NewStore(database)
	err = store.Push(cmd.Context(), diarystore.PushRequest{
		Time:    timezone.Now(),
		User:    user,
		Courses: snapshots,
	})
	if err != nil {
		fatal("failed to push snapshot", err)
	}
}

var diaryCmd = &cobra.Command{
	Use:   "diary --enrollment <id> --term <id> [--db <path/to/output.db>]",
	Short: "Fetches the grade report of a term and renders it.",
	Run: func(cmd *cobra.Command, args []string) {
		scraper, cfg := createScraper(cmd.Context())

		// the portal only accepts the term postback after the
		// enrollment has been advanced through
		_, err := scraper.ListTerms(cmd.Context(), *diaryEnrollment)
		if err != nil {
			fatal("failed to select enrollment", err)
		}

		diary, err := scraper.FetchDiary(cmd.Context(), *diaryTerm)
		if err != nil {
			fatal("failed to fetch diary", err)
		}

		courses := diary.Courses()
		slices.SortFunc(courses, func(a, b sigaedu.Course) int {
			return strings.Compare(a.Name, b.Name)
		})

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Disciplina", "Notas", "Médias", "Média final", "Situação"})
		for _, course := range courses {
			t.AppendRow(table.Row{
				course.Name,
				formatGrades(course),
				formatNormalized(course),
				fmt.Sprintf("%.1f", course.FinalAverage),
				course.Status,
			})
		}
		t.Render()

		if *diaryDb != "" {
			pushSnapshot(cmd, *diaryDb, cfg.Username, diary)
		}
	},
}
