package sigaedu

import (
	"context"
	"slices"
	"strings"
	"testing"

	"sigaedu-backend/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 {
	return &v
}

func newTestScraper(t *testing.T, portal *fakePortal, baseUrl string) Scraper {
	session := newTestSession(t, baseUrl)
	err := session.Login(context.Background(), portal.username, portal.password)
	if err != nil {
		t.Fatal(err)
	}
	return NewScraper(session)
}

func TestListEnrollments(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/sigaedu")
	defer cleanup()
	ctx := context.Background()

	portal, server := newFakePortal(t)
	portal.enrollmentOptions = `
		<option value="0">Selecione um número de matrícula!</option>
		<option value="101">2019.1.00101-0</option>
		<option value="102">2020.1.00102-9</option>
		<option value="102">2020.1.00102-9 (reaberta)</option>`

	scraper := newTestScraper(t, portal, server.URL)
	enrollments, err := scraper.ListEnrollments(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// the placeholder is excluded, the duplicate id keeps its last
	// occurrence
	require.Equal(t, map[int]string{
		101: "2019.1.00101-0",
		102: "2020.1.00102-9 (reaberta)",
	}, enrollments)
}

func TestListEnrollmentsNonNumericValue(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/sigaedu")
	defer cleanup()
	ctx := context.Background()

	portal, server := newFakePortal(t)
	portal.enrollmentOptions = `
		<option value="0">Selecione um número de matrícula!</option>
		<option value="101">2019.1.00101-0</option>
		<option value="abc">2020.1.00102-9</option>`

	// a value that does not parse as an id means the markup no longer
	// matches, the whole listing fails instead of silently shrinking
	scraper := newTestScraper(t, portal, server.URL)
	_, err := scraper.ListEnrollments(ctx)
	require.ErrorIs(t, err, ErrMissingSelectionData)
	require.Contains(t, err.Error(), `"abc"`)
}

func TestListTerms(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/sigaedu")
	defer cleanup()
	ctx := context.Background()

	portal, server := newFakePortal(t)
	portal.termOptions = `
		<option value="0">Selecione um período letivo</option>
		<option value="11">2020.1</option>
		<option value="12">2020.2</option>`

	scraper := newTestScraper(t, portal, server.URL)
	terms, err := scraper.ListTerms(ctx, 101)
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, map[int]string{
		11: "2020.1",
		12: "2020.2",
	}, terms)
}

func TestFetchDiary(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/sigaedu")
	defer cleanup()
	ctx := context.Background()

	portal, server := newFakePortal(t)
	portal.diaryRows = `
		<tr>
			<td>0123 - 2020 - Matemática Aplicada.</td>
			<td>T01</td>
			<td><div><div>1 - 1 Bimestre - Média: 8.5</div><div>2 - 2 Bimestre - Média: 7.0</div></div></td>
			<td><label> 7.8 </label></td>
			<td>80</td>
			<td> Aprovado </td>
		</tr>
		<tr>
			<td>0456 - 2020 - Educação Física,</td>
			<td>T02</td>
			<td><div><div>1º trimestre - Média: 6.0</div><div>2º trimestre - Média: 8.0</div><div>Recuperação</div></div></td>
			<td><label>7.2</label></td>
			<td>92</td>
			<td>Cursando</td>
		</tr>`

	scraper := newTestScraper(t, portal, server.URL)
	diary, err := scraper.FetchDiary(ctx, 11)
	if err != nil {
		t.Fatal(err)
	}

	courses := diary.Courses()
	slices.SortFunc(courses, func(a, b Course) int {
		return strings.Compare(a.Name, b.Name)
	})

	expected := []Course{
		{
			Name: "Educação Física",
			Grades: []PeriodGrade{
				{Label: "1º trimestre", Value: fptr(6.0)},
				{Label: "2º trimestre", Value: fptr(8.0)},
				{Label: "Recuperação", Value: nil},
			},
			FinalAverage: 7.2,
			Status:       "Cursando",
		},
		{
			Name: "Matemática Aplicada",
			Grades: []PeriodGrade{
				{Label: "1 Bimestre", Value: fptr(8.5)},
				{Label: "2 Bimestre", Value: fptr(7.0)},
			},
			FinalAverage: 7.8,
			Status:       "Aprovado",
		},
	}
	if diff := cmp.Diff(expected, courses); diff != "" {
		t.Fatalf("unexpected diary (-want +got):\n%s", diff)
	}
}

func TestFetchDiaryIgnoresDeeperMarkup(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/sigaedu")
	defer cleanup()
	ctx := context.Background()

	portal, server := newFakePortal(t)
	portal.diaryRows = `
		<tr>
			<td>0456 - 2020 - Educação Física,</td>
			<td>T02</td>
			<td><div><div>1º trimestre - Média: 6.0<div>Lançado em 12/05/2020</div></div><div>2º trimestre - Média: 8.0</div></div></td>
			<td><label>7.2</label></td>
			<td>92</td>
			<td>Cursando</td>
		</tr>`

	scraper := newTestScraper(t, portal, server.URL)
	diary, err := scraper.FetchDiary(ctx, 11)
	if err != nil {
		t.Fatal(err)
	}

	// only the second-level divs carry grades, anything nested deeper
	// must not leak into the labels or show up as extra entries
	course, ok := diary.Course("Educação Física")
	require.True(t, ok)
	require.Equal(t, []PeriodGrade{
		{Label: "1º trimestre", Value: fptr(6.0)},
		{Label: "2º trimestre", Value: fptr(8.0)},
	}, course.Grades)
}

func TestFetchDiaryEmptyTable(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/sigaedu")
	defer cleanup()
	ctx := context.Background()

	portal, server := newFakePortal(t)
	portal.diaryRows = ""

	scraper := newTestScraper(t, portal, server.URL)
	diary, err := scraper.FetchDiary(ctx, 11)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 0, diary.Len())
}

func TestMissingSelectionData(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/sigaedu")
	defer cleanup()
	ctx := context.Background()

	portal, server := newFakePortal(t)
	portal.omitEnrollmentSelect = true

	scraper := newTestScraper(t, portal, server.URL)
	_, err := scraper.ListEnrollments(ctx)
	require.ErrorIs(t, err, ErrMissingSelectionData)
}

func TestPipelineRequiresLogin(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/sigaedu")
	defer cleanup()
	ctx := context.Background()

	_, server := newFakePortal(t)
	scraper := NewScraper(newTestSession(t, server.URL))

	_, err := scraper.ListTerms(ctx, 101)
	require.ErrorIs(t, err, ErrMissingSelectionData)

	_, err = scraper.FetchDiary(ctx, 11)
	require.ErrorIs(t, err, ErrMissingSelectionData)
}
