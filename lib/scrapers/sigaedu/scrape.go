package sigaedu

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"sigaedu-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrMissingSelectionData signals that a dropdown or table the
// pipeline depends on is absent from a response. That means an
// unauthenticated session, a broken step ordering, or a markup
// change on the portal side. Never retried.
var ErrMissingSelectionData = fmt.Errorf("expected selection data is missing from the response")

const (
	enrollmentsPage = "/sigaept-edu-web-v1/pages/inicial.jsf"
	termsPage       = "/sigaept-edu-web-v1/pages/AlunoVisualizarNotas/AlunoVisualizarMatricula.jsf"
	diaryPage       = "/sigaept-edu-web-v1/pages/AlunoVisualizarNotas/AlunoVisualizarInformacoesDiario.jsf"

	enrollmentSelectId = "busca:matriculas"
	termSelectId       = "busca:periodoLetivo"
	diaryTableBodyId   = "busca:classes:tb"

	enrollmentPlaceholder = "Selecione um número de matrícula!"
	termPlaceholder       = "Selecione um período letivo"
)

// the scraped course name carries a fixed-width numeric prefix and a
// trailing punctuation character in the raw cell text
const courseNamePrefixLen = 14

// Scraper walks the three dependent postbacks of the grade report:
// enrollments, then terms for one enrollment, then the diary for one
// term. Every stage goes through the session so the viewstate chain
// stays intact.
type Scraper struct {
	Session *Session
}

func NewScraper(session *Session) Scraper {
	return Scraper{Session: session}
}

// ListEnrollments clicks through the sidebar menu entry that reveals
// the enrollment chooser and returns id to label pairs from its
// dropdown.
func (s Scraper) ListEnrollments(ctx context.Context) (map[int]string, error) {
	ctx, span := tracer.Start(ctx, "scraper:ListEnrollments")
	defer span.End()

	res, err := s.Session.Post(ctx, enrollmentsPage, map[string]string{
		"menuLateralSiga": "menuLateralSiga",
		"menuLateralSiga:listaMenu:1:listaCDUFilho:0:_": "menuLateralSiga:listaMenu:1:listaCDUFilho:0:_",
	})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}

	return s.selectionIds(ctx, doc, enrollmentSelectId, enrollmentPlaceholder)
}

// ListTerms submits the chosen enrollment and returns the id to
// label pairs of the term dropdown.
func (s Scraper) ListTerms(ctx context.Context, enrollmentId int) (map[int]string, error) {
	ctx, span := tracer.Start(ctx, "scraper:ListTerms")
	defer span.End()
	span.SetAttributes(attribute.Int("enrollment_id", enrollmentId))

	res, err := s.Session.Post(ctx, termsPage, map[string]string{
		"busca":            "busca",
		"busca:matriculas": strconv.Itoa(enrollmentId),
		"busca:j_id73":     "Avançar",
	})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}

	return s.selectionIds(ctx, doc, termSelectId, termPlaceholder)
}

// FetchDiary submits the chosen term through the AJAX postback that
// renders the grade table and parses every row into a Course. A
// table with zero rows yields an empty Diary.
func (s Scraper) FetchDiary(ctx context.Context, termId int) (*Diary, error) {
	ctx, span := tracer.Start(ctx, "scraper:FetchDiary")
	defer span.End()
	span.SetAttributes(attribute.Int("term_id", termId))

	res, err := s.Session.Post(ctx, diaryPage, map[string]string{
		"AJAXREQUEST":             "_viewRoot",
		"busca":                   "busca",
		"busca:periodoLetivo":     strconv.Itoa(termId),
		"busca:classes:j_id78fsp": "",
		"busca:classes:j_id81fsp": "",
		"busca:j_id74":            "busca:j_id74",
	})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}

	tbody := doc.Find(fmt.Sprintf("tbody[id='%s']", diaryTableBodyId))
	if tbody.Length() == 0 {
		err := fmt.Errorf("%w: table body %q", ErrMissingSelectionData, diaryTableBodyId)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	diary := NewDiary()
	var rowErr error
	tbody.ChildrenFiltered("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		course, err := parseDiaryRow(row)
		if err != nil {
			rowErr = fmt.Errorf("row %d: %w", i, err)
			return false
		}
		diary.Add(course)
		return true
	})
	if rowErr != nil {
		span.SetStatus(codes.Error, rowErr.Error())
		return nil, rowErr
	}

	slog.DebugContext(ctx, "fetched diary", "courses", diary.Len())
	return diary, nil
}

func parseDiaryRow(row *goquery.Selection) (Course, error) {
	cells := row.ChildrenFiltered("td")
	if cells.Length() < 6 {
		return Course{}, fmt.Errorf("%w: diary row has %d cells", ErrMissingSelectionData, cells.Length())
	}

	// column 1: course name behind a numeric prefix and one
	// trailing character
	rawName := []rune(htmlutil.DirectText(cells.Get(0)))
	if len(rawName) <= courseNamePrefixLen {
		return Course{}, fmt.Errorf("%w: course name cell too short", ErrMissingSelectionData)
	}
	name := string(rawName[courseNamePrefixLen : len(rawName)-1])

	// column 3: one raw grade string per second-level div. only the
	// div's own text counts, so markup nested deeper (tooltips and the
	// like) stays out of the grade strings.
	var rawGrades []string
	cells.Eq(2).ChildrenFiltered("div").ChildrenFiltered("div").Each(func(_ int, div *goquery.Selection) {
		text := strings.TrimSpace(htmlutil.DirectText(div.Get(0)))
		if text != "" {
			rawGrades = append(rawGrades, text)
		}
	})

	// column 4: final average inside a label
	rawAverage := strings.TrimSpace(cells.Eq(3).Find("label").First().Text())
	finalAverage, err := strconv.ParseFloat(rawAverage, 64)
	if err != nil {
		return Course{}, fmt.Errorf("%w: final average %q", ErrMissingSelectionData, rawAverage)
	}

	// column 6: status text
	status := strings.TrimSpace(htmlutil.DirectText(cells.Get(5)))

	return NewCourse(name, rawGrades, finalAverage, status), nil
}

// selectionIds turns the options of a dropdown into an id to label
// map, skipping the placeholder option by exact label match.
// Duplicate ids keep the last occurrence. A non-numeric option value
// breaks the markup contract, so the whole stage fails rather than
// returning a partial listing.
func (s Scraper) selectionIds(ctx context.Context, doc *goquery.Document, selectId, placeholder string) (map[int]string, error) {
	sel := doc.Find(fmt.Sprintf("select[id='%s']", selectId))
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: select %q", ErrMissingSelectionData, selectId)
	}

	listing := map[int]string{}
	for _, option := range htmlutil.SelectOptions(ctx, sel) {
		if option.Label == placeholder {
			continue
		}
		id, err := strconv.Atoi(option.Value)
		if err != nil {
			return nil, fmt.Errorf(
				"%w: select %q has non-numeric option value %q",
				ErrMissingSelectionData, selectId, option.Value,
			)
		}
		listing[id] = option.Label
	}

	return listing, nil
}
