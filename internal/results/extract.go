package results

import (
	"fmt"
	"regexp"
	"resultfetcher/internal/components/assert"
	"resultfetcher/internal/components/telemetry"
	"resultfetcher/pkg/htmlutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_extract = "extractor.extract"
)

const (
	resultTableSelector = "table.table-bordered"
	errorBannerSelector = "div.alert-danger"
	headingSelector     = "h1, h2, h3, h4, h5, h6"

	subjectColumn = 0
	gradeColumn   = 4
	minColumns    = 5
)

var nameRegex = regexp.MustCompile(`Name\s*:\s*([^,]+)`)

// Extract parses a results page into a ResultSet.
//
// A page without any result table yields a *NoResultsError, the returned
// ResultSet still carries the student name if one was found.
func Extract(page string, tel telemetry.API) (ResultSet, error) {
	assert.NotNil(tel)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		tel.ReportBroken(report_extract, fmt.Errorf("parse html: %w", err))
		return ResultSet{}, err
	}
	return ExtractDocument(doc, tel), extractError(doc, tel)
}

// ExtractDocument collects the student name and every valid result row of doc.
func ExtractDocument(doc *goquery.Document, tel telemetry.API) ResultSet {
	var out ResultSet
	out.Name = studentName(doc)
	if out.Name != "" {
		tel.ReportDebug("found student name", out.Name)
	}

	tables := doc.Find(resultTableSelector)
	tel.ReportDebug("found result tables", tables.Length())

	tables.Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := row.Find("td")
			if cells.Length() < minColumns {
				return
			}
			label := htmlutil.Text(cells.Eq(subjectColumn))
			grade := htmlutil.Text(cells.Eq(gradeColumn))
			out.Set(label, grade)
		})
	})

	return out
}

func extractError(doc *goquery.Document, tel telemetry.API) error {
	if doc.Find(resultTableSelector).Length() > 0 {
		return nil
	}
	reason := htmlutil.Text(doc.Find(errorBannerSelector).First())
	tel.ReportWarning(report_extract, "no result tables", reason)
	return &NoResultsError{Reason: reason}
}

func studentName(doc *goquery.Document) string {
	var name string
	doc.Find(headingSelector).EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		groups := nameRegex.FindStringSubmatch(htmlutil.Text(heading))
		if len(groups) < 2 {
			return true
		}
		name = strings.TrimSpace(groups[1])
		return name == ""
	})
	return name
}
