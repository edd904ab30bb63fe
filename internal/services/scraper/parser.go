package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// HTMLParser turns rendered page HTML into browser independent content.
type HTMLParser interface {
	Parse(htmlContent string) (*PageContent, error)
}

// PageContent is everything the extractors read from a horse page.
type PageContent struct {
	Title  string
	Tables []Table
	Pairs  []KeyValue
	Text   string
}

// Table is one HTML table in document order. Rows of nested tables belong
// to the nested table only.
type Table struct {
	ID   string
	Rows []Row
}

// Row is one table row. Header is set when every cell is a th element.
type Row struct {
	Cells  []Cell
	Header bool
}

// Texts returns the cell texts of the row.
func (r Row) Texts() []string {
	texts := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		texts[i] = c.Text
	}
	return texts
}

// KeyValue is a label element with class "key" and its adjacent "value" element.
type KeyValue struct {
	Key   string
	Value string
}

// GoqueryParser implements HTMLParser using goquery.
type GoqueryParser struct {
	logger *logrus.Logger
}

// NewGoqueryParser creates a new GoqueryParser instance.
func NewGoqueryParser(logger *logrus.Logger) *GoqueryParser {
	return &GoqueryParser{
		logger: logger,
	}
}

// Parse converts an HTML string to PageContent.
func (g *GoqueryParser) Parse(htmlContent string) (*PageContent, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return nil, fmt.Errorf("HTML content is empty")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		g.logger.WithError(err).Error("Failed to parse HTML content")
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	content := &PageContent{
		Title:  collapse(doc.Find("h1").First().Text()),
		Tables: extractTables(doc),
		Pairs:  extractPairs(doc),
		Text:   bodyText(doc),
	}

	g.logger.WithFields(logrus.Fields{
		"component": "parser",
		"operation": "parse",
		"tables":    len(content.Tables),
		"pairs":     len(content.Pairs),
	}).Debug("Successfully parsed HTML document")

	return content, nil
}

func extractTables(doc *goquery.Document) []Table {
	var tables []Table
	doc.Find("table").Each(func(_ int, t *goquery.Selection) {
		table := Table{ID: t.AttrOr("id", "")}
		t.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			if !tr.Closest("table").IsSelection(t) {
				return
			}
			cells := tr.ChildrenFiltered("td, th")
			if cells.Length() == 0 {
				return
			}
			row := Row{Header: cells.Length() == tr.ChildrenFiltered("th").Length()}
			cells.Each(func(_ int, cell *goquery.Selection) {
				row.Cells = append(row.Cells, Cell{
					Text: collapse(cell.Text()),
					Href: cell.Find("a[href]").First().AttrOr("href", ""),
				})
			})
			table.Rows = append(table.Rows, row)
		})
		tables = append(tables, table)
	})
	return tables
}

func extractPairs(doc *goquery.Document) []KeyValue {
	var pairs []KeyValue
	doc.Find(".key").Each(func(_ int, key *goquery.Selection) {
		value := key.NextAllFiltered(".value").First()
		if value.Length() == 0 {
			value = key.Parent().Find(".value").First()
		}
		if value.Length() == 0 {
			return
		}

		text := collapse(value.Find("a").First().Text())
		if text == "" {
			text = collapse(value.Text())
		}
		pairs = append(pairs, KeyValue{
			Key:   strings.TrimSuffix(collapse(key.Text()), ":"),
			Value: text,
		})
	})
	return pairs
}

// bodyText returns the visible text with one line per block element.
func bodyText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	body.Find("br").ReplaceWithHtml("\n")
	body.Find("p, div, li, tr, h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(body.Text(), "\n") {
		if line = collapse(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
