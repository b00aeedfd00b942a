package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/pauljones0/shift-code-watcher/internal/models"
	"github.com/pauljones0/shift-code-watcher/internal/util"
	"github.com/pauljones0/shift-code-watcher/internal/validator"
)

type Scraper interface {
	ScrapeCodes(ctx context.Context) ([]models.CodeRecord, error)
}

type Client struct {
	fetcher Fetcher
	parser  *Parser
	pageURL string
}

func New(pageURL string, fetcher Fetcher, selectors SelectorConfig) (*Client, error) {
	parser, err := NewParser(selectors)
	if err != nil {
		return nil, err
	}
	return &Client{
		fetcher: fetcher,
		parser:  parser,
		pageURL: pageURL,
	}, nil
}

// ScrapeCodes fetches the configured page and extracts its code table.
// It returns *models.FetchError or *models.ParseError; partial results are
// never returned.
func (c *Client) ScrapeCodes(ctx context.Context) ([]models.CodeRecord, error) {
	slog.Info("Fetching SHiFT codes page", "url", c.pageURL)

	doc, err := c.fetcher.Fetch(ctx, c.pageURL)
	if err != nil {
		return nil, err
	}

	records, err := c.parser.Parse(doc)
	if err != nil {
		var parseErr *models.ParseError
		if errors.As(err, &parseErr) && parseErr.URL == "" {
			parseErr.URL = c.pageURL
		}
		return nil, err
	}

	seen := make(map[string]struct{}, len(records))
	duplicates := 0
	for _, r := range records {
		if _, ok := seen[r.Code]; ok {
			duplicates++
			continue
		}
		seen[r.Code] = struct{}{}
	}
	if duplicates > 0 {
		slog.Info("Page lists some codes more than once", "duplicates", duplicates)
	}
	slog.Info("Extracted codes from page", "rows", len(records), "unique", len(seen))

	return records, nil
}

// Parser turns a page into code records according to a SelectorConfig.
type Parser struct {
	selectors   SelectorConfig
	heading     *regexp.Regexp
	codePattern *regexp.Regexp
	validator   *validator.Validator
}

func NewParser(selectors SelectorConfig) (*Parser, error) {
	if err := selectors.Validate(); err != nil {
		return nil, err
	}

	p := &Parser{
		selectors: selectors,
		heading:   regexp.MustCompile("(?i)" + selectors.Heading.Pattern),
		validator: validator.New(),
	}
	if selectors.CodePattern != "" {
		p.codePattern = regexp.MustCompile(selectors.CodePattern)
	}
	return p, nil
}

// Parse locates the table that follows the configured heading and extracts
// one record per row that carries a code. Rows without a usable code are
// skipped; a missing heading or table is a *models.ParseError.
func (p *Parser) Parse(doc *goquery.Document) ([]models.CodeRecord, error) {
	table, err := p.locateTable(doc)
	if err != nil {
		return nil, err
	}

	cols := p.selectors.Columns
	records := []models.CodeRecord{}
	skipped := 0

	table.Find(p.selectors.Table.Row).Each(func(rowIndex int, row *goquery.Selection) {
		cells := row.Find(p.selectors.Table.Cell)
		if cells.Length() < p.selectors.Table.MinCells {
			// Header rows use <th> and land here too.
			return
		}

		code := p.extractCode(cells.Eq(cols.Code))
		if code == "" {
			skipped++
			slog.Debug("Skipping row without a code", "row", rowIndex)
			return
		}
		if p.codePattern != nil && !p.codePattern.MatchString(code) {
			skipped++
			slog.Debug("Skipping row with unrecognized code format", "row", rowIndex, "code", code)
			return
		}

		record := models.CodeRecord{
			Code:           code,
			Reward:         util.CleanText(cells.Eq(cols.Reward).Text()),
			Added:          util.CleanText(cells.Eq(cols.Added).Text()),
			Expiry:         util.CleanText(cells.Eq(cols.Expiry).Text()),
			SourceRowOrder: rowIndex,
		}
		if err := p.validator.ValidateStruct(record); err != nil {
			skipped++
			slog.Warn("Skipping invalid code row", "row", rowIndex, "error", err)
			return
		}
		records = append(records, record)
	})

	if skipped > 0 {
		slog.Info("Skipped table rows without a usable code", "skipped", skipped)
	}
	if len(records) == 0 {
		slog.Warn("Code table was found but contained no codes")
	}
	return records, nil
}

// locateTable walks the heading and table candidates in document order and
// returns the first table that follows a matching heading.
func (p *Parser) locateTable(doc *goquery.Document) (*goquery.Selection, error) {
	headingSel := p.selectors.Heading.Selector
	tableSel := p.selectors.Table.Selector

	var table *goquery.Selection
	headingFound := false

	doc.Find(headingSel + ", " + tableSel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !headingFound {
			if s.Is(headingSel) && p.heading.MatchString(util.CleanText(s.Text())) {
				headingFound = true
			}
			return true
		}
		if s.Is(tableSel) {
			table = s
			return false
		}
		return true
	})

	if !headingFound {
		return nil, &models.ParseError{Reason: fmt.Sprintf("heading matching %q not found", p.selectors.Heading.Pattern)}
	}
	if table == nil {
		return nil, &models.ParseError{Reason: "no code table after the heading"}
	}
	return table, nil
}

func (p *Parser) extractCode(cell *goquery.Selection) string {
	if p.selectors.Table.CodeElement != "" {
		if el := cell.Find(p.selectors.Table.CodeElement).First(); el.Length() > 0 {
			return models.NormalizeCode(el.Text())
		}
	}
	return models.NormalizeCode(cell.Text())
}
