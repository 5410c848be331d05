package ingestion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/internal/analyzer"
	"github.com/gambia-creative/assessment/pkg/logger"
)

var (
	whitespace   = regexp.MustCompile(`\s+`)
	leadingFloat = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

// ExtractOptions describes where reviews live on a page. An empty
// ReviewSelector treats the whole page as marketing copy.
type ExtractOptions struct {
	ReviewSelector string
	// RatingAttr names an attribute holding the review rating, on the review
	// element itself or on any descendant.
	RatingAttr string
	// RatingScale is the maximum of the page's rating scale; ratings are
	// rescaled onto 1..5. Zero means the page already uses 1..5.
	RatingScale float64
	Language    string
}

// Page is the text extracted from one HTML document.
type Page struct {
	URL       string              `json:"url,omitempty"`
	Title     string              `json:"title"`
	Language  string              `json:"language,omitempty"`
	Marketing *analyzer.TextUnit  `json:"marketing,omitempty"`
	Reviews   []analyzer.TextUnit `json:"reviews"`
}

// Units returns the marketing copy, when present, followed by the reviews.
func (p *Page) Units() []analyzer.TextUnit {
	units := make([]analyzer.TextUnit, 0, len(p.Reviews)+1)
	if p.Marketing != nil {
		units = append(units, *p.Marketing)
	}
	return append(units, p.Reviews...)
}

type Processor struct {
	defaults ExtractOptions
}

func NewProcessor(defaults ExtractOptions) *Processor {
	return &Processor{defaults: defaults}
}

func (p *Processor) merge(opts ExtractOptions) ExtractOptions {
	if opts.ReviewSelector == "" {
		opts.ReviewSelector = p.defaults.ReviewSelector
	}
	if opts.RatingAttr == "" {
		opts.RatingAttr = p.defaults.RatingAttr
	}
	if opts.RatingScale == 0 {
		opts.RatingScale = p.defaults.RatingScale
	}
	if opts.Language == "" {
		opts.Language = p.defaults.Language
	}
	return opts
}

// ExtractTextUnits turns an HTML page into text units: one per review element
// and one for the remaining page copy.
func (p *Processor) ExtractTextUnits(html string, opts ExtractOptions) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	opts = p.merge(opts)

	page := &Page{
		Title:    extractTitle(doc),
		Language: opts.Language,
		Reviews:  []analyzer.TextUnit{},
	}
	if page.Language == "" {
		page.Language, _ = doc.Find("html").Attr("lang")
	}

	doc.Find("script, style, noscript, nav, footer, header, aside, form").Remove()

	if opts.ReviewSelector != "" {
		doc.Find(opts.ReviewSelector).Each(func(i int, s *goquery.Selection) {
			text := cleanText(s.Text())
			rating := extractRating(s, opts.RatingAttr, opts.RatingScale)
			if text == "" && rating == nil {
				return
			}
			lang, ok := s.Attr("lang")
			if !ok {
				lang = page.Language
			}
			page.Reviews = append(page.Reviews, analyzer.NewTextUnit(text, rating, lang, extractDate(s)))
		})
		doc.Find(opts.ReviewSelector).Remove()
	}

	if body := cleanText(doc.Find("body").Text()); body != "" {
		unit := analyzer.NewTextUnit(body, nil, page.Language, nil)
		page.Marketing = &unit
	}

	logger.Debug("Page extracted",
		zap.String("title", page.Title),
		zap.Int("reviews", len(page.Reviews)),
		zap.Bool("marketing", page.Marketing != nil),
	)

	return page, nil
}

func cleanText(text string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

func extractTitle(doc *goquery.Document) string {
	title := cleanText(doc.Find("title").First().Text())
	if title == "" {
		title = cleanText(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = "Untitled"
	}
	return title
}

// extractRating reads a numeric rating such as "4", "4.5" or "8/10" and maps
// it onto 1..5. Unreadable values yield nil.
func extractRating(s *goquery.Selection, attr string, scale float64) *int {
	if attr == "" {
		return nil
	}

	raw, ok := s.Attr(attr)
	if !ok {
		raw, ok = s.Find("[" + attr + "]").First().Attr(attr)
	}
	if !ok {
		return nil
	}

	num := leadingFloat.FindString(raw)
	if num == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(num, ",", ".", 1), 64)
	if err != nil {
		return nil
	}

	if scale > 0 && scale != analyzer.MaxRating {
		v = v / scale * analyzer.MaxRating
	}

	r := int(v + 0.5)
	if r < analyzer.MinRating {
		r = analyzer.MinRating
	}
	if r > analyzer.MaxRating {
		r = analyzer.MaxRating
	}
	return &r
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", "2 January 2006", "January 2, 2006"}

func extractDate(s *goquery.Selection) *time.Time {
	node := s.Find("time").First()
	raw, ok := node.Attr("datetime")
	if !ok {
		raw = node.Text()
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
