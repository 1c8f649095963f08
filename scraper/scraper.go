// Package scraper extracts expert picks from a picks page.
package scraper

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// Selectors used to find picks on the page. A layout change makes Parse
// return nothing rather than fail.
const (
	CardSelector       = ".pick-card"
	EventSelector      = ".event-name"
	PredictionSelector = ".prediction"
	SportSelector      = ".sport"
	ConfidenceSelector = ".confidence"
	AnalysisSelector   = ".analysis"
)

// Card is one pick as it appeared on the page.
type Card struct {
	Sport      string
	Event      string
	Prediction string
	Confidence string
	Analysis   string
	// HTML is the card's markup with scripts, styles and handlers removed.
	HTML string
}

// textPolicy drops every tag, and with it the contents of script and style
// elements.
var textPolicy = bluemonday.StrictPolicy()

// Scraper fetches a single fixed page.
type Scraper struct {
	url        string
	httpClient *http.Client
	policy     *bluemonday.Policy
}

// New returns a Scraper for pageURL.
func New(pageURL string, timeout time.Duration) *Scraper {
	return &Scraper{
		url:        pageURL,
		httpClient: &http.Client{Timeout: timeout},
		policy:     bluemonday.UGCPolicy(),
	}
}

// URL is the page this scraper reads.
func (s *Scraper) URL() string { return s.url }

// Fetch downloads the page and parses it.
func (s *Scraper) Fetch(ctx context.Context) ([]Card, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "WagerGenie/1.0")
	req.Header.Set("Accept", "text/html")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: %s", s.url, resp.Status)
	}

	return parse(resp.Body, s.policy)
}

// Parse extracts cards from an HTML document. Cards missing an event or a
// prediction are skipped.
func Parse(r io.Reader) ([]Card, error) {
	return parse(r, bluemonday.UGCPolicy())
}

func parse(r io.Reader, policy *bluemonday.Policy) ([]Card, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	var cards []Card
	doc.Find(CardSelector).Each(func(_ int, sel *goquery.Selection) {
		event := text(sel.Find(EventSelector))
		prediction := text(sel.Find(PredictionSelector))
		if event == "" || prediction == "" {
			return
		}

		sport := text(sel.Find(SportSelector))
		if sport == "" {
			sport = strings.TrimSpace(sel.AttrOr("data-sport", ""))
		}

		raw, err := goquery.OuterHtml(sel)
		if err != nil {
			raw = ""
		}

		cards = append(cards, Card{
			Sport:      sport,
			Event:      event,
			Prediction: prediction,
			Confidence: text(sel.Find(ConfidenceSelector)),
			Analysis:   text(sel.Find(AnalysisSelector)),
			HTML:       strings.TrimSpace(policy.Sanitize(raw)),
		})
	})

	return cards, nil
}

// text returns the first match's plain text with whitespace collapsed.
func text(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	raw, err := goquery.OuterHtml(sel.First())
	if err != nil {
		return ""
	}
	plain := html.UnescapeString(textPolicy.Sanitize(raw))
	return strings.Join(strings.Fields(plain), " ")
}
