// Package picks turns assistant replies into structured betting picks.
package picks

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/padraicbc/wagergenie/models"
)

// Pick is the recommendation surfaced to the chat client. Zero fields mean
// the reply did not state them.
type Pick struct {
	Event      string `json:"event"`
	Prediction string `json:"prediction"`
	Odds       string `json:"odds"`
	Confidence int    `json:"confidence"`
	Sport      string `json:"sport,omitempty"`
}

var (
	eventRe      = regexp.MustCompile(`Event: (.*?)(?:\n|$)`)
	predictionRe = regexp.MustCompile(`Prediction: (.*?)(?:\n|$)`)
	oddsRe       = regexp.MustCompile(`Odds: (.*?)(?:\n|$)`)
	confidenceRe = regexp.MustCompile(`Confidence: (\d+)%`)

	// sportRe only labels a stored pick. It never makes a pick present.
	sportRe = regexp.MustCompile(`Sport: (.*?)(?:\n|$)`)
)

// Extract applies the four line patterns to reply. It returns nil unless at
// least one of Event, Prediction, Odds or Confidence was found with a value.
func Extract(reply string) *Pick {
	p := &Pick{
		Event:      firstGroup(eventRe, reply),
		Prediction: firstGroup(predictionRe, reply),
		Odds:       firstGroup(oddsRe, reply),
		Sport:      firstGroup(sportRe, reply),
	}
	found := p.Event != "" || p.Prediction != "" || p.Odds != ""

	if c := firstGroup(confidenceRe, reply); c != "" {
		if n, err := strconv.Atoi(c); err == nil {
			p.Confidence = n
			found = true
		}
	}

	if !found {
		return nil
	}
	return p
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Model converts p into a storable pick for userID. ok is false when the
// sport is unknown or the event or prediction is missing.
func (p *Pick) Model(userID int64, source models.Source) (pick *models.Pick, ok bool) {
	if p == nil || p.Event == "" || p.Prediction == "" {
		return nil, false
	}
	sport, err := models.ParseSport(p.Sport)
	if err != nil {
		return nil, false
	}

	out := &models.Pick{
		UserID:     userID,
		Sport:      sport,
		Event:      p.Event,
		Prediction: p.Prediction,
		Result:     models.ResultPending,
		Source:     source,
	}
	if odds, ok := ParseOdds(p.Odds); ok {
		out.Odds = &odds
	}
	if p.Confidence > 0 {
		c := float64(p.Confidence)
		out.Confidence = &c
	}
	return out, true
}

// ParseOdds reads American odds such as "+150", "-110" or "EVEN".
func ParseOdds(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "even") || strings.EqualFold(s, "ev") {
		return 100, true
	}
	// Replies often append the book, e.g. "-110 (DraftKings)".
	if i := strings.IndexAny(s, " ("); i > 0 {
		s = s[:i]
	}
	f, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
