package models

import (
	"fmt"
	"strings"
)

// Sport is one of the six supported leagues.
type Sport string

const (
	SportNBA   Sport = "NBA"
	SportNFL   Sport = "NFL"
	SportMLB   Sport = "MLB"
	SportNHL   Sport = "NHL"
	SportNCAAB Sport = "NCAAB"
	SportNCAAF Sport = "NCAAF"
)

// Sports lists every valid Sport in display order.
var Sports = []Sport{SportNBA, SportNFL, SportMLB, SportNHL, SportNCAAB, SportNCAAF}

// providerSports maps odds-provider league keys onto our leagues.
var providerSports = map[string]Sport{
	"basketball_nba":         SportNBA,
	"americanfootball_nfl":   SportNFL,
	"baseball_mlb":           SportMLB,
	"icehockey_nhl":          SportNHL,
	"basketball_ncaab":       SportNCAAB,
	"americanfootball_ncaaf": SportNCAAF,
}

// ParseSport accepts a league name ("nba", "NCAAF") or a provider key
// ("basketball_nba") and returns the matching Sport.
func ParseSport(s string) (Sport, error) {
	s = strings.TrimSpace(s)
	if sp, ok := providerSports[strings.ToLower(s)]; ok {
		return sp, nil
	}
	sp := Sport(strings.ToUpper(s))
	if sp.Valid() {
		return sp, nil
	}
	return "", fmt.Errorf("unknown sport %q", s)
}

// Valid reports whether s is one of the supported leagues.
func (s Sport) Valid() bool {
	for _, v := range Sports {
		if s == v {
			return true
		}
	}
	return false
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAssistant }

// Result is the settlement state of a pick.
type Result string

const (
	ResultWin     Result = "win"
	ResultLoss    Result = "loss"
	ResultPending Result = "pending"
)

func (r Result) Valid() bool {
	return r == ResultWin || r == ResultLoss || r == ResultPending
}

// Source records where a pick came from.
type Source string

const (
	SourceOddsAPI Source = "odds_api"
	SourceScraper Source = "scraper"
)

func (s Source) Valid() bool { return s == SourceOddsAPI || s == SourceScraper }

// Plan is a subscription tier.
type Plan string

const (
	PlanFree      Plan = "free"
	PlanBasic     Plan = "basic"
	PlanUnlimited Plan = "unlimited"
)

// SubscriptionStatus is the billing state of a subscription.
type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusInactive  SubscriptionStatus = "inactive"
	StatusCancelled SubscriptionStatus = "cancelled"
)
