package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSport(t *testing.T) {
	tests := map[string]Sport{
		"nba":                    SportNBA,
		" NCAAF ":                SportNCAAF,
		"basketball_nba":         SportNBA,
		"americanfootball_nfl":   SportNFL,
		"baseball_mlb":           SportMLB,
		"icehockey_nhl":          SportNHL,
		"basketball_ncaab":       SportNCAAB,
		"americanfootball_ncaaf": SportNCAAF,
	}
	for in, want := range tests {
		got, err := ParseSport(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSport("soccer_epl")
	assert.Error(t, err)
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, ResultPending.Valid())
	assert.False(t, Result("push").Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("system").Valid())
	assert.True(t, SourceScraper.Valid())
	assert.False(t, Source("manual").Valid())
}

func TestSnapshotEvent(t *testing.T) {
	o := OddsSnapshot{HomeTeam: "Lakers", AwayTeam: "Warriors"}
	assert.Equal(t, "Lakers vs Warriors", o.Event())
}
