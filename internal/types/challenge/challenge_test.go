package challenge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	assert.True(t, ParseTarget("ALL").IsAll())
	assert.True(t, ParseTarget("all").IsAll())
	assert.True(t, ParseTarget("").IsAll())

	target := ParseTarget("TikTok")
	assert.False(t, target.IsAll())
	app, ok := target.App()
	assert.True(t, ok)
	assert.Equal(t, "TikTok", app)
}

func TestTargetMatches(t *testing.T) {
	tiktok := AppTarget("TikTok")
	assert.True(t, tiktok.Matches("TikTok"))
	assert.False(t, tiktok.Matches("Instagram"))
	assert.False(t, tiktok.Matches("Total"))

	all := AllApps()
	assert.True(t, all.Matches("TikTok"))
	assert.True(t, all.Matches("Instagram"))
	// The device-wide pseudo row would double count what the per-app rows
	// already cover.
	assert.False(t, all.Matches("Total"))

	// A challenge can target the pseudo app explicitly.
	total := AppTarget("Total")
	assert.True(t, total.Matches("Total"))
	assert.False(t, total.Matches("TikTok"))
}

func TestTargetJSON(t *testing.T) {
	out, err := json.Marshal(AllApps())
	require.NoError(t, err)
	assert.Equal(t, `"ALL"`, string(out))

	out, err = json.Marshal(AppTarget("TikTok"))
	require.NoError(t, err)
	assert.Equal(t, `"TikTok"`, string(out))

	var target Target
	require.NoError(t, json.Unmarshal([]byte(`"ALL"`), &target))
	assert.True(t, target.IsAll())
	require.NoError(t, json.Unmarshal([]byte(`"Instagram"`), &target))
	assert.Equal(t, "Instagram", target.String())
}

func TestEffectiveStatus(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, time.June, d, 0, 0, 0, 0, time.UTC) }

	c := &Challenge{Status: StatusUpcoming, StartDate: day(10), EndDate: day(16)}

	assert.Equal(t, StatusUpcoming, c.EffectiveStatus(day(9)))
	assert.Equal(t, StatusActive, c.EffectiveStatus(day(10)))
	assert.Equal(t, StatusActive, c.EffectiveStatus(day(16)))
	// Past the window it reads as completed even before finalization has
	// flipped the stored column, so a failed sweep never shows an expired
	// challenge as active.
	assert.Equal(t, StatusCompleted, c.EffectiveStatus(day(17)))

	c.Status = StatusCompleted
	assert.Equal(t, StatusCompleted, c.EffectiveStatus(day(12)))

	c.Status = StatusDeleted
	assert.Equal(t, StatusDeleted, c.EffectiveStatus(day(12)))
}

func TestDateOf(t *testing.T) {
	ts := time.Date(2026, time.June, 10, 17, 45, 3, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC), DateOf(ts))
}
