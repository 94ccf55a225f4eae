package services

import (
	"testing"

	"duelytics-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsAtTier(tierID string, netWins int) *models.PlayerSessionStats {
	return &models.PlayerSessionStats{CurrentTierID: &tierID, CurrentNetWins: netWins}
}

func TestTierProgressionPromotion(t *testing.T) {
	tiers := testLadderTiers()

	// Bronze 1 requires 3 wins; a player who just reached 3 promotes and
	// resets to zero.
	stats := statsAtTier("tier-bronze-1", 3)
	transition, err := ApplyTierProgression(tiers, stats)
	require.NoError(t, err)

	assert.Equal(t, TransitionPromotion, transition.Type)
	assert.Equal(t, "Bronze 1", transition.FromTier)
	assert.Equal(t, "Silver 5", transition.ToTier)
	assert.Equal(t, "tier-silver-5", *stats.CurrentTierID)
	assert.Equal(t, 0, stats.CurrentNetWins)
}

func TestTierProgressionNoChangeBelowThreshold(t *testing.T) {
	tiers := testLadderTiers()

	for netWins := 0; netWins < 3; netWins++ {
		stats := statsAtTier("tier-bronze-1", netWins)
		transition, err := ApplyTierProgression(tiers, stats)
		require.NoError(t, err)
		assert.Equal(t, TransitionNone, transition.Type)
		assert.Equal(t, "tier-bronze-1", *stats.CurrentTierID)
		assert.Equal(t, netWins, stats.CurrentNetWins)
	}
}

func TestTierProgressionFloorClamp(t *testing.T) {
	tiers := testLadderTiers()

	// Rookie is floor-protected: a loss at zero clamps instead of demoting.
	stats := statsAtTier("tier-rookie", -1)
	transition, err := ApplyTierProgression(tiers, stats)
	require.NoError(t, err)

	assert.Equal(t, TransitionNone, transition.Type)
	assert.Equal(t, "tier-rookie", *stats.CurrentTierID)
	assert.Equal(t, 0, stats.CurrentNetWins)
}

func TestTierProgressionDemotionEntersFromTheTop(t *testing.T) {
	tiers := testLadderTiers()

	// Falling out of Silver 5 lands one win short of Bronze 1's threshold.
	stats := statsAtTier("tier-silver-5", -1)
	transition, err := ApplyTierProgression(tiers, stats)
	require.NoError(t, err)

	assert.Equal(t, TransitionDemotion, transition.Type)
	assert.Equal(t, "Silver 5", transition.FromTier)
	assert.Equal(t, "Bronze 1", transition.ToTier)
	assert.Equal(t, "tier-bronze-1", *stats.CurrentTierID)
	assert.Equal(t, 2, stats.CurrentNetWins)
}

func TestTierProgressionTopTierCap(t *testing.T) {
	tiers := testLadderTiers()

	// The top tier has nowhere to promote to: net wins keep accumulating.
	stats := statsAtTier("tier-silver-5", 3)
	transition, err := ApplyTierProgression(tiers, stats)
	require.NoError(t, err)

	assert.Equal(t, TransitionNone, transition.Type)
	assert.Equal(t, "tier-silver-5", *stats.CurrentTierID)
	assert.Equal(t, 3, stats.CurrentNetWins)
}

func TestTierProgressionInvariantAfterProcessing(t *testing.T) {
	tiers := testLadderTiers()

	cases := []struct {
		tierID  string
		netWins int
	}{
		{"tier-rookie", -1},
		{"tier-rookie", 2},
		{"tier-bronze-1", -1},
		{"tier-bronze-1", 3},
		{"tier-silver-5", -1},
	}
	for _, tc := range cases {
		stats := statsAtTier(tc.tierID, tc.netWins)
		_, err := ApplyTierProgression(tiers, stats)
		require.NoError(t, err)

		var current models.LadderTier
		for _, tier := range tiers {
			if tier.ID == *stats.CurrentTierID {
				current = tier
			}
		}
		assert.GreaterOrEqual(t, stats.CurrentNetWins, 0)
		assert.Less(t, stats.CurrentNetWins, current.WinsRequired)
	}
}

func TestTierProgressionUnknownTier(t *testing.T) {
	tiers := testLadderTiers()

	t.Run("missing tier id", func(t *testing.T) {
		stats := &models.PlayerSessionStats{CurrentNetWins: 1}
		_, err := ApplyTierProgression(tiers, stats)
		var appErr *AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, KindState, appErr.Kind)
	})
	t.Run("tier not in table", func(t *testing.T) {
		stats := statsAtTier("tier-unobtainium", 1)
		_, err := ApplyTierProgression(tiers, stats)
		var appErr *AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, KindState, appErr.Kind)
	})
}
