package services

import (
	"fmt"

	"duelytics-server/models"
)

// Tier transition types.
const (
	TransitionNone      = "none"
	TransitionPromotion = "promotion"
	TransitionDemotion  = "demotion"
)

// TierTransition describes the zero-or-one tier change a ladder duel
// produced, in the shape the client renders.
type TierTransition struct {
	Type     string `json:"type"`
	FromTier string `json:"from_tier,omitempty"`
	ToTier   string `json:"to_tier,omitempty"`
	Message  string `json:"message,omitempty"`
}

func noTransition() *TierTransition {
	return &TierTransition{Type: TransitionNone}
}

// ApplyTierProgression checks current net wins against the tier table and
// mutates stats in place when a boundary was crossed. tiers must be the
// full ladder ordered by sort_order ascending. Net wins move by exactly
// ±1 per duel, so at most one boundary can be crossed per call.
//
// Promotion moves to the next tier and resets net wins to zero; at the
// top tier net wins simply keep accumulating. Demotion enters the lower
// tier from the top (one win short of promoting straight back); tiers
// with CanDemoteFrom false clamp net wins at zero instead.
func ApplyTierProgression(tiers []models.LadderTier, stats *models.PlayerSessionStats) (*TierTransition, error) {
	if stats.CurrentTierID == nil {
		return nil, NewStateError("ladder stats have no current tier")
	}

	idx := -1
	for i := range tiers {
		if tiers[i].ID == *stats.CurrentTierID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, NewStateError("current tier is not in the ladder tier table")
	}
	current := tiers[idx]

	switch {
	case stats.CurrentNetWins >= current.WinsRequired:
		if idx == len(tiers)-1 {
			// Already at the top of the ladder.
			return noTransition(), nil
		}
		next := tiers[idx+1]
		stats.CurrentTierID = &next.ID
		stats.CurrentNetWins = 0
		return &TierTransition{
			Type:     TransitionPromotion,
			FromTier: current.TierName,
			ToTier:   next.TierName,
			Message:  fmt.Sprintf("Promoted to %s!", next.TierName),
		}, nil

	case stats.CurrentNetWins < 0:
		if !current.CanDemoteFrom || idx == 0 {
			// Floor protection: no demotion from this tier.
			stats.CurrentNetWins = 0
			return noTransition(), nil
		}
		lower := tiers[idx-1]
		stats.CurrentTierID = &lower.ID
		stats.CurrentNetWins = lower.WinsRequired - 1
		return &TierTransition{
			Type:     TransitionDemotion,
			FromTier: current.TierName,
			ToTier:   lower.TierName,
			Message:  fmt.Sprintf("Demoted to %s", lower.TierName),
		}, nil

	default:
		return noTransition(), nil
	}
}
