package models

import "fmt"

// LadderTier is one named rank on the ladder. Tiers are static reference
// data: seeded once, read-only at request time. SortOrder is a strictly
// increasing total order with the floor tier at 0.
type LadderTier struct {
	ID           string `json:"id" gorm:"primaryKey"`
	TierName     string `json:"tier_name" gorm:"uniqueIndex;not null"`
	WinsRequired int    `json:"wins_required" gorm:"not null"`
	// CanDemoteFrom is false on floor-protected tiers: dropping below zero
	// net wins there clamps instead of demoting.
	CanDemoteFrom bool `json:"can_demote_from" gorm:"default:true"`
	SortOrder     int  `json:"sort_order" gorm:"uniqueIndex;not null"`
}

// DefaultLadderTiers builds the stock ladder used when the tier table is
// empty at boot: Rookie 2 up through Master 1. Rookie and Bronze are
// floor-protected. IDs are assigned by the caller.
func DefaultLadderTiers() []LadderTier {
	tiers := []LadderTier{
		{TierName: "Rookie 2", WinsRequired: 1, CanDemoteFrom: false},
		{TierName: "Rookie 1", WinsRequired: 2, CanDemoteFrom: false},
	}
	for _, rank := range []string{"Bronze", "Silver", "Gold", "Platinum", "Diamond", "Master"} {
		for sub := 5; sub >= 1; sub-- {
			tiers = append(tiers, LadderTier{
				TierName:      fmt.Sprintf("%s %d", rank, sub),
				WinsRequired:  3,
				CanDemoteFrom: rank != "Bronze",
			})
		}
	}
	for i := range tiers {
		tiers[i].SortOrder = i
	}
	return tiers
}
