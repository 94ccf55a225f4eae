package services

import (
	"fmt"
	"math"

	"duelytics-server/models"
)

// ComputeDelta returns the signed point delta one duel applies to the
// player's running total. The returned value is already effective: for
// duelist cup it is clamped so the running total can never go negative,
// and the stats layer applies it verbatim without re-clamping.
//
// declaredMagnitude is the user-entered point amount. It is required for
// rated and duelist cup, ignored for ladder; its sign is always derived
// from result, never from the input. currentPoints is only read by
// duelist cup to compute the floor.
func ComputeDelta(mode, result string, declaredMagnitude *float64, currentPoints float64) (float64, error) {
	if result != models.ResultWin && result != models.ResultLoss {
		return 0, NewValidationError("result must be 'win' or 'loss'")
	}

	switch mode {
	case models.GameModeLadder:
		// Ladder tracks net wins: always exactly ±1.
		if result == models.ResultWin {
			return 1, nil
		}
		return -1, nil

	case models.GameModeRated:
		magnitude, err := requireMagnitude(declaredMagnitude)
		if err != nil {
			return 0, err
		}
		return applySign(result, magnitude), nil

	case models.GameModeDuelistCup:
		magnitude, err := requireMagnitude(declaredMagnitude)
		if err != nil {
			return 0, err
		}
		raw := applySign(result, magnitude)
		// Floor at zero: a loss that would drive points negative shrinks
		// to exactly the remaining balance.
		return math.Max(0, currentPoints+raw) - currentPoints, nil

	default:
		return 0, NewValidationError(fmt.Sprintf("unsupported game mode: %s", mode))
	}
}

func requireMagnitude(declared *float64) (float64, error) {
	if declared == nil {
		return 0, NewValidationError("points_input is required for this game mode")
	}
	return math.Abs(*declared), nil
}

func applySign(result string, magnitude float64) float64 {
	if result == models.ResultWin {
		return magnitude
	}
	return -magnitude
}
