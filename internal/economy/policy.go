// Package economy maps round outcomes and daily claims to chip changes.
package economy

import (
	"math"
	"time"

	"github.com/saldoran/blackjack-tg-bot/internal/game"
)

// Policy holds the static reward table.
type Policy struct {
	WinReward     int64
	DrawReward    int64
	LosePenalty   int64
	DailyBonus    int64
	DailyCooldown time.Duration
}

// DefaultPolicy returns the stock house rewards.
func DefaultPolicy() Policy {
	return Policy{
		WinReward:     50,
		DrawReward:    0,
		LosePenalty:   -25,
		DailyBonus:    100,
		DailyCooldown: 24 * time.Hour,
	}
}

// RewardFor returns the balance delta for an outcome.
func (p Policy) RewardFor(outcome game.Outcome) int64 {
	switch outcome {
	case game.Win:
		return p.WinReward
	case game.Draw:
		return p.DrawReward
	default:
		return p.LosePenalty
	}
}

// CheckDailyBonus reports whether a bonus last claimed at last may be claimed
// at now. When it may not, hoursRemaining is the wait rounded to a tenth of an
// hour. A zero last means never claimed.
func (p Policy) CheckDailyBonus(last, now time.Time) (granted bool, hoursRemaining float64) {
	if last.IsZero() {
		return true, 0
	}

	elapsed := now.Sub(last)
	if elapsed >= p.DailyCooldown {
		return true, 0
	}

	remaining := (p.DailyCooldown - elapsed).Hours()
	return false, math.Round(remaining*10) / 10
}
