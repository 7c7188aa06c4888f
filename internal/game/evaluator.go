package game

import "github.com/saldoran/blackjack-tg-bot/internal/deck"

// BustLimit is the highest score that does not bust.
const BustLimit = 21

// DealerStandsOn is the score at which the dealer stops drawing.
const DealerStandsOn = 17

// Score returns the best blackjack total for cards. Aces start at 11 and
// drop to 1, one at a time, while the total is over 21.
func Score(cards []deck.Card) int {
	total, aces := 0, 0
	for _, c := range cards {
		total += c.Rank.Points()
		if c.IsAce() {
			aces++
		}
	}

	for total > BustLimit && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsBust reports whether cards score over 21.
func IsBust(cards []deck.Card) bool {
	return Score(cards) > BustLimit
}
