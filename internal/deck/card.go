package deck

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// Suits lists every suit in deck-building order.
var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

// String returns the suit symbol
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// Rank represents a card rank. Ace is the lowest value; blackjack scoring
// lifts it to 11 where that does not bust the hand.
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// Ranks lists every rank in deck-building order.
var Ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

// String returns the rank label used when rendering hands ("A", "2".."10", "J", "Q", "K")
func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	}
	if r >= Two && r <= Ten {
		return fmt.Sprintf("%d", int(r))
	}
	return "?"
}

// Points returns the blackjack value of the rank with aces counted as 11.
func (r Rank) Points() int {
	switch {
	case r == Ace:
		return 11
	case r >= Ten:
		return 10
	default:
		return int(r)
	}
}

// Card represents a playing card
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard creates a new card
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the rank+suit token, e.g. "10♥"
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// IsAce returns true if the card is an Ace
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// FormatHand renders cards as space separated rank+suit tokens in hand order.
// The same format is used for player and dealer hands.
func FormatHand(cards []Card) string {
	tokens := make([]string, len(cards))
	for i, c := range cards {
		tokens[i] = c.String()
	}
	return strings.Join(tokens, " ")
}

// ParseCards parses compact card notation such as "AsKh10d" or "As Td 9c".
// Ranks: A, K, Q, J, T or 10, 9..2. Suits: s, h, d, c.
func ParseCards(s string) ([]Card, error) {
	s = strings.ReplaceAll(s, " ", "")

	cards := []Card{}
	for i := 0; i < len(s); {
		rankLen := 1
		if strings.HasPrefix(s[i:], "10") {
			rankLen = 2
		}
		if i+rankLen >= len(s) {
			return nil, fmt.Errorf("incomplete card at position %d", i)
		}

		rank, err := parseRank(s[i : i+rankLen])
		if err != nil {
			return nil, fmt.Errorf("invalid rank at position %d: %w", i, err)
		}
		suit, err := parseSuit(s[i+rankLen])
		if err != nil {
			return nil, fmt.Errorf("invalid suit at position %d: %w", i+rankLen, err)
		}

		cards = append(cards, NewCard(rank, suit))
		i += rankLen + 1
	}

	return cards, nil
}

// MustParseCards parses cards and panics on error (for tests)
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(fmt.Sprintf("failed to parse cards '%s': %v", s, err))
	}
	return cards
}

func parseRank(s string) (Rank, error) {
	switch strings.ToUpper(s) {
	case "A":
		return Ace, nil
	case "K":
		return King, nil
	case "Q":
		return Queen, nil
	case "J":
		return Jack, nil
	case "T", "10":
		return Ten, nil
	}
	if len(s) == 1 && s[0] >= '2' && s[0] <= '9' {
		return Rank(s[0] - '0'), nil
	}
	return 0, fmt.Errorf("unknown rank %q", s)
}

func parseSuit(c byte) (Suit, error) {
	switch c {
	case 's', 'S':
		return Spades, nil
	case 'h', 'H':
		return Hearts, nil
	case 'd', 'D':
		return Diamonds, nil
	case 'c', 'C':
		return Clubs, nil
	}
	return 0, fmt.Errorf("unknown suit %q", c)
}
