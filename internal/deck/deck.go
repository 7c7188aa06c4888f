package deck

import (
	"errors"
	rand "math/rand/v2"
)

// Size is the number of cards in a full deck.
const Size = 52

// ErrEmptyDeck is returned when drawing from a deck with no cards left. Under
// house rules this is unreachable for a normal table, so callers treat it as
// an integrity failure of the round.
var ErrEmptyDeck = errors.New("deck: no cards remaining")

// Deck is an ordered card sequence. Cards are drawn from the end and are
// never put back.
type Deck struct {
	cards []Card
}

// New returns all 52 cards permuted by rng.
func New(rng *rand.Rand) *Deck {
	d := &Deck{cards: Ordered()}
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	return d
}

// Ordered returns the 52 cards in rank-major order (A♠ A♥ A♦ A♣ 2♠ ...).
func Ordered() []Card {
	cards := make([]Card, 0, Size)
	for _, rank := range Ranks {
		for _, suit := range Suits {
			cards = append(cards, NewCard(rank, suit))
		}
	}
	return cards
}

// FromCards builds a deck whose next draws are the last elements of cards.
// Used to stack a deck for tests and replays.
func FromCards(cards []Card) *Deck {
	return &Deck{cards: append([]Card(nil), cards...)}
}

// Stacked builds a deck that deals the given cards in order, first card first.
func Stacked(order []Card) *Deck {
	cards := make([]Card, len(order))
	for i, c := range order {
		cards[len(order)-1-i] = c
	}
	return &Deck{cards: cards}
}

// Draw removes and returns the top card
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrEmptyDeck
	}

	last := len(d.cards) - 1
	card := d.cards[last]
	d.cards = d.cards[:last]
	return card, nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Cards returns a copy of the undrawn cards, bottom first.
func (d *Deck) Cards() []Card {
	return append([]Card(nil), d.cards...)
}
