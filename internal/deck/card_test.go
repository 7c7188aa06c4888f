package deck

import (
	"testing"
)

func TestParseCards(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Card
		wantErr  bool
	}{
		{
			name:  "blackjack",
			input: "AsKh",
			expected: []Card{
				{Rank: Ace, Suit: Spades},
				{Rank: King, Suit: Hearts},
			},
		},
		{
			name:  "tens both notations",
			input: "10dTc",
			expected: []Card{
				{Rank: Ten, Suit: Diamonds},
				{Rank: Ten, Suit: Clubs},
			},
		},
		{
			name:  "spaces and case",
			input: "as 9H 2d",
			expected: []Card{
				{Rank: Ace, Suit: Spades},
				{Rank: Nine, Suit: Hearts},
				{Rank: Two, Suit: Diamonds},
			},
		},
		{
			name:    "invalid rank",
			input:   "XsKs",
			wantErr: true,
		},
		{
			name:    "invalid suit",
			input:   "AsKx",
			wantErr: true,
		},
		{
			name:    "dangling rank",
			input:   "AsK",
			wantErr: true,
		},
		{
			name:     "empty string",
			input:    "",
			expected: []Card{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCards(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseCards() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !cardsEqual(got, tt.expected) {
				t.Errorf("ParseCards() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMustParseCardsPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustParseCards() should panic on invalid input")
		}
	}()
	MustParseCards("invalid")
}

func TestFormatHand(t *testing.T) {
	hand := MustParseCards("AsThQd")
	if got := FormatHand(hand); got != "A♠ 10♥ Q♦" {
		t.Errorf("FormatHand() = %q", got)
	}
	if got := FormatHand(nil); got != "" {
		t.Errorf("FormatHand(nil) = %q, want empty", got)
	}
}

func TestRankPoints(t *testing.T) {
	tests := map[Rank]int{Ace: 11, Two: 2, Nine: 9, Ten: 10, Jack: 10, Queen: 10, King: 10}
	for rank, want := range tests {
		if got := rank.Points(); got != want {
			t.Errorf("%s.Points() = %d, want %d", rank, got, want)
		}
	}
}

func cardsEqual(a, b []Card) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
