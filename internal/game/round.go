package game

import (
	"fmt"

	"github.com/saldoran/blackjack-tg-bot/internal/deck"
)

// Phase is the lifecycle stage of a round
type Phase int

const (
	Open Phase = iota
	Dealt
	Resolved
)

func (p Phase) String() string {
	switch p {
	case Open:
		return "open"
	case Dealt:
		return "dealt"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Action is a player move during the Dealt phase
type Action int

const (
	Hit Action = iota
	Stand
)

func (a Action) String() string {
	switch a {
	case Hit:
		return "hit"
	case Stand:
		return "stand"
	default:
		return "unknown"
	}
}

// ParseAction converts "hit" or "stand" into an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "hit":
		return Hit, nil
	case "stand":
		return Stand, nil
	}
	return 0, fmt.Errorf("game: unknown action %q", s)
}

// Outcome is a participant's result against the dealer
type Outcome int

const (
	Lose Outcome = iota
	Draw
	Win
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Draw:
		return "draw"
	case Lose:
		return "lose"
	default:
		return "unknown"
	}
}

// Participant is a registered player. Busted implies Stood.
type Participant struct {
	UserID int64
	Name   string
	Hand   []deck.Card
	Stood  bool
	Busted bool
}

// Score returns the participant's current hand score
func (p Participant) Score() int {
	return Score(p.Hand)
}

func (p *Participant) clone() Participant {
	c := *p
	c.Hand = append([]deck.Card(nil), p.Hand...)
	return c
}

// ActionResult is the participant state after Act.
type ActionResult struct {
	Participant
	Action Action
	Card   *deck.Card // drawn card, nil on stand
}

// Result is one participant's final line after the dealer has played.
type Result struct {
	UserID  int64
	Name    string
	Hand    []deck.Card
	Score   int
	Busted  bool
	Outcome Outcome
}

// RoundOption configures a Round
type RoundOption func(*Round)

// WithMaxPlayers caps the number of participants. Zero means no cap.
func WithMaxPlayers(n int) RoundOption {
	return func(r *Round) { r.maxPlayers = n }
}

// WithID sets the round identifier used in logs and callbacks.
func WithID(id string) RoundOption {
	return func(r *Round) { r.id = id }
}

// Round is one play of blackjack in one chat.
type Round struct {
	id           string
	chatID       int64
	deck         *deck.Deck
	participants []*Participant
	index        map[int64]*Participant
	dealer       []deck.Card
	phase        Phase
	maxPlayers   int
}

// NewRound creates an Open round that draws from d.
func NewRound(chatID int64, d *deck.Deck, opts ...RoundOption) *Round {
	r := &Round{
		chatID: chatID,
		deck:   d,
		index:  make(map[int64]*Participant),
		phase:  Open,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the round identifier
func (r *Round) ID() string { return r.id }

// ChatID returns the chat the round belongs to
func (r *Round) ChatID() int64 { return r.chatID }

// Phase returns the current phase
func (r *Round) Phase() Phase { return r.phase }

// PlayerCount returns the number of registered participants
func (r *Round) PlayerCount() int { return len(r.participants) }

// CardsRemaining returns how many cards are left in the round's deck
func (r *Round) CardsRemaining() int {
	return r.deck.Remaining()
}

// Join registers a player. Only valid while the round is Open.
func (r *Round) Join(userID int64, name string) error {
	if r.phase != Open {
		return ErrAlreadyStarted
	}
	if _, ok := r.index[userID]; ok {
		return ErrAlreadyJoined
	}
	if r.maxPlayers > 0 && len(r.participants) >= r.maxPlayers {
		return ErrRoundFull
	}

	p := &Participant{UserID: userID, Name: name}
	r.participants = append(r.participants, p)
	r.index[userID] = p
	return nil
}

// Leave withdraws a player before the deal.
func (r *Round) Leave(userID int64) error {
	if r.phase != Open {
		return ErrAlreadyStarted
	}
	if _, ok := r.index[userID]; !ok {
		return ErrUnknownParticipant
	}

	delete(r.index, userID)
	for i, p := range r.participants {
		if p.UserID == userID {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			break
		}
	}
	return nil
}

// Deal gives two cards to every participant and the dealer. Each pass goes
// through the players in join order and ends with the dealer.
func (r *Round) Deal() error {
	if r.phase != Open {
		return ErrAlreadyStarted
	}
	if len(r.participants) == 0 {
		return ErrNoParticipants
	}

	for pass := 0; pass < 2; pass++ {
		for _, p := range r.participants {
			card, err := r.deck.Draw()
			if err != nil {
				return fmt.Errorf("deal to %d: %w", p.UserID, err)
			}
			p.Hand = append(p.Hand, card)
		}
		card, err := r.deck.Draw()
		if err != nil {
			return fmt.Errorf("deal to dealer: %w", err)
		}
		r.dealer = append(r.dealer, card)
	}

	r.phase = Dealt
	return nil
}

// Act applies a hit or stand for a participant who has not stood yet.
func (r *Round) Act(userID int64, action Action) (ActionResult, error) {
	if r.phase != Dealt {
		return ActionResult{}, ErrGameNotOpen
	}
	p, ok := r.index[userID]
	if !ok {
		return ActionResult{}, ErrUnknownParticipant
	}
	if p.Stood {
		return ActionResult{}, ErrAlreadyStood
	}

	result := ActionResult{Action: action}
	switch action {
	case Hit:
		card, err := r.deck.Draw()
		if err != nil {
			return ActionResult{}, fmt.Errorf("hit for %d: %w", userID, err)
		}
		p.Hand = append(p.Hand, card)
		if IsBust(p.Hand) {
			p.Busted = true
			p.Stood = true
		}
		result.Card = &card
	case Stand:
		p.Stood = true
	default:
		return ActionResult{}, fmt.Errorf("game: unknown action %d", action)
	}

	result.Participant = p.clone()
	return result, nil
}

// AllStood reports whether every participant has stood, including by bust.
func (r *Round) AllStood() bool {
	for _, p := range r.participants {
		if !p.Stood {
			return false
		}
	}
	return true
}

// Pending returns the participants still able to act, in join order.
func (r *Round) Pending() []Participant {
	var pending []Participant
	for _, p := range r.participants {
		if !p.Stood {
			pending = append(pending, p.clone())
		}
	}
	return pending
}

// ResolveDealer plays the dealer hand: draw while below 17.
func (r *Round) ResolveDealer() error {
	if r.phase != Dealt {
		return ErrGameNotOpen
	}
	if !r.AllStood() {
		return ErrPlayersPending
	}

	for Score(r.dealer) < DealerStandsOn {
		card, err := r.deck.Draw()
		if err != nil {
			return fmt.Errorf("dealer draw: %w", err)
		}
		r.dealer = append(r.dealer, card)
	}

	r.phase = Resolved
	return nil
}

// Outcomes compares every participant with the dealer, in join order.
func (r *Round) Outcomes() ([]Result, error) {
	if r.phase != Resolved {
		return nil, ErrNotResolved
	}

	dealerScore := Score(r.dealer)
	dealerBust := dealerScore > BustLimit

	results := make([]Result, 0, len(r.participants))
	for _, p := range r.participants {
		score := Score(p.Hand)
		var outcome Outcome
		switch {
		case p.Busted:
			outcome = Lose
		case dealerBust || score > dealerScore:
			outcome = Win
		case score == dealerScore:
			outcome = Draw
		default:
			outcome = Lose
		}

		results = append(results, Result{
			UserID:  p.UserID,
			Name:    p.Name,
			Hand:    append([]deck.Card(nil), p.Hand...),
			Score:   score,
			Busted:  p.Busted,
			Outcome: outcome,
		})
	}
	return results, nil
}

// Participants returns copies of all participants in join order
func (r *Round) Participants() []Participant {
	out := make([]Participant, len(r.participants))
	for i, p := range r.participants {
		out[i] = p.clone()
	}
	return out
}

// Participant returns a copy of one participant
func (r *Round) Participant(userID int64) (Participant, bool) {
	p, ok := r.index[userID]
	if !ok {
		return Participant{}, false
	}
	return p.clone(), true
}

// DealerHand returns a copy of the dealer's cards
func (r *Round) DealerHand() []deck.Card {
	return append([]deck.Card(nil), r.dealer...)
}

// DealerUpCard returns the dealer's first card once dealt.
func (r *Round) DealerUpCard() (deck.Card, bool) {
	if len(r.dealer) == 0 {
		return deck.Card{}, false
	}
	return r.dealer[0], true
}

// CardsInPlay counts cards held by participants and the dealer.
func (r *Round) CardsInPlay() int {
	n := len(r.dealer)
	for _, p := range r.participants {
		n += len(p.Hand)
	}
	return n
}
