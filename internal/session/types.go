package session

import (
	"errors"
	"time"

	"github.com/saldoran/blackjack-tg-bot/internal/deck"
	"github.com/saldoran/blackjack-tg-bot/internal/game"
	"github.com/saldoran/blackjack-tg-bot/internal/ledger"
)

var (
	ErrNoRound          = errors.New("session: no round in this chat")
	ErrRoundInProgress  = errors.New("session: a round is already running in this chat")
	ErrNotEnoughPlayers = errors.New("session: not enough players")
)

// IsUserError reports whether err should go back to the acting user rather
// than be treated as a failure.
func IsUserError(err error) bool {
	return game.IsUserError(err) ||
		errors.Is(err, ErrNoRound) ||
		errors.Is(err, ErrRoundInProgress) ||
		errors.Is(err, ErrNotEnoughPlayers)
}

// Notifier receives round events that happen outside a user request, such as
// the join window closing.
type Notifier interface {
	RoundDealt(view DealView)
	RoundCancelled(chatID int64, roundID string, reason string)
}

// RoundInfo describes a freshly opened round.
type RoundInfo struct {
	RoundID      string
	ChatID       int64
	JoinDeadline time.Time // zero when there is no join timeout
	MinPlayers   int
	MaxPlayers   int
}

// PlayerHand is one participant's visible state.
type PlayerHand struct {
	UserID int64
	Name   string
	Hand   []deck.Card
	Score  int
	Stood  bool
	Busted bool
}

// DealView is what the chat sees after the deal. Each PlayerHand is meant
// for that player's private message.
type DealView struct {
	RoundID      string
	ChatID       int64
	Players      []PlayerHand
	DealerUpCard deck.Card
}

// ActionView is the result of a hit or stand. Summary is set when the action
// completed the round.
type ActionView struct {
	RoundID string
	ChatID  int64
	Player  PlayerHand
	Action  game.Action
	Card    *deck.Card
	Pending []string
	Summary *Summary
}

// PlayerResult is a final line with the chips it moved.
type PlayerResult struct {
	game.Result
	Delta   int64
	Balance int64
}

// Summary is a settled round. Committed is false when the ledger could not be
// flushed; Err then holds the persistence error.
type Summary struct {
	RoundID     string
	ChatID      int64
	Dealer      []deck.Card
	DealerScore int
	DealerBust  bool
	Results     []PlayerResult
	Committed   bool
	Err         error
}

// BonusResult is the outcome of a daily bonus claim.
type BonusResult struct {
	Granted        bool
	Amount         int64
	Balance        int64
	HoursRemaining float64
	Committed      bool
	Err            error
}

// RoundState is a read-only look at the active round.
type RoundState struct {
	RoundID string
	ChatID  int64
	Phase   game.Phase
	Players []PlayerHand
}

// Stats combines ledger counters with the chat's live round.
type Stats struct {
	ledger.ChatStats
	ActivePhase *game.Phase
}

func handFromParticipant(p game.Participant) PlayerHand {
	return PlayerHand{
		UserID: p.UserID,
		Name:   p.Name,
		Hand:   p.Hand,
		Score:  p.Score(),
		Stood:  p.Stood,
		Busted: p.Busted,
	}
}
