// Package game implements the blackjack rules used by chat rounds.
//
// A Round moves through three phases and never goes back:
//
//	Open      players join (and may leave)
//	Dealt     players hit or stand; busting forces a stand
//	Resolved  the dealer has drawn to 17 and outcomes are final
//
// # Basic Usage
//
//	r := game.NewRound(chatID, deck.New(rng))
//	_ = r.Join(1, "Ann")
//	_ = r.Join(2, "Bob")
//	_ = r.Deal()
//	res, err := r.Act(1, game.Hit)
//	// ... once r.AllStood():
//	_ = r.ResolveDealer()
//	results, _ := r.Outcomes()
//
// # Deterministic Testing
//
// Pass a stacked deck to control every card:
//
//	r := game.NewRound(chatID, deck.Stacked(deck.MustParseCards("AsKh9d...")))
//
// A Round is not safe for concurrent use. Callers serialize access per chat.
package game
