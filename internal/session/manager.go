// Package session owns the live blackjack rounds of every chat and connects
// them to the reward policy and the ledger.
//
// Each chat has at most one round. All operations on a chat's round run under
// that chat's lock; different chats never wait on each other.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/saldoran/blackjack-tg-bot/internal/deck"
	"github.com/saldoran/blackjack-tg-bot/internal/economy"
	"github.com/saldoran/blackjack-tg-bot/internal/game"
	"github.com/saldoran/blackjack-tg-bot/internal/ledger"
	"github.com/saldoran/blackjack-tg-bot/internal/randutil"
	"github.com/saldoran/blackjack-tg-bot/internal/roundid"
)

// Config tunes a Manager
type Config struct {
	Policy      economy.Policy
	JoinTimeout time.Duration // zero disables the automatic deal
	MinPlayers  int
	MaxPlayers  int
	Seed        int64
}

// Option customizes a Manager
type Option func(*Manager)

// WithClock replaces the wall clock, for tests.
func WithClock(clock quartz.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithNotifier sets the receiver of asynchronous round events.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithDeckFactory overrides deck creation, for stacked decks in tests.
func WithDeckFactory(f func() *deck.Deck) Option {
	return func(m *Manager) { m.newDeck = f }
}

type table struct {
	mu     sync.Mutex
	chatID int64
	round  *game.Round
	timer  *quartz.Timer
}

func (t *table) clear() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.round = nil
}

// Manager maps chats to their active round.
type Manager struct {
	cfg      Config
	store    *ledger.Store
	logger   *log.Logger
	clock    quartz.Clock
	notifier Notifier
	ids      *roundid.Generator
	rng      *randutil.Source
	newDeck  func() *deck.Deck

	mu     sync.Mutex
	tables map[int64]*table
}

// NewManager creates a Manager backed by store.
func NewManager(store *ledger.Store, cfg Config, logger *log.Logger, opts ...Option) *Manager {
	if cfg.MinPlayers < 1 {
		cfg.MinPlayers = 1
	}

	m := &Manager{
		cfg:    cfg,
		store:  store,
		logger: logger.WithPrefix("session"),
		clock:  quartz.NewReal(),
		rng:    randutil.NewSource(cfg.Seed),
		tables: make(map[int64]*table),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.newDeck == nil {
		m.newDeck = func() *deck.Deck { return deck.New(m.rng.Next()) }
	}
	m.ids = roundid.NewGenerator(m.clock, nil)
	return m
}

func (m *Manager) table(chatID int64) *table {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[chatID]
	if !ok {
		t = &table{chatID: chatID}
		m.tables[chatID] = t
	}
	return t
}

// NewRound opens a round for registration. A chat with a round that is still
// open or dealt is rejected with ErrRoundInProgress.
func (m *Manager) NewRound(chatID int64) (RoundInfo, error) {
	t := m.table(chatID)
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.round != nil {
		return RoundInfo{}, ErrRoundInProgress
	}

	id := m.ids.New()
	t.round = game.NewRound(chatID, m.newDeck(),
		game.WithID(id),
		game.WithMaxPlayers(m.cfg.MaxPlayers))

	info := RoundInfo{
		RoundID:    id,
		ChatID:     chatID,
		MinPlayers: m.cfg.MinPlayers,
		MaxPlayers: m.cfg.MaxPlayers,
	}
	if m.cfg.JoinTimeout > 0 {
		info.JoinDeadline = m.clock.Now().Add(m.cfg.JoinTimeout)
		t.timer = m.clock.AfterFunc(m.cfg.JoinTimeout, func() {
			m.joinTimeout(chatID, id)
		}, "session", "join")
	}

	m.logger.Info("Round opened", "chat", chatID, "round", id, "joinTimeout", m.cfg.JoinTimeout)
	return info, nil
}

// Join registers a player in the chat's open round.
func (m *Manager) Join(chatID, userID int64, name string) (RoundState, error) {
	t := m.table(chatID)
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.round == nil {
		return RoundState{}, ErrNoRound
	}
	if name == "" {
		name = ledger.DefaultName
	}
	if err := t.round.Join(userID, name); err != nil {
		return RoundState{}, err
	}

	m.logger.Info("Player joined", "chat", chatID, "round", t.round.ID(), "user", userID, "players", t.round.PlayerCount())
	return stateOf(t.round), nil
}

// Leave withdraws a player before the deal.
func (m *Manager) Leave(chatID, userID int64) (RoundState, error) {
	t := m.table(chatID)
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.round == nil {
		return RoundState{}, ErrNoRound
	}
	if err := t.round.Leave(userID); err != nil {
		return RoundState{}, err
	}

	m.logger.Info("Player left", "chat", chatID, "round", t.round.ID(), "user", userID)
	return stateOf(t.round), nil
}

// Deal closes registration and deals the opening hands.
func (m *Manager) Deal(chatID int64) (DealView, error) {
	t := m.table(chatID)
	t.mu.Lock()
	defer t.mu.Unlock()

	return m.dealLocked(t)
}

func (m *Manager) dealLocked(t *table) (DealView, error) {
	r := t.round
	if r == nil {
		return DealView{}, ErrNoRound
	}
	if r.Phase() != game.Open {
		return DealView{}, game.ErrAlreadyStarted
	}
	if r.PlayerCount() < m.cfg.MinPlayers {
		return DealView{}, fmt.Errorf("%w: %d joined, %d needed", ErrNotEnoughPlayers, r.PlayerCount(), m.cfg.MinPlayers)
	}

	if err := r.Deal(); err != nil {
		if !game.IsUserError(err) {
			m.abort(t, err)
		}
		return DealView{}, err
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}

	view := DealView{RoundID: r.ID(), ChatID: t.chatID}
	for _, p := range r.Participants() {
		view.Players = append(view.Players, handFromParticipant(p))
	}
	view.DealerUpCard, _ = r.DealerUpCard()

	m.logger.Info("Round dealt", "chat", t.chatID, "round", r.ID(), "players", len(view.Players), "dealerUp", view.DealerUpCard)
	return view, nil
}

// Act applies a hit or stand. When every player has stood the dealer plays,
// the round is settled into the ledger and the view carries the Summary.
func (m *Manager) Act(chatID, userID int64, action game.Action) (ActionView, error) {
	t := m.table(chatID)
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.round
	if r == nil {
		return ActionView{}, ErrNoRound
	}

	res, err := r.Act(userID, action)
	if err != nil {
		if !game.IsUserError(err) {
			m.abort(t, err)
		}
		return ActionView{}, err
	}

	view := ActionView{
		RoundID: r.ID(),
		ChatID:  chatID,
		Player:  handFromParticipant(res.Participant),
		Action:  action,
		Card:    res.Card,
	}
	for _, p := range r.Pending() {
		view.Pending = append(view.Pending, p.Name)
	}

	m.logger.Debug("Player acted", "chat", chatID, "round", r.ID(), "user", userID, "action", action, "score", view.Player.Score, "busted", view.Player.Busted)

	if r.AllStood() {
		summary, err := m.settle(t)
		if err != nil {
			return view, err
		}
		view.Summary = &summary
	}
	return view, nil
}

// settle plays the dealer, pays out and removes the round. The table lock
// must be held.
func (m *Manager) settle(t *table) (Summary, error) {
	r := t.round
	if err := r.ResolveDealer(); err != nil {
		m.abort(t, err)
		return Summary{}, err
	}
	results, err := r.Outcomes()
	if err != nil {
		m.abort(t, err)
		return Summary{}, err
	}

	dealer := r.DealerHand()
	summary := Summary{
		RoundID:     r.ID(),
		ChatID:      t.chatID,
		Dealer:      dealer,
		DealerScore: game.Score(dealer),
		DealerBust:  game.IsBust(dealer),
		Results:     make([]PlayerResult, len(results)),
	}

	err = m.store.Update(func(tx *ledger.Tx) {
		for i, res := range results {
			delta := m.cfg.Policy.RewardFor(res.Outcome)
			tx.GetOrCreate(t.chatID, res.UserID, res.Name)
			tx.AddMoney(t.chatID, res.UserID, delta)
			if res.Outcome == game.Win {
				tx.RecordWin(t.chatID, res.UserID)
			}
			tx.RecordUserGame(t.chatID, res.UserID)

			entry := tx.GetOrCreate(t.chatID, res.UserID, "")
			summary.Results[i] = PlayerResult{Result: res, Delta: delta, Balance: entry.Balance}
		}
		tx.RecordGamePlayed(t.chatID)
	})
	summary.Committed = err == nil
	summary.Err = err
	if err != nil {
		m.logger.Error("Round settled but not saved", "chat", t.chatID, "round", r.ID(), "error", err)
	} else {
		m.logger.Info("Round settled", "chat", t.chatID, "round", r.ID(), "dealer", summary.DealerScore, "players", len(results))
	}

	t.clear()
	return summary, nil
}

// abort drops a round that hit an integrity error. No chips move.
func (m *Manager) abort(t *table, err error) {
	id := ""
	if t.round != nil {
		id = t.round.ID()
	}
	m.logger.Error("Round aborted", "chat", t.chatID, "round", id, "error", err)
	t.clear()
}

// Cancel abandons the chat's round without settlement.
func (m *Manager) Cancel(chatID int64) (string, error) {
	t := m.table(chatID)
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.round == nil {
		return "", ErrNoRound
	}
	id := t.round.ID()
	t.clear()
	m.logger.Info("Round cancelled", "chat", chatID, "round", id)
	return id, nil
}

func (m *Manager) joinTimeout(chatID int64, roundID string) {
	t := m.table(chatID)
	t.mu.Lock()

	r := t.round
	if r == nil || r.ID() != roundID || r.Phase() != game.Open {
		t.mu.Unlock()
		return
	}
	t.timer = nil

	view, err := m.dealLocked(t)
	if errors.Is(err, ErrNotEnoughPlayers) {
		t.clear()
		m.logger.Info("Join window closed without enough players", "chat", chatID, "round", roundID)
	}
	t.mu.Unlock()

	n := m.currentNotifier()
	if n == nil {
		return
	}
	switch {
	case errors.Is(err, ErrNotEnoughPlayers):
		n.RoundCancelled(chatID, roundID, "not enough players joined")
	case err != nil:
		n.RoundCancelled(chatID, roundID, "the deal failed")
	default:
		n.RoundDealt(view)
	}
}

// SetNotifier replaces the receiver of asynchronous round events. The
// transport usually needs the Manager before it can build its Notifier.
func (m *Manager) SetNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = n
}

func (m *Manager) currentNotifier() Notifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifier
}

// Round returns the chat's active round.
func (m *Manager) Round(chatID int64) (RoundState, bool) {
	t := m.table(chatID)
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.round == nil {
		return RoundState{}, false
	}
	return stateOf(t.round), true
}

// Hand returns one player's hand in the chat's active round.
func (m *Manager) Hand(chatID, userID int64) (PlayerHand, error) {
	t := m.table(chatID)
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.round == nil {
		return PlayerHand{}, ErrNoRound
	}
	p, ok := t.round.Participant(userID)
	if !ok {
		return PlayerHand{}, game.ErrUnknownParticipant
	}
	return handFromParticipant(p), nil
}

// Daily grants the periodic bonus when the cooldown has passed.
func (m *Manager) Daily(chatID, userID int64, name string) BonusResult {
	now := m.clock.Now()
	var result BonusResult

	err := m.store.Update(func(tx *ledger.Tx) {
		entry := tx.GetOrCreate(chatID, userID, name)
		granted, remaining := m.cfg.Policy.CheckDailyBonus(entry.LastBonus, now)
		result.Granted = granted
		result.HoursRemaining = remaining
		if granted {
			tx.AddMoney(chatID, userID, m.cfg.Policy.DailyBonus)
			tx.SetLastBonus(chatID, userID, now)
			result.Amount = m.cfg.Policy.DailyBonus
		}
		result.Balance = tx.GetOrCreate(chatID, userID, "").Balance
	})

	result.Committed = err == nil
	if err != nil {
		result.Err = err
		m.logger.Warn("Daily bonus flush failed", "chat", chatID, "user", userID, "granted", result.Granted, "error", err)
	}
	m.logger.Info("Daily bonus", "chat", chatID, "user", userID, "granted", result.Granted, "remaining", result.HoursRemaining)
	return result
}

// Balance returns a user's ledger entry, creating it on first reference.
func (m *Manager) Balance(chatID, userID int64, name string) ledger.Entry {
	return m.store.GetOrCreate(chatID, userID, name)
}

// Leaderboard returns the chat's richest players.
func (m *Manager) Leaderboard(chatID int64, limit int) ([]ledger.Entry, error) {
	return m.store.Leaderboard(chatID, ledger.RankBalance, limit)
}

// Stats returns the chat's counters and the phase of its live round, if any.
func (m *Manager) Stats(chatID int64) Stats {
	stats := Stats{ChatStats: m.store.ChatStats(chatID)}
	if st, ok := m.Round(chatID); ok {
		phase := st.Phase
		stats.ActivePhase = &phase
	}
	return stats
}

// Close stops every pending join timer.
func (m *Manager) Close() {
	m.mu.Lock()
	tables := make([]*table, 0, len(m.tables))
	for _, t := range m.tables {
		tables = append(tables, t)
	}
	m.mu.Unlock()

	for _, t := range tables {
		t.mu.Lock()
		if t.timer != nil {
			t.timer.Stop()
			t.timer = nil
		}
		t.mu.Unlock()
	}
}

func stateOf(r *game.Round) RoundState {
	st := RoundState{RoundID: r.ID(), ChatID: r.ChatID(), Phase: r.Phase()}
	for _, p := range r.Participants() {
		st.Players = append(st.Players, handFromParticipant(p))
	}
	return st
}
