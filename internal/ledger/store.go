package ledger

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/saldoran/blackjack-tg-bot/internal/fileutil"
)

const filePerm os.FileMode = 0o644

// Store is the durable ledger shared by every chat. One lock guards memory
// and the file: mutations and flushes take it exclusively, reads share it.
type Store struct {
	path   string
	logger *log.Logger

	mu    sync.RWMutex
	chats map[string]*chatRecord
	dirty bool
}

// Open loads the store at path. A missing file starts an empty ledger; a file
// that cannot be read or decoded fails with ErrCorruptStore.
func Open(path string, logger *log.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		logger: logger.WithPrefix("ledger"),
		chats:  make(map[string]*chatRecord),
	}

	data, ok, err := fileutil.ReadFileIfExists(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrCorruptStore, path, err)
	}
	if !ok {
		s.logger.Info("Starting empty ledger", "path", path)
		return s, nil
	}

	if err := json.Unmarshal(data, &s.chats); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCorruptStore, path, err)
	}
	if s.chats == nil {
		return nil, fmt.Errorf("%w: decode %s: not an object", ErrCorruptStore, path)
	}
	for key, chat := range s.chats {
		if chat == nil {
			chat = &chatRecord{}
			s.chats[key] = chat
		}
		if chat.Users == nil {
			chat.Users = make(map[string]*userRecord)
		}
		for uid, u := range chat.Users {
			if u == nil {
				return nil, fmt.Errorf("%w: chat %s user %s is null", ErrCorruptStore, key, uid)
			}
		}
	}

	s.logger.Info("Loaded ledger", "path", path, "chats", len(s.chats))
	return s, nil
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Tx mutates the store inside Update. It must not be used after the
// callback returns.
type Tx struct {
	s *Store
}

func (tx *Tx) chat(chatID int64) *chatRecord {
	key := idKey(chatID)
	chat, ok := tx.s.chats[key]
	if !ok {
		chat = &chatRecord{Users: make(map[string]*userRecord)}
		tx.s.chats[key] = chat
	}
	return chat
}

func (tx *Tx) user(chatID, userID int64, name string) *userRecord {
	chat := tx.chat(chatID)
	key := idKey(userID)
	u, ok := chat.Users[key]
	if !ok {
		u = &userRecord{Name: DefaultName}
		chat.Users[key] = u
		tx.s.dirty = true
	}
	if name != "" && u.Name != name {
		u.Name = name
		tx.s.dirty = true
	}
	return u
}

// GetOrCreate returns the user's entry, creating a zeroed one first.
// A non-empty name replaces the stored display name.
func (tx *Tx) GetOrCreate(chatID, userID int64, name string) Entry {
	return tx.user(chatID, userID, name).entry(userID)
}

// AddMoney changes a balance by delta. Balances may go negative.
func (tx *Tx) AddMoney(chatID, userID int64, delta int64) {
	tx.user(chatID, userID, "").Money += delta
	tx.s.dirty = true
}

// RecordWin increments a user's win count.
func (tx *Tx) RecordWin(chatID, userID int64) {
	tx.user(chatID, userID, "").Wins++
	tx.s.dirty = true
}

// RecordUserGame increments a user's games-played count.
func (tx *Tx) RecordUserGame(chatID, userID int64) {
	tx.user(chatID, userID, "").Games++
	tx.s.dirty = true
}

// RecordGamePlayed increments the chat's round counter.
func (tx *Tx) RecordGamePlayed(chatID int64) {
	tx.chat(chatID).GamesPlayed++
	tx.s.dirty = true
}

// SetLastBonus stores when the user last claimed the daily bonus.
func (tx *Tx) SetLastBonus(chatID, userID int64, at time.Time) {
	tx.user(chatID, userID, "").LastDaily = toEpoch(at)
	tx.s.dirty = true
}

// Update runs fn under the store lock and flushes before releasing it, so the
// changes become durable together. Nothing is written when fn changed
// nothing. A flush failure is returned as a *PersistError; the changes stay
// in memory.
func (s *Store) Update(fn func(tx *Tx)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&Tx{s: s})
	if !s.dirty {
		return nil
	}
	return s.flushLocked()
}

func (s *Store) mutate(fn func(tx *Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&Tx{s: s})
}

// GetOrCreate returns the user's entry, creating a zeroed one first. The
// change is not durable until the next Flush.
func (s *Store) GetOrCreate(chatID, userID int64, name string) Entry {
	var e Entry
	s.mutate(func(tx *Tx) { e = tx.GetOrCreate(chatID, userID, name) })
	return e
}

// AddMoney changes a balance by delta. Not durable until Flush.
func (s *Store) AddMoney(chatID, userID int64, delta int64) {
	s.mutate(func(tx *Tx) { tx.AddMoney(chatID, userID, delta) })
}

// RecordWin increments a user's wins. Not durable until Flush.
func (s *Store) RecordWin(chatID, userID int64) {
	s.mutate(func(tx *Tx) { tx.RecordWin(chatID, userID) })
}

// RecordUserGame increments a user's games. Not durable until Flush.
func (s *Store) RecordUserGame(chatID, userID int64) {
	s.mutate(func(tx *Tx) { tx.RecordUserGame(chatID, userID) })
}

// RecordGamePlayed increments the chat's round counter. Not durable until Flush.
func (s *Store) RecordGamePlayed(chatID int64) {
	s.mutate(func(tx *Tx) { tx.RecordGamePlayed(chatID) })
}

// SetLastBonus records a daily bonus claim. Not durable until Flush.
func (s *Store) SetLastBonus(chatID, userID int64, at time.Time) {
	s.mutate(func(tx *Tx) { tx.SetLastBonus(chatID, userID, at) })
}

// Flush writes the whole ledger to disk atomically.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	start := time.Now()
	if err := fileutil.WriteJSONAtomic(s.path, s.chats, filePerm); err != nil {
		s.logger.Error("Flush failed", "path", s.path, "error", err)
		return &PersistError{Path: s.path, Err: err}
	}
	s.dirty = false
	s.logger.Debug("Flushed ledger", "chats", len(s.chats), "took", time.Since(start))
	return nil
}

// Close flushes pending changes. The store must not be used afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.flushLocked()
}

// Get returns a user's entry without creating it.
func (s *Store) Get(chatID, userID int64) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[idKey(chatID)]
	if !ok {
		return Entry{}, false
	}
	u, ok := chat.Users[idKey(userID)]
	if !ok {
		return Entry{}, false
	}
	return u.entry(userID), true
}

// Leaderboard returns up to limit entries sorted by key, highest first. Ties
// are ordered by user id ascending. A limit of zero or less returns all.
func (s *Store) Leaderboard(chatID int64, key RankKey, limit int) ([]Entry, error) {
	if _, err := ParseRankKey(string(key)); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[idKey(chatID)]
	if !ok {
		return nil, nil
	}

	type ranked struct {
		entry Entry
		value int64
		id    string
	}
	rows := make([]ranked, 0, len(chat.Users))
	for uid, u := range chat.Users {
		id, _ := strconv.ParseInt(uid, 10, 64)
		rows = append(rows, ranked{entry: u.entry(id), value: u.rank(key), id: uid})
	}

	slices.SortFunc(rows, func(a, b ranked) int {
		if c := cmp.Compare(b.value, a.value); c != 0 {
			return c
		}
		if c := cmp.Compare(a.entry.UserID, b.entry.UserID); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]Entry, len(rows))
	for i, r := range rows {
		out[i] = r.entry
	}
	return out, nil
}

// ChatStats returns the chat's round counter and number of known players.
func (s *Store) ChatStats(chatID int64) ChatStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[idKey(chatID)]
	if !ok {
		return ChatStats{}
	}
	return ChatStats{GamesPlayed: chat.GamesPlayed, Players: len(chat.Users)}
}

// Chat returns a copy of everything stored for a chat.
func (s *Store) Chat(chatID int64) (ChatLedger, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[idKey(chatID)]
	if !ok {
		return ChatLedger{}, false
	}

	out := ChatLedger{GamesPlayed: chat.GamesPlayed, Users: make(map[int64]Entry, len(chat.Users))}
	for uid, u := range chat.Users {
		id, err := strconv.ParseInt(uid, 10, 64)
		if err != nil {
			continue
		}
		out.Users[id] = u.entry(id)
	}
	return out, true
}

// ChatIDs lists every chat with a record, ascending.
func (s *Store) ChatIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.chats))
	for key := range s.chats {
		if id, err := strconv.ParseInt(key, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
