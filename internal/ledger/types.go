package ledger

import (
	"math"
	"strconv"
	"time"
)

// DefaultName is stored for users first seen without a display name.
const DefaultName = "Anon"

// RankKey selects the leaderboard column
type RankKey string

const (
	RankBalance RankKey = "balance"
	RankWins    RankKey = "wins"
	RankGames   RankKey = "games"
)

// ParseRankKey validates a leaderboard column name
func ParseRankKey(s string) (RankKey, error) {
	switch k := RankKey(s); k {
	case RankBalance, RankWins, RankGames:
		return k, nil
	case "money":
		return RankBalance, nil
	}
	return "", ErrUnknownRankKey
}

// Entry is one user's record in one chat.
type Entry struct {
	UserID    int64
	Name      string
	Balance   int64
	Wins      int
	Games     int
	LastBonus time.Time
}

// ChatLedger is a copy of everything stored for one chat.
type ChatLedger struct {
	GamesPlayed int
	Users       map[int64]Entry
}

// ChatStats summarizes a chat.
type ChatStats struct {
	GamesPlayed int
	Players     int
}

type userRecord struct {
	Name      string  `json:"name"`
	Money     int64   `json:"money"`
	Wins      int     `json:"wins"`
	Games     int     `json:"games"`
	LastDaily float64 `json:"last_daily"`
}

type chatRecord struct {
	GamesPlayed int                    `json:"games_played"`
	Users       map[string]*userRecord `json:"users"`
}

func (u *userRecord) entry(userID int64) Entry {
	return Entry{
		UserID:    userID,
		Name:      u.Name,
		Balance:   u.Money,
		Wins:      u.Wins,
		Games:     u.Games,
		LastBonus: fromEpoch(u.LastDaily),
	}
}

func (u *userRecord) rank(key RankKey) int64 {
	switch key {
	case RankWins:
		return int64(u.Wins)
	case RankGames:
		return int64(u.Games)
	default:
		return u.Money
	}
}

func idKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func toEpoch(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}

func fromEpoch(sec float64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9))
}
