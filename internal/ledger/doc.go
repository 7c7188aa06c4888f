// Package ledger keeps the per-chat chip economy: balances, wins, games
// played and daily bonus timestamps, persisted as one JSON file.
//
// The file layout is shared with earlier deployments and must not change:
//
//	{
//	  "<chat id>": {
//	    "games_played": 3,
//	    "users": {
//	      "<user id>": {"name": "Ann", "money": 75, "wins": 1, "games": 3, "last_daily": 1700000000.5}
//	    }
//	  }
//	}
//
// Mutations change memory only. They are committed once Flush (or Update,
// which flushes) returns nil.
package ledger
