package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptStore means the store file exists but cannot be read or
	// decoded. Starting anyway would silently drop balances.
	ErrCorruptStore = errors.New("ledger: corrupt store")

	// ErrPersist matches every *PersistError.
	ErrPersist = errors.New("ledger: persist failed")

	// ErrUnknownRankKey is returned for an unsupported leaderboard column.
	ErrUnknownRankKey = errors.New("ledger: unknown rank key")
)

// PersistError reports a failed flush. The in-memory change it belonged to
// is kept and goes out with the next successful flush.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("ledger: persist %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPersist) match.
func (e *PersistError) Is(target error) bool { return target == ErrPersist }
