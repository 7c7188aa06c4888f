package game

import "errors"

// User action errors. They are reported to the acting user and never leave
// the round in a changed state.
var (
	ErrAlreadyJoined      = errors.New("game: already joined")
	ErrAlreadyStarted     = errors.New("game: round already started")
	ErrUnknownParticipant = errors.New("game: not a participant")
	ErrAlreadyStood       = errors.New("game: already standing")
	ErrGameNotOpen        = errors.New("game: round is not accepting actions")
	ErrNoParticipants     = errors.New("game: no participants")
	ErrRoundFull          = errors.New("game: round is full")
	ErrPlayersPending     = errors.New("game: players still acting")
	ErrNotResolved        = errors.New("game: dealer has not played")
)

var userErrors = []error{
	ErrAlreadyJoined,
	ErrAlreadyStarted,
	ErrUnknownParticipant,
	ErrAlreadyStood,
	ErrGameNotOpen,
	ErrNoParticipants,
	ErrRoundFull,
	ErrPlayersPending,
	ErrNotResolved,
}

// IsUserError reports whether err is a recoverable user action error.
func IsUserError(err error) bool {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
