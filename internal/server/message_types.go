package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
const (
	// Client to server messages
	MessageTypeCommand  MessageType = "command"
	MessageTypeCallback MessageType = "callback"

	// Server to client messages
	MessageTypeChatMessage    MessageType = "chat_message"
	MessageTypePrivateMessage MessageType = "private_message"
	MessageTypeUserNotice     MessageType = "user_notice"
	MessageTypeError          MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Chat commands accepted in CommandData.Command.
const (
	CommandNewGame = "newgame"
	CommandJoin    = "join"
	CommandLeave   = "leave"
	CommandDeal    = "deal"
	CommandHit     = "hit"
	CommandStand   = "stand"
	CommandCancel  = "cancel"
	CommandDaily   = "daily"
	CommandBalance = "balance"
	CommandTop     = "top"
	CommandStats   = "stats"
	CommandHelp    = "help"
)
