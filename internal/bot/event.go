package bot

import "github.com/nekogravitycat/facility-booking-bot/internal/approval"

type EventKind int

const (
	KindMessage EventKind = iota
	KindDecision
)

// Event is one inbound signal from the chat transport: either a plain message
// (the current conversation's expected field value or a command) or an
// administrator decision correlated by reservation id.
type Event struct {
	UserID   int64
	Text     string
	Kind     EventKind
	Decision *DecisionPayload
}

type DecisionPayload struct {
	ReservationID string
	Decision      approval.Decision
}

// Command describes a chat command for transport-level registration.
type Command struct {
	Command     string
	Description string
}

// Commands is the full command set the engine understands.
var Commands = []Command{
	{Command: "/start", Description: "Start the bot"},
	{Command: "/new_booking", Description: "Create new booking"},
	{Command: "/view_booking", Description: "View your booking"},
	{Command: "/cancel_booking", Description: "Cancel your booking"},
	{Command: "/help", Description: "Get help"},
	{Command: "/about", Description: "About the bot"},
	{Command: "/end", Description: "End the current command"},
}
