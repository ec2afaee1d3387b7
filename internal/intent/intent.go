// Package intent defines the outbound messages the engine emits toward the
// chat transport. The engine never renders UI itself; it hands these to a
// Notifier implementation provided by the transport adapter.
package intent

import "context"

// Control is an actionable button attached to a notification. Data is the
// opaque payload returned by the transport when the control is pressed.
type Control struct {
	Label string
	Data  string
}

// Prompt asks the active conversation a question, optionally offering rows of
// one-tap choices.
type Prompt struct {
	Text    string
	Choices [][]string
}

// Notifier delivers messages to users outside the request/response flow of a
// conversation. Notify returns an opaque reference to the sent notification so
// it can later be amended (e.g. to withdraw decision controls).
type Notifier interface {
	Prompt(ctx context.Context, userID int64, p Prompt) error
	Notify(ctx context.Context, userID int64, text string, controls []Control) (ref string, err error)
	Amend(ctx context.Context, userID int64, ref string, text string, controls []Control) error
}
