package telegram

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/facility-booking-bot/internal/approval"
	"github.com/nekogravitycat/facility-booking-bot/internal/bot"
)

type update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *message       `json:"message"`
	CallbackQuery *callbackQuery `json:"callback_query"`
}

type message struct {
	MessageID int64  `json:"message_id"`
	From      *user  `json:"from"`
	Chat      chat   `json:"chat"`
	Text      string `json:"text"`
}

type user struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type chat struct {
	ID int64 `json:"id"`
}

type callbackQuery struct {
	ID      string   `json:"id"`
	From    *user    `json:"from"`
	Message *message `json:"message"`
	Data    string   `json:"data"`
}

// Handler consumes inbound engine events.
type Handler interface {
	HandleEvent(ctx context.Context, ev bot.Event)
}

// Poller long-polls getUpdates and translates Telegram updates into engine
// events: plain messages and decision callbacks.
type Poller struct {
	client         *Client
	handler        Handler
	timeoutSeconds int
	log            *logrus.Entry
}

func NewPoller(client *Client, handler Handler, timeoutSeconds int, log *logrus.Entry) *Poller {
	return &Poller{
		client:         client,
		handler:        handler,
		timeoutSeconds: timeoutSeconds,
		log:            log,
	}
}

// Run polls until ctx is cancelled. Transient API failures are logged and
// retried after a short pause.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64
	for {
		updates, err := p.client.getUpdates(ctx, offset, p.timeoutSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.WithError(err).Error("getUpdates failed")
			select {
			case <-time.After(3 * time.Second):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		for _, u := range updates {
			offset = u.UpdateID + 1

			ev, ok := p.toEvent(u)
			if !ok {
				continue
			}
			if u.CallbackQuery != nil {
				// Ack the button press so the client stops the spinner; the
				// real answer arrives as an amended message.
				if err := p.client.answerCallbackQuery(ctx, u.CallbackQuery.ID); err != nil {
					p.log.WithError(err).Debug("answerCallbackQuery failed")
				}
			}
			p.handler.HandleEvent(ctx, ev)
		}
	}
}

func (p *Poller) toEvent(u update) (bot.Event, bool) {
	switch {
	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		payload, ok := parseDecision(u.CallbackQuery.Data)
		if !ok {
			return bot.Event{}, false
		}
		return bot.Event{
			UserID:   u.CallbackQuery.From.ID,
			Kind:     bot.KindDecision,
			Decision: payload,
		}, true

	case u.Message != nil && u.Message.From != nil && u.Message.Text != "":
		return bot.Event{
			UserID: u.Message.From.ID,
			Text:   u.Message.Text,
			Kind:   bot.KindMessage,
		}, true
	}
	return bot.Event{}, false
}

// parseDecision decodes "approve:<id>" / "reject:<id>" callback payloads.
func parseDecision(data string) (*bot.DecisionPayload, bool) {
	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, false
	}
	switch approval.Decision(parts[0]) {
	case approval.DecisionApprove, approval.DecisionReject:
		return &bot.DecisionPayload{
			ReservationID: parts[1],
			Decision:      approval.Decision(parts[0]),
		}, true
	}
	return nil, false
}
