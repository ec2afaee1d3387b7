// Package telegram is the chat transport adapter: a thin client for the
// Telegram Bot API plus a long-poll loop that feeds updates into the engine.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nekogravitycat/facility-booking-bot/internal/bot"
	"github.com/nekogravitycat/facility-booking-bot/internal/intent"
)

// Client talks to the Telegram Bot API over plain HTTP form calls. It
// implements intent.Notifier: message ids serve as the opaque notification
// references.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: "https://api.telegram.org/bot" + token,
		// Long polls run up to the poll timeout; leave headroom beyond it.
		httpClient: &http.Client{Timeout: 50 * time.Second},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+method, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("build %s request failed: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s failed: %w", method, err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode %s response failed: %w", method, err)
	}
	if !body.OK {
		return fmt.Errorf("telegram API error on %s: %s", method, body.Description)
	}
	if out != nil {
		if err := json.Unmarshal(body.Result, out); err != nil {
			return fmt.Errorf("decode %s result failed: %w", method, err)
		}
	}
	return nil
}

// replyKeyboard renders prompt choices as a one-time reply keyboard.
func replyKeyboard(choices [][]string) (string, error) {
	type button struct {
		Text string `json:"text"`
	}
	rows := make([][]button, 0, len(choices))
	for _, row := range choices {
		r := make([]button, 0, len(row))
		for _, label := range row {
			r = append(r, button{Text: label})
		}
		rows = append(rows, r)
	}
	markup := map[string]any{
		"keyboard":          rows,
		"resize_keyboard":   true,
		"one_time_keyboard": true,
	}
	b, err := json.Marshal(markup)
	if err != nil {
		return "", fmt.Errorf("marshal reply keyboard failed: %w", err)
	}
	return string(b), nil
}

// inlineKeyboard renders controls as a single row of inline buttons.
func inlineKeyboard(controls []intent.Control) (string, error) {
	type button struct {
		Text         string `json:"text"`
		CallbackData string `json:"callback_data"`
	}
	row := make([]button, 0, len(controls))
	for _, ctl := range controls {
		row = append(row, button{Text: ctl.Label, CallbackData: ctl.Data})
	}
	markup := map[string]any{
		"inline_keyboard": [][]button{row},
	}
	b, err := json.Marshal(markup)
	if err != nil {
		return "", fmt.Errorf("marshal inline keyboard failed: %w", err)
	}
	return string(b), nil
}

type sentMessage struct {
	MessageID int64 `json:"message_id"`
}

// Prompt sends a conversational question, optionally with a reply keyboard.
func (c *Client) Prompt(ctx context.Context, userID int64, p intent.Prompt) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(userID, 10))
	params.Set("text", p.Text)
	if len(p.Choices) > 0 {
		markup, err := replyKeyboard(p.Choices)
		if err != nil {
			return err
		}
		params.Set("reply_markup", markup)
	}
	return c.call(ctx, "sendMessage", params, nil)
}

// Notify sends a message, optionally with inline decision controls, and
// returns the message id as the notification reference.
func (c *Client) Notify(ctx context.Context, userID int64, text string, controls []intent.Control) (string, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(userID, 10))
	params.Set("text", text)
	if len(controls) > 0 {
		markup, err := inlineKeyboard(controls)
		if err != nil {
			return "", err
		}
		params.Set("reply_markup", markup)
	}

	var msg sentMessage
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		return "", err
	}
	return strconv.FormatInt(msg.MessageID, 10), nil
}

// Amend edits a previously sent notification. Passing no controls withdraws
// any inline keyboard attached to the original message.
func (c *Client) Amend(ctx context.Context, userID int64, ref string, text string, controls []intent.Control) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(userID, 10))
	params.Set("message_id", ref)
	params.Set("text", text)
	if len(controls) > 0 {
		markup, err := inlineKeyboard(controls)
		if err != nil {
			return err
		}
		params.Set("reply_markup", markup)
	}
	return c.call(ctx, "editMessageText", params, nil)
}

// SetMyCommands registers the engine's command set with Telegram.
func (c *Client) SetMyCommands(ctx context.Context, commands []bot.Command) error {
	type apiCommand struct {
		Command     string `json:"command"`
		Description string `json:"description"`
	}
	list := make([]apiCommand, 0, len(commands))
	for _, cmd := range commands {
		list = append(list, apiCommand{
			Command:     strings.TrimPrefix(cmd.Command, "/"),
			Description: cmd.Description,
		})
	}
	b, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal commands failed: %w", err)
	}

	params := url.Values{}
	params.Set("commands", string(b))
	return c.call(ctx, "setMyCommands", params, nil)
}

func (c *Client) answerCallbackQuery(ctx context.Context, callbackID string) error {
	params := url.Values{}
	params.Set("callback_query_id", callbackID)
	return c.call(ctx, "answerCallbackQuery", params, nil)
}

func (c *Client) getUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]update, error) {
	params := url.Values{}
	params.Set("timeout", strconv.Itoa(timeoutSeconds))
	params.Set("allowed_updates", `["message","callback_query"]`)
	if offset != 0 {
		params.Set("offset", strconv.FormatInt(offset, 10))
	}

	var updates []update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}
