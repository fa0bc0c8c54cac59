package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// longPollSeconds keeps the GetUpdates call open server-side; Receive
// returns promptly once anything arrives.
const longPollSeconds = 25

// Telegram drives the Bot API directly through GetUpdates rather than
// the library's update channel, so poll errors surface to the caller
// instead of being swallowed inside a retry loop.
type Telegram struct {
	api    *tgbotapi.BotAPI
	offset int
}

func NewTelegram(token string) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, classify("connect", err)
	}
	api.Debug = false
	log.Info().Str("username", api.Self.UserName).Msg("transport connected")
	return &Telegram{api: api}, nil
}

func (t *Telegram) Receive(ctx context.Context) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := tgbotapi.NewUpdate(t.offset)
	cfg.Timeout = longPollSeconds
	updates, err := t.api.GetUpdates(cfg)
	if err != nil {
		return nil, classify("poll", err)
	}
	events := make([]Event, 0, len(updates))
	for _, u := range updates {
		if u.UpdateID >= t.offset {
			t.offset = u.UpdateID + 1
		}
		if ev, ok := toEvent(u); ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

func toEvent(u tgbotapi.Update) (Event, bool) {
	switch {
	case u.CallbackQuery != nil:
		cb := u.CallbackQuery
		ev := Event{
			SenderID:   cb.From.ID,
			Token:      cb.Data,
			CallbackID: cb.ID,
		}
		if cb.Message != nil {
			ev.ChatID = cb.Message.Chat.ID
			ev.MessageID = cb.Message.MessageID
		}
		return ev, true
	case u.Message != nil:
		msg := u.Message
		ev := Event{
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
			Text:      msg.Text,
		}
		if msg.From != nil {
			ev.SenderID = msg.From.ID
		}
		if msg.IsCommand() {
			ev.Command = msg.Command()
			ev.CommandArgs = msg.CommandArguments()
		}
		if msg.Document != nil {
			ev.Document = &Document{
				FileID:   msg.Document.FileID,
				FileName: msg.Document.FileName,
				Size:     int64(msg.Document.FileSize),
			}
		}
		return ev, true
	default:
		return Event{}, false
	}
}

func (t *Telegram) Send(chatID int64, text string, kb Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if kb != nil {
		msg.ReplyMarkup = inlineKeyboard(kb)
	}
	if _, err := t.api.Send(msg); err != nil {
		return classify("send", err)
	}
	return nil
}

func (t *Telegram) SendCode(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, "```\n"+text+"\n```")
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.api.Send(msg); err != nil {
		return classify("send code", err)
	}
	return nil
}

func (t *Telegram) Edit(chatID int64, messageID int, text string, kb Keyboard) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if kb != nil {
		markup := inlineKeyboard(kb)
		edit.ReplyMarkup = &markup
	}
	if _, err := t.api.Send(edit); err != nil {
		// The original message may be gone or unmodified; a fresh
		// message keeps the conversation usable.
		log.Debug().Err(err).Int("message_id", messageID).Msg("edit failed, sending new message")
		return t.Send(chatID, text, kb)
	}
	return nil
}

func (t *Telegram) Ack(callbackID, text string) error {
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return classify("ack", err)
	}
	return nil
}

func (t *Telegram) SendDocument(chatID int64, path, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = caption
	if _, err := t.api.Send(doc); err != nil {
		return classify("send document", err)
	}
	return nil
}

func (t *Telegram) SendPhoto(chatID int64, name string, data []byte, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	photo.Caption = caption
	if _, err := t.api.Send(photo); err != nil {
		return classify("send photo", err)
	}
	return nil
}

func (t *Telegram) Download(doc Document) (io.ReadCloser, error) {
	file, err := t.api.GetFile(tgbotapi.FileConfig{FileID: doc.FileID})
	if err != nil {
		return nil, classify("resolve file", err)
	}
	resp, err := http.Get(file.Link(t.api.Token))
	if err != nil {
		return nil, fmt.Errorf("transport: fetch file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("transport: fetch file: status %s", resp.Status)
	}
	return resp.Body, nil
}

func inlineKeyboard(kb Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Token))
		}
		rows = append(rows, btns)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// classify maps Bot API failures onto the transport sentinels the
// supervisor keys its backoff tiers on.
func classify(op string, err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s: %s", ErrUnauthorized, op, apiErr.Message)
		case http.StatusConflict:
			return fmt.Errorf("%w: %s: %s", ErrConflict, op, apiErr.Message)
		}
	}
	return fmt.Errorf("transport: %s: %w", op, err)
}
