package transport

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/danmuck/hostctl/internal/testutil/testlog"
)

func TestToEventMessage(t *testing.T) {
	testlog.Start(t)

	u := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 11,
		From:      &tgbotapi.User{ID: 42},
		Chat:      &tgbotapi.Chat{ID: 42},
		Text:      "/cmd dir C:\\",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 4}},
	}}
	ev, ok := toEvent(u)
	if !ok {
		t.Fatalf("message update dropped")
	}
	if ev.SenderID != 42 || ev.ChatID != 42 || ev.MessageID != 11 {
		t.Fatalf("identity fields wrong: %+v", ev)
	}
	if ev.Command != "cmd" || ev.CommandArgs != "dir C:\\" {
		t.Fatalf("command not split: %q %q", ev.Command, ev.CommandArgs)
	}
	if ev.IsCallback() {
		t.Fatalf("message classified as callback")
	}
}

func TestToEventCallback(t *testing.T) {
	testlog.Start(t)

	u := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: &tgbotapi.User{ID: 42},
		Data: "proc_menu",
		Message: &tgbotapi.Message{
			MessageID: 7,
			Chat:      &tgbotapi.Chat{ID: 42},
		},
	}}
	ev, ok := toEvent(u)
	if !ok {
		t.Fatalf("callback update dropped")
	}
	if !ev.IsCallback() || ev.Token != "proc_menu" || ev.CallbackID != "cb-1" {
		t.Fatalf("callback fields wrong: %+v", ev)
	}
	if ev.ChatID != 42 || ev.MessageID != 7 {
		t.Fatalf("origin message fields wrong: %+v", ev)
	}
}

func TestToEventDocument(t *testing.T) {
	testlog.Start(t)

	u := tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 42},
		Chat: &tgbotapi.Chat{ID: 42},
		Document: &tgbotapi.Document{
			FileID:   "file-9",
			FileName: "backup.tar",
			FileSize: 1024,
		},
	}}
	ev, ok := toEvent(u)
	if !ok || ev.Document == nil {
		t.Fatalf("document update dropped: %+v", ev)
	}
	if ev.Document.FileID != "file-9" || ev.Document.Size != 1024 {
		t.Fatalf("document fields wrong: %+v", ev.Document)
	}
}

func TestToEventIgnoresOtherUpdates(t *testing.T) {
	testlog.Start(t)

	if _, ok := toEvent(tgbotapi.Update{}); ok {
		t.Fatalf("empty update produced an event")
	}
}

func TestClassifySentinels(t *testing.T) {
	testlog.Start(t)

	err := classify("poll", &tgbotapi.Error{Code: 401, Message: "Unauthorized"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("401 not classified: %v", err)
	}
	err = classify("poll", &tgbotapi.Error{Code: 409, Message: "Conflict"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("409 not classified: %v", err)
	}
	err = classify("poll", errors.New("i/o timeout"))
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrConflict) {
		t.Fatalf("generic error misclassified: %v", err)
	}
}
