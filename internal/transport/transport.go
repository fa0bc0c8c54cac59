// Package transport abstracts the chat channel the operator drives the
// agent through. The router only sees Events and Keyboards; the
// Telegram binding lives behind the Transport interface.
package transport

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrUnauthorized means the credential itself is rejected. Not
	// recoverable by waiting; the supervisor treats it as fatal.
	ErrUnauthorized = errors.New("transport: unauthorized")
	// ErrConflict means another agent instance holds the long poll.
	ErrConflict = errors.New("transport: conflicting consumer")
)

// Document describes an incoming file attachment by reference; the
// bytes are fetched separately through Download.
type Document struct {
	FileID   string
	FileName string
	Size     int64
}

// Event is one operator input: either a text/command message or a
// button press (CallbackID set).
type Event struct {
	SenderID    int64
	ChatID      int64
	MessageID   int
	Text        string
	Command     string
	CommandArgs string
	Token       string
	CallbackID  string
	Document    *Document
}

// IsCallback reports whether the event is a button press.
func (e Event) IsCallback() bool { return e.CallbackID != "" }

// Button binds a label to an action token.
type Button struct {
	Label string
	Token string
}

// Keyboard is rows of buttons rendered under a message.
type Keyboard [][]Button

type Transport interface {
	// Receive blocks on the long poll and returns the next batch of
	// events. Errors are classified: ErrUnauthorized and ErrConflict
	// are detectable with errors.Is.
	Receive(ctx context.Context) ([]Event, error)
	Send(chatID int64, text string, kb Keyboard) error
	// SendCode delivers text as a monospace block where the channel
	// supports rich formatting. The error is returned rather than
	// retried so the caller can fall back to a plain Send.
	SendCode(chatID int64, text string) error
	// Edit replaces a previously sent message in place; implementations
	// fall back to Send when the original is gone.
	Edit(chatID int64, messageID int, text string, kb Keyboard) error
	// Ack answers a button press so the client stops its spinner.
	Ack(callbackID, text string) error
	SendDocument(chatID int64, path, caption string) error
	SendPhoto(chatID int64, name string, data []byte, caption string) error
	// Download streams an attachment's bytes.
	Download(doc Document) (io.ReadCloser, error)
}
