package common

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Inbound is a transport independent view of one Telegram update
type Inbound struct {
	ChatID     int64
	UserID     int64
	Username   string
	Text       string
	Command    string // without the leading slash
	Args       string // command arguments, e.g. the ref_<id> of /start
	Callback   string // inline button data
	CallbackID string
	MessageID  int // message carrying the pressed button
}

// IsCallback reports whether the update is an inline button press
func (in Inbound) IsCallback() bool {
	return in.CallbackID != ""
}

// Reply is one message sent back to the chat of an update
type Reply struct {
	Text     string
	Keyboard *tgbotapi.InlineKeyboardMarkup
	Edit     bool // replace the message the button belongs to
}

// Text builds a plain reply
func Text(text string) Reply {
	return Reply{Text: text}
}

// WithKeyboard builds a reply carrying an inline keyboard
func WithKeyboard(text string, keyboard tgbotapi.InlineKeyboardMarkup) Reply {
	return Reply{Text: text, Keyboard: &keyboard}
}
