// Package transport describes what crosses the chat boundary: inbound updates
// from the gateway and outbound effects the gateway must perform.
package transport

import "errors"

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// Callback is a button press. Data is the opaque payload the button was built with.
type Callback struct {
	ID        string `json:"id"`
	MessageID int64  `json:"message_id,omitempty"`
	Data      string `json:"data"`
}

// Update — входящее событие: текст или нажатие кнопки.
type Update struct {
	ID       string    `json:"id,omitempty"`
	From     User      `json:"from"`
	ChatID   int64     `json:"chat_id,omitempty"`
	Text     string    `json:"text,omitempty"`
	Callback *Callback `json:"callback,omitempty"`
}

var ErrNoSender = errors.New("update has no sender")

// Normalize fills ChatID from the sender. Empty text is valid: inside a flow it
// is an answer (an empty FAQ category means "general").
func (u *Update) Normalize() error {
	if u.From.ID == 0 {
		return ErrNoSender
	}
	if u.ChatID == 0 {
		u.ChatID = u.From.ID
	}
	return nil
}

func (u Update) IsCallback() bool { return u.Callback != nil }
