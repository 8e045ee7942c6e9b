package transport

import "github.com/google/uuid"

type EffectKind string

const (
	// EffectSend: новое сообщение.
	EffectSend EffectKind = "send"
	// EffectEdit replaces text and buttons of MessageID.
	EffectEdit EffectKind = "edit"
	// EffectNotice — короткое всплывающее уведомление в ответ на нажатие кнопки.
	EffectNotice EffectKind = "notice"
)

type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Effect is one instruction for the gateway. ID lets the gateway drop duplicates.
type Effect struct {
	ID         string     `json:"id"`
	Kind       EffectKind `json:"kind"`
	ChatID     int64      `json:"chat_id,omitempty"`
	MessageID  int64      `json:"message_id,omitempty"`
	CallbackID string     `json:"callback_id,omitempty"`
	Text       string     `json:"text"`
	Buttons    [][]Button `json:"buttons,omitempty"`
	// Menu is a persistent reply keyboard of plain text labels.
	Menu [][]string `json:"menu,omitempty"`
}

func Send(chatID int64, text string) Effect {
	return Effect{ID: uuid.NewString(), Kind: EffectSend, ChatID: chatID, Text: text}
}

func Edit(chatID, messageID int64, text string) Effect {
	return Effect{ID: uuid.NewString(), Kind: EffectEdit, ChatID: chatID, MessageID: messageID, Text: text}
}

func Notice(callbackID, text string) Effect {
	return Effect{ID: uuid.NewString(), Kind: EffectNotice, CallbackID: callbackID, Text: text}
}

func (e Effect) WithButtons(rows ...[]Button) Effect {
	e.Buttons = rows
	return e
}

func (e Effect) WithMenu(rows ...[]string) Effect {
	e.Menu = rows
	return e
}

// Row is shorthand for one row of buttons.
func Row(buttons ...Button) []Button { return buttons }
