package testscommon

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// TelegramSenderStub -
type TelegramSenderStub struct {
	SendCalled                func(c tgbotapi.Chattable) (tgbotapi.Message, error)
	AnswerCallbackQueryCalled func(config tgbotapi.CallbackConfig) (tgbotapi.APIResponse, error)

	mut       sync.Mutex
	sent      []tgbotapi.Chattable
	nextMsgID int
}

// Send -
func (stub *TelegramSenderStub) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	stub.mut.Lock()
	stub.sent = append(stub.sent, c)
	stub.nextMsgID++
	id := stub.nextMsgID
	stub.mut.Unlock()

	if stub.SendCalled != nil {
		return stub.SendCalled(c)
	}

	return tgbotapi.Message{MessageID: id}, nil
}

// AnswerCallbackQuery -
func (stub *TelegramSenderStub) AnswerCallbackQuery(config tgbotapi.CallbackConfig) (tgbotapi.APIResponse, error) {
	if stub.AnswerCallbackQueryCalled != nil {
		return stub.AnswerCallbackQueryCalled(config)
	}

	return tgbotapi.APIResponse{Ok: true}, nil
}

// Sent returns the chattables sent so far
func (stub *TelegramSenderStub) Sent() []tgbotapi.Chattable {
	stub.mut.Lock()
	defer stub.mut.Unlock()

	return append([]tgbotapi.Chattable(nil), stub.sent...)
}

// Messages returns the new messages sent so far
func (stub *TelegramSenderStub) Messages() []tgbotapi.MessageConfig {
	messages := make([]tgbotapi.MessageConfig, 0)
	for _, c := range stub.Sent() {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			messages = append(messages, msg)
		}
	}

	return messages
}

// Edits returns the message edits sent so far
func (stub *TelegramSenderStub) Edits() []tgbotapi.EditMessageTextConfig {
	edits := make([]tgbotapi.EditMessageTextConfig, 0)
	for _, c := range stub.Sent() {
		if edit, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			edits = append(edits, edit)
		}
	}

	return edits
}

// Reset forgets the sent chattables
func (stub *TelegramSenderStub) Reset() {
	stub.mut.Lock()
	stub.sent = nil
	stub.mut.Unlock()
}
