//go:build !integration

package telegram

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeAPI records every call and answers from canned results.
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	failOn   map[string]error // keyed by Bot API method
	result   json.RawMessage
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{failOn: map[string]error{}, result: json.RawMessage(`true`)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if err := f.failOn[methodOf(c)]; err != nil {
		return tgbotapi.Message{}, err
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	if err := f.failOn[methodOf(c)]; err != nil {
		return nil, err
	}
	return &tgbotapi.APIResponse{Ok: true, Result: f.result}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) sentMessages() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.sent...)
}

func (f *fakeAPI) requestsOf(method string) []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.Chattable
	for _, c := range f.requests {
		if methodOf(c) == method {
			out = append(out, c)
		}
	}
	return out
}

var errPlatform = errors.New("Bad Request: not enough rights")

func methodOf(c tgbotapi.Chattable) string {
	switch c.(type) {
	case tgbotapi.MessageConfig:
		return "sendMessage"
	case tgbotapi.PhotoConfig:
		return "sendPhoto"
	case tgbotapi.CreateChatInviteLinkConfig:
		return "createChatInviteLink"
	case tgbotapi.BanChatMemberConfig:
		return "banChatMember"
	case tgbotapi.UnbanChatMemberConfig:
		return "unbanChatMember"
	case tgbotapi.EditMessageReplyMarkupConfig:
		return "editMessageReplyMarkup"
	case tgbotapi.CallbackConfig:
		return "answerCallbackQuery"
	case tgbotapi.SetMyCommandsConfig:
		return "setMyCommands"
	}
	return fmt.Sprintf("%T", c)
}
