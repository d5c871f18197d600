package telegram

import (
	"encoding/json"
	"fmt"
	"io"

	telebot "gopkg.in/telebot.v3"
)

// Bot API method names.
const (
	MethodSendMessage     = "sendMessage"
	MethodEditMessageText = "editMessageText"
	MethodSendDocument    = "sendDocument"
	MethodSendPhoto       = "sendPhoto"
	MethodSendChatAction  = "sendChatAction"
	MethodGetUpdates      = "getUpdates"
	MethodGetMe           = "getMe"
)

// Result is the decoded Bot API response envelope.
type Result struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	Description string              `json:"description,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// ResponseParameters carries Bot API hints attached to failed requests.
type ResponseParameters struct {
	MigrateToChatID int64 `json:"migrate_to_chat_id,omitempty"`
	RetryAfter      int   `json:"retry_after,omitempty"`
}

// Message decodes the result payload as the message the call produced.
func (r *Result) Message() (*telebot.Message, error) {
	if r == nil || len(r.Result) == 0 {
		return nil, fmt.Errorf("result has no payload")
	}

	var msg telebot.Message
	if err := json.Unmarshal(r.Result, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	return &msg, nil
}

// InputFile is a file uploaded as a multipart form field.
type InputFile struct {
	Name   string
	Reader io.Reader
}
