package models

import "time"

type ForwardStatus string

const (
	ForwardStatusSent      ForwardStatus = "sent"
	ForwardStatusFailed    ForwardStatus = "failed"
	ForwardStatusExhausted ForwardStatus = "exhausted"
)

// ForwardRecord is one row of the forward audit log: the terminal outcome of a
// single forward operation (one message or one complete media group).
type ForwardRecord struct {
	ID           int64         `json:"id"`
	SourceChatID int64         `json:"sourceChatId"`
	SourceMsgID  int           `json:"sourceMsgId"`
	MediaGroupID string        `json:"mediaGroupId,omitempty"`
	UnitSize     int           `json:"unitSize"`
	Caption      string        `json:"caption,omitempty"`
	Attempts     int           `json:"attempts"`
	Status       ForwardStatus `json:"status"`
	Error        string        `json:"error,omitempty"`
	ForwardedAt  time.Time     `json:"forwardedAt"`
	CreatedAt    time.Time     `json:"createdAt"`
}
