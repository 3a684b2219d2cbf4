package domain

import "strings"

// SenderType is the GroupMe classification of who wrote a message.
type SenderType string

const (
	SenderUser    SenderType = "user"
	SenderBot     SenderType = "bot"
	SenderSystem  SenderType = "system"
	SenderUnknown SenderType = "unknown"
)

// ParseSenderType maps a raw sender_type field to a SenderType.
// Anything unrecognized, including an empty value, is SenderUnknown.
func ParseSenderType(s string) SenderType {
	switch st := SenderType(strings.ToLower(strings.TrimSpace(s))); st {
	case SenderUser, SenderBot, SenderSystem:
		return st
	default:
		return SenderUnknown
	}
}

// IncomingMessage is a single group message as seen by the bot.
// It is a value: received once, processed, then dropped.
type IncomingMessage struct {
	ID         string     `json:"id"`
	SenderType SenderType `json:"sender_type"`
	Name       string     `json:"name"`
	Text       string     `json:"text"`
}

// FromUser reports whether a human wrote the message.
func (m IncomingMessage) FromUser() bool {
	return m.SenderType == SenderUser
}
