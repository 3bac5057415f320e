package domain

import (
	"errors"
	"time"
)

const MaxContentLen = 4096

var (
	ErrContentEmpty   = errors.New("content empty")
	ErrContentTooLong = errors.New("content too long")
)

type MessageID uint64

// Message is owned by the message store once persisted; the hub only
// holds transient copies for routing. CreatedAt is stamped by the
// delivery engine, never by the store. IsRead flips false->true once.
type Message struct {
	ID         MessageID `json:"id"`
	SenderID   UserID    `json:"senderId"`
	ReceiverID UserID    `json:"receiverId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	IsRead     bool      `json:"isRead"`
}

func ValidateContent(content string) error {
	if len(content) == 0 {
		return ErrContentEmpty
	}
	if len(content) > MaxContentLen {
		return ErrContentTooLong
	}
	return nil
}
