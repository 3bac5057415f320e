// Package store provides the message-store implementations: an
// embedded badger-backed one and an in-process one for tests and the
// memory mode.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/trycode2018/chathub/internal/core"
	"github.com/trycode2018/chathub/internal/domain"
)

// Memory keeps messages in insertion order, which equals createdAt
// order because the delivery engine stamps timestamps on accept.
type Memory struct {
	mu     sync.RWMutex
	nextID domain.MessageID
	msgs   []domain.Message
	byID   map[domain.MessageID]int
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[domain.MessageID]int)}
}

func (m *Memory) Append(_ context.Context, senderID, receiverID domain.UserID, content string, createdAt time.Time) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg := domain.Message{
		ID:         m.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  createdAt,
	}
	m.byID[msg.ID] = len(m.msgs)
	m.msgs = append(m.msgs, msg)
	return msg, nil
}

func (m *Memory) MarkRead(_ context.Context, id domain.MessageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.byID[id]
	if !ok {
		return core.ErrMessageNotFound
	}
	m.msgs[idx].IsRead = true
	return nil
}

func (m *Memory) QueryConversation(_ context.Context, userA, userB domain.UserID, skip, take int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Message, 0, take)
	skipped := 0
	// Newest first: walk the log backwards.
	for i := len(m.msgs) - 1; i >= 0 && len(out) < take; i-- {
		msg := m.msgs[i]
		if !betweenPair(msg, userA, userB) {
			continue
		}
		if skipped < skip {
			skipped++
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (m *Memory) CountUnread(_ context.Context, receiverID, senderID domain.UserID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, msg := range m.msgs {
		if msg.ReceiverID == receiverID && msg.SenderID == senderID && !msg.IsRead {
			n++
		}
	}
	return n, nil
}

func betweenPair(m domain.Message, a, b domain.UserID) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}
