package core

import (
	"context"
	"errors"
	"time"

	"github.com/trycode2018/chathub/internal/domain"
)

// Frame is a marshaled outbound event ready for the wire.
type Frame []byte

// ConnectionID identifies one live transport session of one user.
type ConnectionID string

var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrMessageNotFound  = errors.New("message not found")
)

// PeerLink abstracts one live transport connection.
// Owned by the adapter; the adapter must Close() it.
type PeerLink interface {
	TrySend(Frame) error
	Close()
}

// Directory resolves user identities. It is an external collaborator:
// the hub never creates or mutates identities through it.
type Directory interface {
	FindByUserName(ctx context.Context, name domain.UserName) (domain.Identity, error)
	FindByID(ctx context.Context, id domain.UserID) (domain.Identity, error)
}

// MessageStore is the durable message collaborator. QueryConversation
// returns both directions of the pair ordered by createdAt descending.
type MessageStore interface {
	Append(ctx context.Context, senderID, receiverID domain.UserID, content string, createdAt time.Time) (domain.Message, error)
	MarkRead(ctx context.Context, id domain.MessageID) error
	QueryConversation(ctx context.Context, userA, userB domain.UserID, skip, take int) ([]domain.Message, error)
	CountUnread(ctx context.Context, receiverID, senderID domain.UserID) (int, error)
}

// LinkSnap pairs a live link with its addressing data.
type LinkSnap struct {
	Conn     ConnectionID
	UserName domain.UserName
	Link     PeerLink
	OpenedAt time.Time
}

// PresenceRegistry owns the userName -> live connections mapping.
// A user name is present iff it has at least one live connection.
// Implementations must be safe under arbitrary concurrent invocation
// and must not perform I/O inside their critical sections.
type PresenceRegistry interface {
	// Connect adds the connection to the user's set, creating the entry
	// if absent. Idempotent per connection id.
	Connect(name domain.UserName, id ConnectionID, link PeerLink)
	// Disconnect removes the connection and reports whether it was the
	// user's last one (the entry is gone afterwards).
	Disconnect(name domain.UserName, id ConnectionID) (wasLast bool)
	ListOnlineUserNames() []domain.UserName
	// ConnectionsFor returns connection ids in open order; empty when offline.
	ConnectionsFor(name domain.UserName) []ConnectionID
	LinksFor(name domain.UserName) []LinkSnap
	// Snapshot returns every live link across all users.
	Snapshot() []LinkSnap
}
