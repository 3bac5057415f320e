package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/trycode2018/chathub/internal/core"
	"github.com/trycode2018/chathub/internal/domain"
)

const DefaultPageSize = 10

// ErrRecipientUnknown means the receiver id did not resolve in the
// directory. The message is persisted before resolution, so a caller
// seeing this error still has a durable record.
var ErrRecipientUnknown = errors.New("recipient unknown")

// Delivery persists sent messages, routes them to live connections and
// owns the read-receipt transition.
type Delivery struct {
	presence     core.PresenceRegistry
	dir          core.Directory
	store        core.MessageStore
	echoToSender bool
	pageSize     int
}

// Send stamps and persists the message, then pushes it to every live
// connection of the receiver. Persist happens before any broadcast so
// delivery order per conversation matches createdAt order. Delivery is
// best-effort per target; an offline receiver simply picks the message
// up on the next history load.
func (d *Delivery) Send(ctx context.Context, senderName domain.UserName, origin core.ConnectionID, receiverID domain.UserID, content string) (domain.Message, error) {
	if err := domain.ValidateContent(content); err != nil {
		return domain.Message{}, err
	}
	sender, err := d.dir.FindByUserName(ctx, senderName)
	if err != nil {
		return domain.Message{}, fmt.Errorf("resolve sender %q: %w", senderName, err)
	}

	msg, err := d.store.Append(ctx, sender.ID, receiverID, content, time.Now().UTC())
	if err != nil {
		return domain.Message{}, fmt.Errorf("append message: %w", err)
	}

	receiver, err := d.dir.FindByID(ctx, receiverID)
	if err != nil {
		if errors.Is(err, core.ErrIdentityNotFound) {
			return msg, fmt.Errorf("%w: %s", ErrRecipientUnknown, receiverID)
		}
		return msg, fmt.Errorf("resolve receiver %s: %w", receiverID, err)
	}

	frame, err := core.Encode(core.EvtReceiveNewMessage, msg)
	if err != nil {
		return msg, fmt.Errorf("encode message event: %w", err)
	}
	sent := d.push(receiver.UserName, "", frame)
	if d.echoToSender && receiver.UserName != sender.UserName {
		sent += d.push(sender.UserName, origin, frame)
	}
	log.Debug().Str("module", "app.delivery").Uint64("msg", uint64(msg.ID)).Str("from", string(sender.ID)).Str("to", string(receiverID)).Int("sent_to", sent).Msg("message routed")
	return msg, nil
}

// LoadHistory returns one page of the conversation between the
// requester and the peer, oldest first within the page. Every returned
// message addressed to the requester that is still unread is marked
// read; replaying the same page is a no-op.
func (d *Delivery) LoadHistory(ctx context.Context, requesterName domain.UserName, peerID domain.UserID, page int) ([]domain.Message, error) {
	requester, err := d.dir.FindByUserName(ctx, requesterName)
	if err != nil {
		return nil, fmt.Errorf("resolve requester %q: %w", requesterName, err)
	}
	if page < 1 {
		page = 1
	}
	msgs, err := d.store.QueryConversation(ctx, requester.ID, peerID, (page-1)*d.pageSize, d.pageSize)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	// The store hands back newest first; display order is oldest first.
	msgs = lo.Reverse(msgs)
	for i := range msgs {
		m := &msgs[i]
		if m.ReceiverID != requester.ID || m.IsRead {
			continue
		}
		if err := d.store.MarkRead(ctx, m.ID); err != nil {
			return nil, fmt.Errorf("mark read %d: %w", m.ID, err)
		}
		m.IsRead = true
	}
	return msgs, nil
}

// UnreadCountFor is a pure query: how many persisted messages from one
// user the viewer has not read yet.
func (d *Delivery) UnreadCountFor(ctx context.Context, viewerName domain.UserName, fromID domain.UserID) (int, error) {
	viewer, err := d.dir.FindByUserName(ctx, viewerName)
	if err != nil {
		return 0, fmt.Errorf("resolve viewer %q: %w", viewerName, err)
	}
	n, err := d.store.CountUnread(ctx, viewer.ID, fromID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// push delivers a frame to every connection of one user, skipping at
// most one connection id. Each target is independent: a full or closed
// link is logged and the rest still get the frame.
func (d *Delivery) push(name domain.UserName, skip core.ConnectionID, frame core.Frame) int {
	sent := 0
	for _, snap := range d.presence.LinksFor(name) {
		if snap.Conn == skip {
			continue
		}
		if err := snap.Link.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.delivery").Str("user", string(name)).Str("conn", string(snap.Conn)).Msg("dropped frame")
			continue
		}
		sent++
	}
	return sent
}
