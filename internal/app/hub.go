// Package app wires the presence registry, the delivery engine, the
// notification fan-out and the call-signaling relay behind the two
// transport entry points OnOpen and OnClose.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/trycode2018/chathub/internal/core"
	"github.com/trycode2018/chathub/internal/domain"
)

// Options carries the deployment-configurable delivery policies.
type Options struct {
	// EchoToSender pushes a sent message to the sender's other
	// connections so several devices stay consistent.
	EchoToSender bool
	// PageSize is the history page size; 0 means DefaultPageSize.
	PageSize int
}

type Hub struct {
	Presence  core.PresenceRegistry
	Directory core.Directory
	Delivery  *Delivery
	Fanout    *Fanout
	Calls     *CallRelay
}

func NewHub(presence core.PresenceRegistry, dir core.Directory, store core.MessageStore, opts Options) *Hub {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	h := &Hub{
		Presence:  presence,
		Directory: dir,
	}
	h.Delivery = &Delivery{presence: presence, dir: dir, store: store, echoToSender: opts.EchoToSender, pageSize: opts.PageSize}
	h.Fanout = &Fanout{presence: presence, dir: dir, store: store}
	h.Calls = &CallRelay{presence: presence, dir: dir}
	return h
}

// OnOpen is invoked by the transport once a connection is authenticated.
// The registry is mutated before anything is announced, so no other
// connection can observe the announcement ahead of the presence change.
func (h *Hub) OnOpen(ctx context.Context, name domain.UserName, id core.ConnectionID, link core.PeerLink) error {
	ident, err := h.Directory.FindByUserName(ctx, name)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", name, err)
	}
	h.Presence.Connect(name, id, link)
	h.Fanout.AnnounceJoined(ident, id)
	h.Fanout.AnnouncePresenceChanged(ctx)
	return nil
}

// OnClose is invoked by the transport after the connection is gone. It
// never fails; a vanished connection has nothing left to report to.
func (h *Hub) OnClose(ctx context.Context, name domain.UserName, id core.ConnectionID) {
	wasLast := h.Presence.Disconnect(name, id)
	if wasLast {
		log.Info().Str("module", "app.hub").Str("user", string(name)).Msg("user went offline")
	}
	h.Fanout.AnnouncePresenceChanged(ctx)
}
