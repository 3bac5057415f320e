package app

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/trycode2018/chathub/internal/core"
	"github.com/trycode2018/chathub/internal/domain"
)

// Fanout broadcasts presence changes and typing indicators. Every
// target delivery is independent and best-effort: one stale connection
// never aborts the remaining ones.
type Fanout struct {
	presence core.PresenceRegistry
	dir      core.Directory
	store    core.MessageStore
}

// AnnouncePresenceChanged recomputes the online-user list and pushes it
// to every live connection. Unread counts are viewer-relative, so each
// online user gets their own copy of the list. Callers must mutate the
// registry first; the snapshot taken here then already reflects the
// change. Directory and store calls happen outside any registry lock.
func (f *Fanout) AnnouncePresenceChanged(ctx context.Context) {
	names := f.presence.ListOnlineUserNames()
	online := make([]domain.Identity, 0, len(names))
	for _, n := range names {
		ident, err := f.dir.FindByUserName(ctx, n)
		if err != nil {
			log.Warn().Err(err).Str("module", "app.fanout").Str("user", string(n)).Msg("online user not in directory")
			continue
		}
		online = append(online, ident)
	}

	for _, viewer := range online {
		frame, err := core.Encode(core.EvtPresenceChanged, f.viewFor(ctx, viewer, online))
		if err != nil {
			log.Error().Err(err).Str("module", "app.fanout").Msg("encode presence list")
			return
		}
		for _, snap := range f.presence.LinksFor(viewer.UserName) {
			if err := snap.Link.TrySend(frame); err != nil {
				log.Warn().Err(err).Str("module", "app.fanout").Str("conn", string(snap.Conn)).Msg("dropped presence frame")
			}
		}
	}
}

func (f *Fanout) viewFor(ctx context.Context, viewer domain.Identity, online []domain.Identity) []core.OnlineUserView {
	return lo.Map(online, func(u domain.Identity, _ int) core.OnlineUserView {
		v := core.OnlineUserView{
			ID:          u.ID,
			UserName:    u.UserName,
			DisplayName: u.DisplayName,
			AvatarRef:   u.AvatarRef,
			IsOnline:    true,
		}
		if u.ID == viewer.ID {
			return v
		}
		n, err := f.store.CountUnread(ctx, viewer.ID, u.ID)
		if err != nil {
			log.Warn().Err(err).Str("module", "app.fanout").Str("viewer", string(viewer.ID)).Str("from", string(u.ID)).Msg("count unread")
			return v
		}
		v.UnreadCount = n
		return v
	})
}

// AnnounceJoined tells every other connection that a user connected.
func (f *Fanout) AnnounceJoined(joined domain.Identity, except core.ConnectionID) {
	frame, err := core.Encode(core.EvtUserJoined, joined)
	if err != nil {
		log.Error().Err(err).Str("module", "app.fanout").Msg("encode joined event")
		return
	}
	for _, snap := range f.presence.Snapshot() {
		if snap.Conn == except {
			continue
		}
		if err := snap.Link.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.fanout").Str("conn", string(snap.Conn)).Msg("dropped joined frame")
		}
	}
}

// RelayTyping pushes a typing indicator to every connection of the
// recipient. An offline recipient is not an error; the indicator just
// reaches zero connections. Returns how many connections got it.
func (f *Fanout) RelayTyping(senderName, recipientName domain.UserName) int {
	payload := struct {
		FromUserName domain.UserName `json:"fromUserName"`
	}{senderName}
	frame, err := core.Encode(core.EvtTypingNotification, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.fanout").Msg("encode typing event")
		return 0
	}
	sent := 0
	for _, snap := range f.presence.LinksFor(recipientName) {
		if err := snap.Link.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.fanout").Str("conn", string(snap.Conn)).Msg("dropped typing frame")
			continue
		}
		sent++
	}
	return sent
}
