package core

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trycode2018/chathub/internal/domain"
)

// presenceImpl is a threadsafe in-memory presence registry.
// It never closes adapter-owned links. Slices are kept in open order so
// ConnectionsFor reflects connection age.
type presenceImpl struct {
	mu     sync.RWMutex
	byUser map[domain.UserName][]presenceSlot
}

type presenceSlot struct {
	conn     ConnectionID
	link     PeerLink
	openedAt time.Time
}

func NewPresenceRegistry() PresenceRegistry {
	return &presenceImpl{byUser: make(map[domain.UserName][]presenceSlot)}
}

func (p *presenceImpl) Connect(name domain.UserName, id ConnectionID, link PeerLink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	slots := p.byUser[name]
	for i := range slots {
		if slots[i].conn == id {
			// Reconnect with the same id just refreshes the link.
			slots[i].link = link
			return
		}
	}
	p.byUser[name] = append(slots, presenceSlot{conn: id, link: link, openedAt: time.Now()})
	log.Info().Str("module", "core.presence").Str("user", string(name)).Str("conn", string(id)).Int("connections", len(slots)+1).Msg("connection registered")
}

func (p *presenceImpl) Disconnect(name domain.UserName, id ConnectionID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	slots, ok := p.byUser[name]
	if !ok {
		return false
	}
	kept := slots[:0]
	for _, s := range slots {
		if s.conn != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(p.byUser, name)
		log.Info().Str("module", "core.presence").Str("user", string(name)).Str("conn", string(id)).Msg("last connection gone")
		return true
	}
	p.byUser[name] = kept
	log.Info().Str("module", "core.presence").Str("user", string(name)).Str("conn", string(id)).Int("connections", len(kept)).Msg("connection removed")
	return false
}

func (p *presenceImpl) ListOnlineUserNames() []domain.UserName {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.UserName, 0, len(p.byUser))
	for name := range p.byUser {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (p *presenceImpl) ConnectionsFor(name domain.UserName) []ConnectionID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	slots := p.byUser[name]
	out := make([]ConnectionID, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.conn)
	}
	return out
}

func (p *presenceImpl) LinksFor(name domain.UserName) []LinkSnap {
	p.mu.RLock()
	defer p.mu.RUnlock()
	slots := p.byUser[name]
	out := make([]LinkSnap, 0, len(slots))
	for _, s := range slots {
		out = append(out, LinkSnap{Conn: s.conn, UserName: name, Link: s.link, OpenedAt: s.openedAt})
	}
	return out
}

func (p *presenceImpl) Snapshot() []LinkSnap {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]LinkSnap, 0, len(p.byUser))
	for name, slots := range p.byUser {
		for _, s := range slots {
			out = append(out, LinkSnap{Conn: s.conn, UserName: name, Link: s.link, OpenedAt: s.openedAt})
		}
	}
	return out
}
