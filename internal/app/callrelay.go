package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/trycode2018/chathub/internal/core"
	"github.com/trycode2018/chathub/internal/domain"
)

// CallRelay forwards call-setup payloads between two peers. It is
// stateless, keeps nothing, and never interprets SDP or candidates; the
// pion types are used as wire format only. An offline or unknown
// recipient means the payload reaches zero connections, which is not an
// error: call setup handles its own timeout above this layer.
type CallRelay struct {
	presence core.PresenceRegistry
	dir      core.Directory
}

func (r *CallRelay) SendOffer(ctx context.Context, callerName domain.UserName, recipientID domain.UserID, offer webrtc.SessionDescription) (int, error) {
	return r.relay(ctx, callerName, recipientID, core.EvtReceiveOffer, func(from domain.UserID) any {
		return struct {
			From  domain.UserID             `json:"from"`
			Offer webrtc.SessionDescription `json:"offer"`
		}{from, offer}
	})
}

func (r *CallRelay) SendAnswer(ctx context.Context, callerName domain.UserName, recipientID domain.UserID, answer webrtc.SessionDescription) (int, error) {
	return r.relay(ctx, callerName, recipientID, core.EvtReceiveAnswer, func(from domain.UserID) any {
		return struct {
			From   domain.UserID             `json:"from"`
			Answer webrtc.SessionDescription `json:"answer"`
		}{from, answer}
	})
}

func (r *CallRelay) SendIceCandidate(ctx context.Context, callerName domain.UserName, recipientID domain.UserID, cand webrtc.ICECandidateInit) (int, error) {
	return r.relay(ctx, callerName, recipientID, core.EvtReceiveIceCandidate, func(from domain.UserID) any {
		return struct {
			From      domain.UserID           `json:"from"`
			Candidate webrtc.ICECandidateInit `json:"candidate"`
		}{from, cand}
	})
}

func (r *CallRelay) EndCall(ctx context.Context, callerName domain.UserName, recipientID domain.UserID) (int, error) {
	return r.relay(ctx, callerName, recipientID, core.EvtCallEnded, func(from domain.UserID) any {
		return struct {
			From domain.UserID `json:"from"`
		}{from}
	})
}

func (r *CallRelay) relay(ctx context.Context, callerName domain.UserName, recipientID domain.UserID, event string, payload func(from domain.UserID) any) (int, error) {
	caller, err := r.dir.FindByUserName(ctx, callerName)
	if err != nil {
		return 0, fmt.Errorf("resolve caller %q: %w", callerName, err)
	}
	recipient, err := r.dir.FindByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, core.ErrIdentityNotFound) {
			log.Debug().Str("module", "app.callrelay").Str("event", event).Str("to", string(recipientID)).Msg("recipient unknown, relayed to nobody")
			return 0, nil
		}
		return 0, fmt.Errorf("resolve recipient %s: %w", recipientID, err)
	}
	frame, err := core.Encode(event, payload(caller.ID))
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", event, err)
	}
	sent := 0
	for _, snap := range r.presence.LinksFor(recipient.UserName) {
		if err := snap.Link.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.callrelay").Str("conn", string(snap.Conn)).Msg("dropped signaling frame")
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.callrelay").Str("event", event).Str("from", string(caller.ID)).Str("to", string(recipientID)).Int("sent_to", sent).Msg("signaling relayed")
	return sent, nil
}
