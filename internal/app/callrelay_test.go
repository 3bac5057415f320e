package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"

	"github.com/trycode2018/chathub/internal/core"
	"github.com/trycode2018/chathub/internal/domain"
)

func TestCallRelay_OfferReachesEveryHandleTagged(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(Options{})
	ctx := context.Background()

	first := &fakeLink{}
	second := &fakeLink{}
	hub.Presence.Connect("bob", "c1", first)
	hub.Presence.Connect("bob", "c2", second)

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 fake-sdp"}
	sent, err := hub.Calls.SendOffer(ctx, "alice", "u-bob", offer)
	req.NoError(err)
	req.Equal(2, sent)

	for _, link := range []*fakeLink{first, second} {
		events := link.eventsNamed(t, core.EvtReceiveOffer)
		req.Len(events, 1)
		var p struct {
			From  domain.UserID             `json:"from"`
			Offer webrtc.SessionDescription `json:"offer"`
		}
		req.NoError(json.Unmarshal(events[0].Payload, &p))
		req.Equal(domain.UserID("u-alice"), p.From)
		req.Equal("v=0 fake-sdp", p.Offer.SDP)
	}
}

func TestCallRelay_AnswerAndCandidateAndEnd(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(Options{})
	ctx := context.Background()

	aliceLink := &fakeLink{}
	hub.Presence.Connect("alice", "c-alice", aliceLink)

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 answer"}
	sent, err := hub.Calls.SendAnswer(ctx, "bob", "u-alice", answer)
	req.NoError(err)
	req.Equal(1, sent)

	mid := "0"
	idx := uint16(0)
	cand := webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 1 10.0.0.1 3478 typ host", SDPMid: &mid, SDPMLineIndex: &idx}
	sent, err = hub.Calls.SendIceCandidate(ctx, "bob", "u-alice", cand)
	req.NoError(err)
	req.Equal(1, sent)

	sent, err = hub.Calls.EndCall(ctx, "bob", "u-alice")
	req.NoError(err)
	req.Equal(1, sent)

	req.Len(aliceLink.eventsNamed(t, core.EvtReceiveAnswer), 1)

	candEvents := aliceLink.eventsNamed(t, core.EvtReceiveIceCandidate)
	req.Len(candEvents, 1)
	var cp struct {
		From      domain.UserID           `json:"from"`
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}
	req.NoError(json.Unmarshal(candEvents[0].Payload, &cp))
	req.Equal(domain.UserID("u-bob"), cp.From)
	req.Equal(cand.Candidate, cp.Candidate.Candidate)

	endEvents := aliceLink.eventsNamed(t, core.EvtCallEnded)
	req.Len(endEvents, 1)
	var ep struct {
		From domain.UserID `json:"from"`
	}
	req.NoError(json.Unmarshal(endEvents[0].Payload, &ep))
	req.Equal(domain.UserID("u-bob"), ep.From)
}

func TestCallRelay_OfflineRecipientIsSilent(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(Options{})
	ctx := context.Background()

	// Known but offline: zero handles, no error.
	sent, err := hub.Calls.EndCall(ctx, "alice", "u-bob")
	req.NoError(err)
	req.Equal(0, sent)

	// Unknown recipient id: same outcome, call setup times out above us.
	sent, err = hub.Calls.SendOffer(ctx, "alice", "u-nobody", webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "x"})
	req.NoError(err)
	req.Equal(0, sent)
}

func TestCallRelay_UnknownCallerFails(t *testing.T) {
	hub, _ := newTestHub(Options{})
	_, err := hub.Calls.EndCall(context.Background(), "ghost", "u-bob")
	require.ErrorIs(t, err, core.ErrIdentityNotFound)
}
