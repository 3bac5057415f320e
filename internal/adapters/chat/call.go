package chat

import (
	"context"
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/trycode2018/chathub/internal/domain"
)

func (ctl *Controller) handleSendOffer(ctx context.Context, s *session, data []byte) {
	type offerPayload struct {
		Type       string `json:"type"`
		ReceiverID string `json:"receiverId" validate:"required"`
		SDP        string `json:"sdp" validate:"required"`
	}
	var p offerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("bad offer payload")
		ctl.sendError(s, "sendOffer", "bad_payload")
		return
	}
	if err := validate.Struct(p); err != nil {
		ctl.sendError(s, "sendOffer", "bad_payload")
		return
	}

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: p.SDP}
	if _, err := ctl.Hub.Calls.SendOffer(ctx, s.userName, domain.UserID(p.ReceiverID), offer); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("relay offer")
		ctl.sendError(s, "sendOffer", "relay_failed")
	}
}

func (ctl *Controller) handleSendAnswer(ctx context.Context, s *session, data []byte) {
	type answerPayload struct {
		Type       string `json:"type"`
		ReceiverID string `json:"receiverId" validate:"required"`
		SDP        string `json:"sdp" validate:"required"`
	}
	var p answerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("bad answer payload")
		ctl.sendError(s, "sendAnswer", "bad_payload")
		return
	}
	if err := validate.Struct(p); err != nil {
		ctl.sendError(s, "sendAnswer", "bad_payload")
		return
	}

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: p.SDP}
	if _, err := ctl.Hub.Calls.SendAnswer(ctx, s.userName, domain.UserID(p.ReceiverID), answer); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("relay answer")
		ctl.sendError(s, "sendAnswer", "relay_failed")
	}
}

func (ctl *Controller) handleSendIceCandidate(ctx context.Context, s *session, data []byte) {
	type candidatePayload struct {
		Type          string  `json:"type"`
		ReceiverID    string  `json:"receiverId" validate:"required"`
		Candidate     string  `json:"candidate" validate:"required"`
		SDPMid        string  `json:"sdpMid"`
		SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
	}
	var p candidatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("bad candidate payload")
		ctl.sendError(s, "sendIceCandidate", "bad_payload")
		return
	}
	if err := validate.Struct(p); err != nil {
		ctl.sendError(s, "sendIceCandidate", "bad_payload")
		return
	}

	// Optional fields pass through as absent, not as zero values.
	cand := webrtc.ICECandidateInit{Candidate: p.Candidate, SDPMLineIndex: p.SDPMLineIndex}
	if p.SDPMid != "" {
		cand.SDPMid = &p.SDPMid
	}

	if _, err := ctl.Hub.Calls.SendIceCandidate(ctx, s.userName, domain.UserID(p.ReceiverID), cand); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("relay candidate")
		ctl.sendError(s, "sendIceCandidate", "relay_failed")
	}
}

func (ctl *Controller) handleEndCall(ctx context.Context, s *session, data []byte) {
	type endPayload struct {
		Type       string `json:"type"`
		ReceiverID string `json:"receiverId" validate:"required"`
	}
	var p endPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("bad endCall payload")
		ctl.sendError(s, "endCall", "bad_payload")
		return
	}
	if err := validate.Struct(p); err != nil {
		ctl.sendError(s, "endCall", "bad_payload")
		return
	}

	if _, err := ctl.Hub.Calls.EndCall(ctx, s.userName, domain.UserID(p.ReceiverID)); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("relay end call")
		ctl.sendError(s, "endCall", "relay_failed")
	}
}
