package chat

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/trycode2018/chathub/internal/app"
	"github.com/trycode2018/chathub/internal/core"
	"github.com/trycode2018/chathub/internal/domain"
)

func (ctl *Controller) handleSendMessage(ctx context.Context, s *session, data []byte) {
	type sendPayload struct {
		Type       string `json:"type"`
		ReceiverID string `json:"receiverId" validate:"required"`
		Content    string `json:"content" validate:"required,max=4096"`
	}
	var p sendPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("bad sendMessage payload")
		ctl.sendError(s, "sendMessage", "bad_payload")
		return
	}
	if err := validate.Struct(p); err != nil {
		ctl.sendError(s, "sendMessage", "bad_payload")
		return
	}

	_, err := ctl.Hub.Delivery.Send(ctx, s.userName, s.connID, domain.UserID(p.ReceiverID), p.Content)
	if err != nil {
		log.Error().Err(err).Str("module", "chat").Str("user", string(s.userName)).Msg("send failed")
		switch {
		case errors.Is(err, app.ErrRecipientUnknown):
			ctl.sendError(s, "sendMessage", "recipient_unknown")
		case errors.Is(err, core.ErrIdentityNotFound):
			ctl.sendError(s, "sendMessage", "identity_not_found")
		default:
			ctl.sendError(s, "sendMessage", "send_failed")
		}
	}
}

func (ctl *Controller) handleLoadMessages(ctx context.Context, s *session, data []byte) {
	type loadPayload struct {
		Type   string `json:"type"`
		PeerID string `json:"peerId" validate:"required"`
		Page   int    `json:"page"`
	}
	var p loadPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("bad loadMessages payload")
		ctl.sendError(s, "loadMessages", "bad_payload")
		return
	}
	if err := validate.Struct(p); err != nil {
		ctl.sendError(s, "loadMessages", "bad_payload")
		return
	}

	msgs, err := ctl.Hub.Delivery.LoadHistory(ctx, s.userName, domain.UserID(p.PeerID), p.Page)
	if err != nil {
		log.Error().Err(err).Str("module", "chat").Str("user", string(s.userName)).Msg("load history failed")
		ctl.sendError(s, "loadMessages", "load_failed")
		return
	}
	// The history page goes only to the requesting connection.
	ctl.sendJSON(s, core.EvtReceiveMessageList, msgs)
}

func (ctl *Controller) handleNotifyTyping(s *session, data []byte) {
	type typingPayload struct {
		Type              string `json:"type"`
		RecipientUserName string `json:"recipientUserName" validate:"required"`
	}
	var p typingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("bad notifyTyping payload")
		return
	}
	if err := validate.Struct(p); err != nil {
		return
	}
	if !ctl.typing.Allow(s.userName) {
		log.Debug().Str("module", "chat").Str("user", string(s.userName)).Msg("typing throttled")
		return
	}
	ctl.Hub.Fanout.RelayTyping(s.userName, domain.UserName(p.RecipientUserName))
}
