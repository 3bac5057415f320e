package core

import (
	"encoding/json"

	"github.com/trycode2018/chathub/internal/domain"
)

// Outbound event names. The transport delivers each one addressed to a
// single connection, to one user's full connection set, or to all
// connections except one.
const (
	EvtPresenceChanged     = "presenceChanged"
	EvtUserJoined          = "userJoined"
	EvtReceiveMessageList  = "receiveMessageList"
	EvtReceiveNewMessage   = "receiveNewMessage"
	EvtTypingNotification  = "typingNotification"
	EvtReceiveOffer        = "receiveOffer"
	EvtReceiveAnswer       = "receiveAnswer"
	EvtReceiveIceCandidate = "receiveIceCandidate"
	EvtCallEnded           = "callEnded"
	EvtError               = "error"
	EvtPong                = "pong"
)

type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

func Encode(event string, payload any) (Frame, error) {
	b, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}

// OnlineUserView is one row of the presence list pushed on
// presenceChanged. UnreadCount is from the viewer's perspective, so the
// list is recomputed per viewer.
type OnlineUserView struct {
	ID          domain.UserID   `json:"id"`
	UserName    domain.UserName `json:"userName"`
	DisplayName string          `json:"displayName"`
	AvatarRef   string          `json:"avatarRef,omitempty"`
	IsOnline    bool            `json:"isOnline"`
	UnreadCount int             `json:"unreadCount"`
}
