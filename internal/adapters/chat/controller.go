// Package chat is the WebSocket adapter: it upgrades authenticated
// connections, pumps frames, and dispatches the closed set of inbound
// operations to the hub.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/trycode2018/chathub/internal/app"
	"github.com/trycode2018/chathub/internal/config"
	"github.com/trycode2018/chathub/internal/core"
	"github.com/trycode2018/chathub/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

var validate = validator.New()

type Controller struct {
	Hub    *app.Hub
	cfg    *config.Config
	typing *TypingRateLimiter
}

func NewController(hub *app.Hub, cfg *config.Config) *Controller {
	return &Controller{
		Hub:    hub,
		cfg:    cfg,
		typing: NewTypingRateLimiter(cfg.TypingLimit, cfg.TypingWindow),
	}
}

// session is one live connection's addressing data, fixed at open time.
type session struct {
	userName domain.UserName
	connID   core.ConnectionID
	link     core.PeerLink
}

type wsChatConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsChatConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsChatConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *Controller) HandleChat(ctx context.Context, c *gin.Context) {
	userName := domain.UserName(c.GetString("user_name"))
	connID := core.ConnectionID(uuid.NewString())
	log.Info().Str("module", "chat").Str("user", string(userName)).Str("conn", string(connID)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.cfg.ReadLimit)

	conn := &wsChatConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	s := &session{userName: userName, connID: connID, link: conn}

	ctx, cancel := context.WithCancel(ctx)
	if err := ctl.Hub.OnOpen(ctx, userName, connID, conn); err != nil {
		log.Error().Err(err).Str("module", "chat").Str("user", string(userName)).Msg("open rejected")
		cancel()
		conn.Close()
		return
	}

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, s, conn)
}

func (ctl *Controller) writePump(ctx context.Context, c *wsChatConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer ticker.Stop()
	// Closing here fails the blocked read, so readPump always gets to
	// run its OnClose cleanup no matter which pump dies first.
	defer c.Close()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "chat").Msg("writePump ctx done")
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "chat").Msg("writePump ping error")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "chat").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "chat").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "chat").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, s *session, c *wsChatConn) {
	defer func() {
		log.Info().Str("module", "chat").Str("conn", string(s.connID)).Msg("readPump closing")
		// The ctx may already be canceled; departure must still be
		// announced, so OnClose gets a fresh context.
		ctl.Hub.OnClose(context.Background(), s.userName, s.connID)
		cancel()
		c.Close()
	}()

	// A live peer answers the keepalive pings, refreshing the deadline;
	// a silently vanished one stops doing so and the read errors out.
	wait := 2 * ctl.cfg.PingPeriod
	_ = c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "chat").Str("conn", string(s.connID)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "chat").Str("conn", string(s.connID)).Msg("readPump read error")
				return
			}
			ctl.dispatch(ctx, s, data)
		}
	}
}

func (ctl *Controller) dispatch(ctx context.Context, s *session, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("bad json")
		ctl.sendError(s, "", "bad_payload")
		return
	}

	switch env.Type {
	case "ping":
		ctl.sendJSON(s, core.EvtPong, nil)
	case "sendMessage":
		ctl.handleSendMessage(ctx, s, data)
	case "loadMessages":
		ctl.handleLoadMessages(ctx, s, data)
	case "notifyTyping":
		ctl.handleNotifyTyping(s, data)
	case "sendOffer":
		ctl.handleSendOffer(ctx, s, data)
	case "sendAnswer":
		ctl.handleSendAnswer(ctx, s, data)
	case "sendIceCandidate":
		ctl.handleSendIceCandidate(ctx, s, data)
	case "endCall":
		ctl.handleEndCall(ctx, s, data)
	default:
		log.Warn().Str("module", "chat").Str("type", env.Type).Msg("unknown operation")
		ctl.sendError(s, env.Type, "unknown_operation")
	}
}

func (ctl *Controller) sendJSON(s *session, event string, payload any) {
	frame, err := core.Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "chat").Str("event", event).Msg("encode event")
		return
	}
	_ = s.link.TrySend(frame)
}

func (ctl *Controller) sendError(s *session, op, reason string) {
	ctl.sendJSON(s, core.EvtError, struct {
		Op    string `json:"op,omitempty"`
		Error string `json:"error"`
	}{op, reason})
}
