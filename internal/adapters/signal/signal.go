package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Nocturne/internal/app"
	"github.com/dkeye/Nocturne/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

type Controller struct {
	Dispatcher *app.Dispatcher
	Auth       core.Authenticator
	ReadLimit  int64
}

// WsConn adapts one websocket to core.Conn. Sends are non-blocking:
// a full send buffer means the client is too slow and the frame is
// dropped.
type WsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
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

// Handle upgrades the connection, runs the identity handshake, hands
// the session to the dispatcher and starts the pumps. No registry
// state is touched before Verify succeeds.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	credential := c.Query("token")
	if credential == "" {
		credential = string(sid)
	}

	identity, err := ctl.Auth.Verify(c.Request.Context(), credential)
	if err != nil {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Err(err).Msg("handshake rejected")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &WsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	sess := app.NewSession(sid, identity.User(), conn)

	restored := ctl.Dispatcher.Attach(ctx, sess)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("uid", string(identity.UserID)).Bool("restored", restored).Msg("session attached")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sess, conn)
}
