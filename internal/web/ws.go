package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chessplayer-web/pkg/viewdto"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

// handleWS upgrades to a websocket, pushes an initial snapshot and then
// forwards page events to the session while relaying its broadcasts.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if id == "" {
		http.Error(w, "no session", http.StatusNotFound)
		return
	}
	sess := s.hub.Get(r.Context(), id)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.logger.Warn("ws_accept_failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	st, err := sess.Snapshot(ctx)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "session unavailable")
		return
	}
	if err := writeMessage(ctx, conn, viewdto.ServerMessage{Type: viewdto.MessageState, State: &st}); err != nil {
		return
	}

	go s.relay(ctx, cancel, conn, out)

	logger := s.logger.With(zap.String("session_id", id))
	for {
		var ev viewdto.ClientEvent
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				logger.Debug("ws_read_failed", zap.Error(err))
			}
			return
		}
		ack, err := sess.Dispatch(ctx, ev)
		if err != nil {
			logger.Debug("ws_event_rejected", zap.String("type", ev.Type), zap.Error(err))
			_ = writeMessage(ctx, conn, viewdto.ServerMessage{
				Type:  viewdto.MessageError,
				Error: &viewdto.ErrorDetail{Code: "bad_event", Message: err.Error()},
			})
			continue
		}
		if err := writeMessage(ctx, conn, viewdto.ServerMessage{Type: viewdto.MessageAck, Ack: &ack}); err != nil {
			return
		}
	}
}

// relay copies session broadcasts to the connection and keeps it alive with pings.
func (s *Server) relay(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan []byte) {
	defer cancel()
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-out:
			wctx, wcancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, data)
			wcancel()
			if err != nil {
				return
			}
		case <-ping.C:
			pctx, pcancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				s.logger.Debug("ws_ping_failed", zap.Error(err))
				return
			}
		}
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msg viewdto.ServerMessage) error {
	wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, msg)
}
