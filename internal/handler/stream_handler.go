package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/loops-backend/internal/model"
	"github.com/shinyyama/loops-backend/internal/realtime"
	"github.com/shinyyama/loops-backend/internal/reqctx"
	"github.com/shinyyama/loops-backend/internal/service"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

// StreamHandler serves a viewer's thread over a websocket: the backlog
// first, then every new message of the thread as it is appended.
type StreamHandler struct {
	threads  service.ThreadService
	messages service.MessageService
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

func NewStreamHandler(threads service.ThreadService, messages service.MessageService, hub *realtime.Hub, allowOrigin func(origin string) bool) *StreamHandler {
	return &StreamHandler{
		threads:  threads,
		messages: messages,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowOrigin == nil || allowOrigin(origin)
			},
		},
	}
}

// StreamFrame is one websocket text frame. Type "message" carries a row;
// "resync" tells the client it fell behind and must reload the thread.
// Messages queued together are written in (createdAt, id) order, but two
// appends committed at nearly the same time can still reach the stream in
// separate batches, so clients place each frame by (createdAt, id) rather
// than appending it.
type StreamFrame struct {
	Type    string           `json:"type"`
	Message *MessageResponse `json:"message,omitempty"`
}

func (h *StreamHandler) Live(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	id, ok := parseListingID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid listing id"))
	}
	withListing(c, id)
	ctx := c.Request().Context()

	th, err := h.threads.ResolveThread(ctx, uid, id, c.QueryParam("with"))
	if err != nil {
		return respondError(c, err)
	}

	// subscribe before reading the backlog so nothing appended in between is
	// missed; the view drops whatever arrives twice
	sub := h.hub.Subscribe(id, uid, th.CounterpartyUID)
	defer h.hub.Unsubscribe(sub)

	backlog, err := h.messages.ListMessages(ctx, id, uid, th.CounterpartyUID)
	if err != nil {
		return respondError(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		log.Printf("%s websocket upgrade failed: %v", reqctx.LogPrefix(ctx), err)
		return nil
	}
	defer conn.Close()

	view := realtime.NewThreadView(backlog)
	for _, m := range view.Messages() {
		if err := writeMessageFrame(conn, m); err != nil {
			return nil
		}
	}

	closed := make(chan struct{})
	go readUntilClosed(conn, closed)

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return nil
		case <-ctx.Done():
			return nil
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return nil
			}
		case m, ok := <-sub.C:
			if !ok {
				if h.hub.Overflowed(sub) {
					_ = writeFrame(conn, StreamFrame{Type: "resync"})
				}
				return nil
			}
			batch, open := realtime.Drain(m, sub.C)
			for _, fresh := range view.InsertAll(batch) {
				if err := writeMessageFrame(conn, fresh); err != nil {
					return nil
				}
			}
			if !open {
				if h.hub.Overflowed(sub) {
					_ = writeFrame(conn, StreamFrame{Type: "resync"})
				}
				return nil
			}
		}
	}
}

// readUntilClosed drains client frames so control messages are processed,
// and signals once the connection is gone.
func readUntilClosed(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeMessageFrame(conn *websocket.Conn, m model.Message) error {
	resp := toMessageResponse(&m)
	return writeFrame(conn, StreamFrame{Type: "message", Message: &resp})
}

func writeFrame(conn *websocket.Conn, f StreamFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(f)
}
