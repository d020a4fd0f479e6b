// Package transport carries display traffic to clients over websockets and
// hands their input to a Handler.
package transport

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"

	"github.com/danmuck/overlayctl/internal/dispatch"
	"github.com/danmuck/overlayctl/internal/observability"
	"github.com/danmuck/overlayctl/internal/protocol/schema"
	"github.com/danmuck/overlayctl/internal/protocol/session"
)

var (
	ErrOffline           = errors.New("transport: client offline")
	ErrUnexpectedMessage = errors.New("transport: unexpected message")
)

// Handler receives client lifecycle and input. Input errors are logged and
// the client stays connected; a Connected error rejects the hello.
type Handler interface {
	Connected(client dispatch.ClientID, hello session.Hello) error
	Disconnected(client dispatch.ClientID)
	Interact(client dispatch.ClientID, m session.Interact)
	ToolClick(client dispatch.ClientID, m session.ToolClick) error
	WorldChange(client dispatch.ClientID, m session.WorldChange) error
	DebugMark(client dispatch.ClientID, m session.DebugMark) error
	SelectionRefresh(client dispatch.ClientID) error
}

// Hub is the dispatch.Network for websocket clients.
type Hub struct {
	cfg      session.Config
	handler  Handler
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	peers map[dispatch.ClientID]*peer

	nextEntity atomic.Uint32
}

var _ dispatch.Network = (*Hub)(nil)

func NewHub(cfg session.Config, handler Handler) *Hub {
	return &Hub{
		cfg:     cfg.WithDefaults(),
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		peers: make(map[dispatch.ClientID]*peer),
	}
}

type peer struct {
	id      dispatch.ClientID
	conn    *websocket.Conn
	timeout time.Duration

	wmu  sync.Mutex
	once sync.Once
	done chan struct{}
}

// write sends one message guarded by the peer's mutex and write deadline.
func (p *peer) write(messageType int, data []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	if err := p.conn.SetWriteDeadline(time.Now().Add(p.timeout)); err != nil {
		return err
	}
	return p.conn.WriteMessage(messageType, data)
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

func (h *Hub) IsOnline(c dispatch.ClientID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.peers[c]
	return ok
}

// Send writes one binary frame to c. A failed write drops the client.
func (h *Hub) Send(c dispatch.ClientID, msg []byte) error {
	h.mu.RLock()
	p := h.peers[c]
	h.mu.RUnlock()
	if p == nil {
		return fmt.Errorf("%w: %s", ErrOffline, c)
	}
	if err := p.write(websocket.BinaryMessage, msg); err != nil {
		p.close()
		return err
	}
	return nil
}

func (h *Hub) NextEntityID() dispatch.EntityID {
	return dispatch.EntityID(h.nextEntity.Add(1))
}

// Clients lists connected client ids in order.
func (h *Hub) Clients() []dispatch.ClientID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]dispatch.ClientID, 0, len(h.peers))
	for id := range h.peers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Close drops every client.
func (h *Hub) Close() {
	h.mu.RLock()
	peers := make([]*peer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.RUnlock()
	for _, p := range peers {
		p.close()
	}
}

// ServeHTTP upgrades the request and serves the client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("transport.Hub upgrade failed")
		return
	}
	h.serve(conn)
}

func (h *Hub) serve(conn *websocket.Conn) {
	conn.SetReadLimit(h.cfg.MaxMessageBytes)
	hello, err := h.readHello(conn)
	if err != nil {
		log.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("transport.Hub hello failed")
		_ = conn.Close()
		return
	}

	id := dispatch.ClientID(ksuid.New().String())
	if err := h.handler.Connected(id, hello); err != nil {
		log.Info().Err(err).Str("name", hello.Name).Msg("transport.Hub hello rejected")
		_ = h.writeAck(conn, session.HelloAck{
			Status:      session.AckStatusRejected,
			Message:     err.Error(),
			TimestampMS: nowMS(),
		})
		_ = conn.Close()
		return
	}

	p := &peer{id: id, conn: conn, timeout: h.cfg.WriteTimeout, done: make(chan struct{})}
	if err := h.writeAck(conn, session.HelloAck{
		Status:      session.AckStatusAccepted,
		ClientID:    string(id),
		TimestampMS: nowMS(),
	}); err != nil {
		log.Warn().Err(err).Str("client", string(id)).Msg("transport.Hub ack failed")
		h.handler.Disconnected(id)
		_ = conn.Close()
		return
	}

	h.mu.Lock()
	h.peers[id] = p
	h.mu.Unlock()
	observability.ClientConnected()
	log.Info().Str("client", string(id)).Str("name", hello.Name).Str("world", hello.World).Msg("transport.Hub connected")

	go h.pingLoop(p)
	err = h.readLoop(p)

	h.mu.Lock()
	delete(h.peers, id)
	h.mu.Unlock()
	p.close()
	observability.ClientDisconnected()
	h.handler.Disconnected(id)

	ev := log.Info()
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		ev = log.Warn().Err(err)
	}
	ev.Str("client", string(id)).Msg("transport.Hub disconnected")
}

func (h *Hub) readHello(conn *websocket.Conn) (session.Hello, error) {
	if err := conn.SetReadDeadline(time.Now().Add(h.cfg.HandshakeTimeout)); err != nil {
		return session.Hello{}, err
	}
	mt, r, err := conn.NextReader()
	if err != nil {
		return session.Hello{}, err
	}
	if mt != websocket.TextMessage {
		return session.Hello{}, fmt.Errorf("%w: hello must be text", session.ErrInvalidHello)
	}
	return session.ReadHello(bufio.NewReader(r))
}

func (h *Hub) writeAck(conn *websocket.Conn, ack session.HelloAck) error {
	if err := conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout)); err != nil {
		return err
	}
	wc, err := conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if err := session.WriteHelloAck(wc, ack); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}

func (h *Hub) pingLoop(p *peer) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			if err := p.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				p.close()
				return
			}
		}
	}
}

func (h *Hub) readLoop(p *peer) error {
	extend := func() error {
		return p.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	}
	if err := extend(); err != nil {
		return err
	}
	p.conn.SetPongHandler(func(string) error { return extend() })

	for {
		mt, data, err := p.conn.ReadMessage()
		if err != nil {
			return err
		}
		if mt != websocket.BinaryMessage {
			return fmt.Errorf("%w: non-binary message", ErrUnexpectedMessage)
		}
		if err := extend(); err != nil {
			return err
		}
		if err := h.route(p.id, data); err != nil {
			return err
		}
	}
}

// route decodes one inbound frame and hands it to the handler. Decode errors
// end the connection.
func (h *Hub) route(id dispatch.ClientID, data []byte) error {
	f, err := session.ParseFrame(data)
	if err != nil {
		return err
	}
	var herr error
	switch f.Header.MessageType {
	case schema.MsgDisplayInteract:
		m, err := session.DecodeInteractFrame(f)
		if err != nil {
			return err
		}
		h.handler.Interact(id, m)
	case schema.MsgToolClick:
		m, err := session.DecodeToolClickFrame(f)
		if err != nil {
			return err
		}
		herr = h.handler.ToolClick(id, m)
	case schema.MsgWorldChange:
		m, err := session.DecodeWorldChangeFrame(f)
		if err != nil {
			return err
		}
		herr = h.handler.WorldChange(id, m)
	case schema.MsgDebugMark:
		m, err := session.DecodeDebugMarkFrame(f)
		if err != nil {
			return err
		}
		herr = h.handler.DebugMark(id, m)
	case schema.MsgSelectionRefresh:
		herr = h.handler.SelectionRefresh(id)
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedMessage, schema.Name(f.Header.MessageType))
	}
	if herr != nil {
		log.Warn().
			Err(herr).
			Str("client", string(id)).
			Str("message", schema.Name(f.Header.MessageType)).
			Msg("transport.Hub input rejected")
	}
	return nil
}

func nowMS() uint64 {
	return uint64(time.Now().UnixMilli())
}
