package transport

import (
	"bufio"
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danmuck/overlayctl/internal/dispatch"
	"github.com/danmuck/overlayctl/internal/protocol/schema"
	"github.com/danmuck/overlayctl/internal/protocol/session"
	"github.com/danmuck/overlayctl/internal/testutil/testlog"
)

type event struct {
	kind   string
	client dispatch.ClientID
	value  any
}

type recorder struct {
	mu     sync.Mutex
	reject error
	events chan event
}

func newRecorder() *recorder {
	return &recorder{events: make(chan event, 32)}
}

func (r *recorder) push(kind string, c dispatch.ClientID, v any) {
	r.events <- event{kind: kind, client: c, value: v}
}

func (r *recorder) Connected(c dispatch.ClientID, h session.Hello) error {
	r.mu.Lock()
	err := r.reject
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.push("connected", c, h)
	return nil
}

func (r *recorder) Disconnected(c dispatch.ClientID) { r.push("disconnected", c, nil) }

func (r *recorder) Interact(c dispatch.ClientID, m session.Interact) { r.push("interact", c, m) }

func (r *recorder) ToolClick(c dispatch.ClientID, m session.ToolClick) error {
	r.push("tool.click", c, m)
	return nil
}

func (r *recorder) WorldChange(c dispatch.ClientID, m session.WorldChange) error {
	r.push("world.change", c, m)
	return errors.New("unknown world")
}

func (r *recorder) DebugMark(c dispatch.ClientID, m session.DebugMark) error {
	r.push("debug.mark", c, m)
	return nil
}

func (r *recorder) SelectionRefresh(c dispatch.ClientID) error {
	r.push("selection.refresh", c, nil)
	return nil
}

func (r *recorder) next(t *testing.T) event {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for handler event")
		return event{}
	}
}

func startHub(t *testing.T, rec *recorder) (*Hub, string) {
	t.Helper()
	hub := NewHub(session.Config{}, rec)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string, hello session.Hello) (*websocket.Conn, session.HelloAck) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	var buf bytes.Buffer
	if err := session.WriteHello(&buf, hello); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, buf.Bytes()); err != nil {
		t.Fatalf("send hello: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if mt != websocket.TextMessage {
		t.Fatalf("ack must be text, got %d", mt)
	}
	ack, err := session.ReadHelloAck(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	return conn, ack
}

func waitOnline(t *testing.T, hub *Hub, c dispatch.ClientID, online bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.IsOnline(c) != online {
		if time.Now().After(deadline) {
			t.Fatalf("client %s online=%v never reached", c, online)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHelloAcceptedAndFramesDelivered(t *testing.T) {
	testlog.Start(t)
	rec := newRecorder()
	hub, url := startHub(t, rec)

	conn, ack := dial(t, url, session.Hello{Name: "alice", World: "overworld"})
	if ack.Status != session.AckStatusAccepted || ack.ClientID == "" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	ev := rec.next(t)
	if ev.kind != "connected" || string(ev.client) != ack.ClientID {
		t.Fatalf("unexpected event: %+v", ev)
	}
	id := dispatch.ClientID(ack.ClientID)
	waitOnline(t, hub, id, true)

	msg, err := session.EncodeRemoveFrame(1, session.DisplayRemove{EntityID: 7})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := hub.Send(id, msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	mt, data, err := conn.ReadMessage()
	if err != nil || mt != websocket.BinaryMessage || !bytes.Equal(data, msg) {
		t.Fatalf("expected binary frame, got mt=%d err=%v", mt, err)
	}
	if err := hub.Send("nobody", msg); !errors.Is(err, ErrOffline) {
		t.Fatalf("expected ErrOffline, got %v", err)
	}
	if a, b := hub.NextEntityID(), hub.NextEntityID(); a == 0 || b != a+1 {
		t.Fatalf("entity ids must be nonzero and increasing: %d %d", a, b)
	}
}

func TestInputRoutedToHandler(t *testing.T) {
	testlog.Start(t)
	rec := newRecorder()
	hub, url := startHub(t, rec)
	conn, ack := dial(t, url, session.Hello{Name: "alice", World: "overworld"})
	rec.next(t)
	id := dispatch.ClientID(ack.ClientID)

	send := func(b []byte, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	send(session.EncodeToolClickFrame(1, session.ToolClick{World: "overworld", Cell: [3]int32{2, 3, 4}, Face: "up", Action: session.ActionPrimary}))
	send(session.EncodeInteractFrame(2, session.Interact{EntityID: 9}))
	send(session.EncodeWorldChangeFrame(3, session.WorldChange{World: "nowhere"}))
	send(session.EncodeDebugMarkFrame(4, session.DebugMark{World: "overworld", Position: [3]float64{1, 2, 3}}))
	send(session.EncodeSelectionRefreshFrame(5))

	want := []string{"tool.click", "interact", "world.change", "debug.mark", "selection.refresh"}
	for _, kind := range want {
		ev := rec.next(t)
		if ev.kind != kind || ev.client != id {
			t.Fatalf("expected %s from %s, got %+v", kind, id, ev)
		}
	}
	// a handler error leaves the client connected
	if !hub.IsOnline(id) {
		t.Fatalf("client must stay online after a rejected input")
	}
}

func TestMalformedFrameDropsClient(t *testing.T) {
	testlog.Start(t)
	rec := newRecorder()
	hub, url := startHub(t, rec)
	conn, ack := dial(t, url, session.Hello{Name: "alice", World: "overworld"})
	rec.next(t)
	id := dispatch.ClientID(ack.ClientID)
	waitOnline(t, hub, id, true)

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := rec.next(t)
	if ev.kind != "disconnected" || ev.client != id {
		t.Fatalf("expected disconnect, got %+v", ev)
	}
	waitOnline(t, hub, id, false)
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected closed connection")
	}
}

func TestDisplayFrameFromClientIsUnexpected(t *testing.T) {
	testlog.Start(t)
	rec := newRecorder()
	_, url := startHub(t, rec)
	conn, _ := dial(t, url, session.Hello{Name: "alice", World: "overworld"})
	rec.next(t)

	b, err := session.EncodeRemoveFrame(1, session.DisplayRemove{EntityID: 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ev := rec.next(t); ev.kind != "disconnected" {
		t.Fatalf("expected disconnect for %s, got %+v", schema.Name(schema.MsgDisplayRemove), ev)
	}
}

func TestHelloRejected(t *testing.T) {
	testlog.Start(t)
	rec := newRecorder()
	rec.reject = errors.New("unknown world")
	hub, url := startHub(t, rec)

	conn, ack := dial(t, url, session.Hello{Name: "alice", World: "nowhere"})
	if ack.Status != session.AckStatusRejected || ack.ClientID != "" || !strings.Contains(ack.Message, "unknown world") {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("rejected client must be closed")
	}
	if hub.Len() != 0 {
		t.Fatalf("rejected client must not be registered")
	}
}

func TestHelloMustBeText(t *testing.T) {
	testlog.Start(t)
	rec := newRecorder()
	hub, url := startHub(t, rec)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte("{}")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected close after binary hello")
	}
	if hub.Len() != 0 {
		t.Fatalf("no client must be registered")
	}
}
