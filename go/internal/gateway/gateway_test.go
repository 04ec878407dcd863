package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeep/go/internal/expiry"
	"github.com/mcdev12/timekeep/go/internal/rpcutil"
)

func newTestServer(t *testing.T) (*ConnectionManager, *httptest.Server) {
	t.Helper()
	cm := NewConnectionManager(DefaultConnectionConfig(), clockwork.NewFakeClock())
	ctx, cancel := context.WithCancel(context.Background())
	go cm.Start(ctx)

	mux := http.NewServeMux()
	NewWebSocketHandler(cm).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return cm, srv
}

func dial(t *testing.T, srv *httptest.Server, cm *ConnectionManager, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/clock"
	header := http.Header{}
	header.Set(rpcutil.ActorHeader, userID.String())

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	deadline := time.Now().Add(5 * time.Second)
	for !cm.HasConnections(userID) {
		if time.Now().After(deadline) {
			t.Fatal("connection was never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) ClockEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var event ClockEvent
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return event
}

func TestConnectionManager_PushesWarningToUser(t *testing.T) {
	cm, srv := newTestServer(t)
	user := uuid.New()
	conn := dial(t, srv, cm, user)

	status := expiry.Status{ClockEventID: uuid.New(), TeamID: uuid.New(), SecondsUntilCutover: 45, Warning: true}
	cm.SessionWarning(user, status)

	event := readEvent(t, conn)
	if event.Type != EventTypeSessionWarning {
		t.Fatalf("type = %q, want %q", event.Type, EventTypeSessionWarning)
	}
	payload, err := ParseEventPayload(&event)
	if err != nil {
		t.Fatalf("ParseEventPayload: %v", err)
	}
	got, ok := payload.(expiry.Status)
	if !ok {
		t.Fatalf("payload is %T", payload)
	}
	if got != status {
		t.Errorf("payload = %+v, want %+v", got, status)
	}
}

func TestConnectionManager_OtherUsersDoNotReceive(t *testing.T) {
	cm, srv := newTestServer(t)
	alice, bob := uuid.New(), uuid.New()
	aliceConn := dial(t, srv, cm, alice)
	bobConn := dial(t, srv, cm, bob)

	cm.SessionClosed(bob, expiry.Closed{Reason: expiry.ReasonMidnight, Message: "bye"})
	if event := readEvent(t, bobConn); event.Type != EventTypeSessionClosed {
		t.Errorf("bob got %q", event.Type)
	}

	_ = aliceConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := aliceConn.ReadMessage(); err == nil {
		t.Error("alice received bob's event")
	}

	stats := cm.GetConnectionStats()
	if stats.ConnectedUsers != 2 || stats.TotalConnections != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHandleClockConnection_RequiresUser(t *testing.T) {
	h := NewWebSocketHandler(NewConnectionManager(DefaultConnectionConfig(), clockwork.NewFakeClock()))

	rec := httptest.NewRecorder()
	h.HandleClockConnection(rec, httptest.NewRequest(http.MethodGet, "/ws/clock", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no user: status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.HandleClockConnection(rec, httptest.NewRequest(http.MethodGet, "/ws/clock?user_id=alice", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad user: status = %d, want 400", rec.Code)
	}
}
