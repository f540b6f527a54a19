package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	cws "github.com/coder/websocket"

	"github.com/ashverma/pledge/internal/database"
	"github.com/ashverma/pledge/internal/email"
	"github.com/ashverma/pledge/internal/middleware"
	ws "github.com/ashverma/pledge/internal/websocket"
)

func setupServerTest(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(db, email.NewClient("", "", ""), Config{}, logger)

	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

// Opens a session directly against the stores, standing in for a login.
func testSession(t *testing.T, s *Server, emailAddr string) (int64, string) {
	t.Helper()
	u, err := s.userStore.Create(emailAddr, "Ashu", "secret123")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	sess, err := s.sessionStore.Create(u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return u.ID, sess.Token
}

// Subscribing over the real router must upgrade the connection even
// with the request logger wrapped around it, and a check-in write must
// arrive as a change notification on the socket.
func TestWebSocketSubscribeThroughRouter(t *testing.T) {
	s, ts := setupServerTest(t)
	userID, token := testSession(t, s, "ashu@pledge.in")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := cws.Dial(ctx, wsURL, &cws.DialOptions{
		HTTPHeader: http.Header{
			"Cookie": []string{middleware.SessionCookieName + "=" + token},
		},
	})
	if err != nil {
		t.Fatalf("websocket dial through router: %v", err)
	}
	defer conn.Close(cws.StatusNormalClosure, "")

	// The handshake completes before the hub registration in the
	// handler goroutine; wait for the subscriber to be visible.
	deadline := time.Now().Add(2 * time.Second)
	for s.hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered with the hub")
		}
		time.Sleep(5 * time.Millisecond)
	}

	req, err := http.NewRequest("POST", ts.URL+"/api/checkins", strings.NewReader(`{"status": "SUCCESS"}`))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post check-in: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("check-in status = %d, want 201", resp.StatusCode)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read notification: %v", err)
	}
	var msg ws.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal notification: %v", err)
	}
	if msg.Type != "log_created" {
		t.Errorf("type = %q, want log_created", msg.Type)
	}
	if msg.UserID != userID {
		t.Errorf("user id = %d, want %d", msg.UserID, userID)
	}
}

func TestWebSocketRequiresSession(t *testing.T) {
	_, ts := setupServerTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := cws.Dial(ctx, wsURL, nil)
	if err == nil {
		conn.Close(cws.StatusNormalClosure, "")
		t.Fatal("expected dial without a session cookie to fail")
	}
}
