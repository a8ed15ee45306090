package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHubBroadcast(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		NewClient(conn)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// the hub replays the last message on connect; nothing was sent yet
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read replay: %v", err)
	}

	Info("parsing %s", "adder.yft.xml")

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	var msg struct {
		Message  string
		Type     int
		Progress float32
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	if msg.Message != "parsing adder.yft.xml" {
		t.Errorf("Message = %q", msg.Message)
	}
	if msg.Type != INFO {
		t.Errorf("Type = %d, want %d", msg.Type, INFO)
	}
}

func TestProgressSanitizesNaN(t *testing.T) {
	// must not panic in json.Marshal on the broadcast side
	var zero float32
	Progress(zero/zero, "loading")
	time.Sleep(50 * time.Millisecond)
}
