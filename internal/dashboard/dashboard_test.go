package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/sahayak-labs/sahayak/internal/library"
	"github.com/sahayak-labs/sahayak/internal/model"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	server := NewServer(&Config{
		Addr:   "127.0.0.1:0", // Use random available port
		Logger: log.New(io.Discard, "", 0),
	})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() {
		if err := server.Stop(); err != nil {
			t.Errorf("Failed to stop server: %v", err)
		}
	})
	return server
}

func dialClient(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()

	before := server.ClientCount()
	conn, _, err := websocket.Dial(ctx, "ws://"+server.GetAddr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	// Wait until the server has registered the connection so broadcasts
	// sent right after dialing reach it.
	deadline := time.Now().Add(2 * time.Second)
	for server.ClientCount() <= before && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return msg
}

func TestServerStartStop(t *testing.T) {
	server := testServer(t)

	if addr := server.GetAddr(); addr == "" {
		t.Fatal("Server address is empty")
	}
}

func TestMultipleClients(t *testing.T) {
	server := testServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	numClients := 3
	for i := 0; i < numClients; i++ {
		dialClient(t, ctx, server)
	}

	deadline := time.Now().Add(2 * time.Second)
	for server.ClientCount() != numClients && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if count := server.ClientCount(); count != numClients {
		t.Errorf("Expected %d clients, got %d", numClients, count)
	}
}

func TestMessageBroadcast(t *testing.T) {
	server := testServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialClient(t, ctx, server)

	testData := RecordUpdateData{
		RecordID: "doc-000001",
		Action:   "created",
		Subject:  "math",
		Topic:    "fractions",
		Teacher:  "t1",
	}
	dataJSON, _ := json.Marshal(testData)
	server.Broadcast(Message{
		Type:      MessageTypeRecordUpdate,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})

	received := readMessage(t, ctx, conn)
	if received.Type != MessageTypeRecordUpdate {
		t.Errorf("Expected message type %s, got %s", MessageTypeRecordUpdate, received.Type)
	}

	var receivedData RecordUpdateData
	if err := json.Unmarshal(received.Data, &receivedData); err != nil {
		t.Fatalf("Failed to unmarshal record data: %v", err)
	}
	if receivedData.RecordID != testData.RecordID {
		t.Errorf("Expected record ID %s, got %s", testData.RecordID, receivedData.RecordID)
	}
}

func TestNotifierRecordChanged(t *testing.T) {
	server := testServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialClient(t, ctx, server)

	server.RecordChanged("shared", &model.VisualAid{
		ID:        "doc-000007",
		TeacherID: "t1",
		Subject:   "science",
		Topic:     "plants",
	})

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeRecordUpdate {
		t.Fatalf("Expected message type %s, got %s", MessageTypeRecordUpdate, msg.Type)
	}

	var data RecordUpdateData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("Failed to unmarshal record data: %v", err)
	}
	if data.Action != "shared" || data.RecordID != "doc-000007" {
		t.Errorf("Record data = %+v, want shared doc-000007", data)
	}
}

func TestNotifierSweepComplete(t *testing.T) {
	server := testServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialClient(t, ctx, server)

	server.SweepComplete(library.SweepStats{
		Attempted: 5,
		Synced:    4,
		Failed:    1,
		Duration:  2 * time.Second,
	})

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeSyncComplete {
		t.Fatalf("Expected message type %s, got %s", MessageTypeSyncComplete, msg.Type)
	}

	var data SyncCompleteData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("Failed to unmarshal sync data: %v", err)
	}
	if data.Synced != 4 || data.Failed != 1 {
		t.Errorf("Sync data = %+v, want 4 synced, 1 failed", data)
	}
}

func TestBroadcastQueueStats(t *testing.T) {
	server := testServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialClient(t, ctx, server)

	server.BroadcastQueueStats(3, 12)

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeQueueStats {
		t.Fatalf("Expected message type %s, got %s", MessageTypeQueueStats, msg.Type)
	}

	var data QueueStatsData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("Failed to unmarshal queue stats: %v", err)
	}
	if data.Pending != 3 || data.Cached != 12 {
		t.Errorf("Queue stats = %+v, want 3 pending, 12 cached", data)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := testServer(t)

	resp, err := http.Get("http://" + server.GetAddr() + "/healthz")
	if err != nil {
		t.Fatalf("Failed to GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("Status = %q, want ok", body.Status)
	}
}
