package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"supportdesk/internal/models"
	"supportdesk/internal/store"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wireMessage struct {
	Op   OpCode          `json:"op"`
	Type string          `json:"t"`
	Data json.RawMessage `json:"d"`
	Seq  *int64          `json:"s"`
}

func dialHub(t *testing.T, st *store.Store) *websocket.Conn {
	t.Helper()

	hub := NewHub(st, "Test Desk")
	go hub.Run()
	t.Cleanup(hub.Shutdown)
	st.Subscribe(hub.OnStoreEvent)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn)
		hub.Register(client)
		client.SendHello()
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing hub: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// HELLO is queued after registration, so consuming it guarantees the
	// client sees every broadcast from here on.
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var hello wireMessage
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("reading hello frame: %v", err)
	}
	if hello.Op != OpHello {
		t.Fatalf("first frame op = %d, want HELLO", hello.Op)
	}
	return conn
}

func readDispatch(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("reading frame: %v", err)
		}
		if msg.Op == OpDispatch {
			return msg
		}
	}
}

func TestHelloIsFirstFrame(t *testing.T) {
	// dialHub fails the test if the first frame is not HELLO.
	dialHub(t, store.New())
}

func TestBatchEventIsDispatched(t *testing.T) {
	st := store.New()
	conn := dialHub(t, st)

	st.IngestBatch(7, []models.Message{
		{ID: "m1", Author: models.AuthorClient, Text: "hi"},
		{ID: "m2", Author: models.AuthorBot, Text: "hello"},
	}, store.IngestOptions{})

	msg := readDispatch(t, conn)
	if msg.Type != EventMessageBatch {
		t.Fatalf("event type = %q, want %q", msg.Type, EventMessageBatch)
	}
	if msg.Seq == nil || *msg.Seq != 1 {
		t.Fatalf("seq = %v, want 1", msg.Seq)
	}

	var payload MessageBatchPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if payload.DialogID != 7 || len(payload.MessageIDs) != 2 {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestLocalAddAndStatusEvents(t *testing.T) {
	st := store.New()
	conn := dialHub(t, st)

	added := st.AddLocal(3, store.LocalDraft{Author: models.AuthorOperator, Text: "typing"})

	msg := readDispatch(t, conn)
	if msg.Type != EventMessageAdd {
		t.Fatalf("event type = %q, want %q", msg.Type, EventMessageAdd)
	}
	var addPayload MessageAddPayload
	if err := json.Unmarshal(msg.Data, &addPayload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if !addPayload.Local || addPayload.Message.ID != added.ID {
		t.Fatalf("payload = %+v", addPayload)
	}

	st.UpdateStatus(3, added.ID, models.StatusSent)

	msg = readDispatch(t, conn)
	if msg.Type != EventMessageStatus {
		t.Fatalf("event type = %q, want %q", msg.Type, EventMessageStatus)
	}
	var statusPayload MessageStatusPayload
	if err := json.Unmarshal(msg.Data, &statusPayload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if statusPayload.MessageID != added.ID || statusPayload.Status != models.StatusSent {
		t.Fatalf("payload = %+v", statusPayload)
	}
}

func TestAttachmentUpdateEventCarriesMergedAttachment(t *testing.T) {
	st := store.New()
	conn := dialHub(t, st)

	st.IngestBatch(5, []models.Message{
		{ID: "m1", Author: models.AuthorBot, Text: "scan", Attachments: []models.Attachment{
			{ID: "a1", Name: "scan.png", ContentType: "image/png"},
		}},
	}, store.IngestOptions{})
	readDispatch(t, conn)

	st.UpdateAttachment(5, "m1", "a1", models.Attachment{DisplayHint: models.VariantFile})

	msg := readDispatch(t, conn)
	if msg.Type != EventAttachmentUpdate {
		t.Fatalf("event type = %q, want %q", msg.Type, EventAttachmentUpdate)
	}
	var payload AttachmentUpdatePayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if payload.AttachmentID != "a1" || payload.Attachment.DisplayHint != models.VariantFile {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.Attachment.Name != "scan.png" {
		t.Fatalf("merged attachment lost fields: %+v", payload.Attachment)
	}
}
