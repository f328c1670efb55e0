package scoreboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Seednode/scoreboard/broadcast"
	"github.com/Seednode/scoreboard/document"
	"github.com/Seednode/scoreboard/protocol"
)

type testViewer struct {
	t    *testing.T
	conn *websocket.Conn
}

func startHub(t *testing.T, store Store) (*Hub, string) {
	t.Helper()

	hub := NewHub(store, broadcast.NewLocalBus(), DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func connect(t *testing.T, hub *Hub, url string) *testViewer {
	t.Helper()

	before := hub.Count()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() <= before {
		if time.Now().After(deadline) {
			t.Fatal("viewer never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	return &testViewer{t: t, conn: conn}
}

func (v *testViewer) send(event string, payload any) {
	v.t.Helper()

	frame, err := protocol.Encode(event, payload)
	if err != nil {
		v.t.Fatal(err)
	}
	if err := v.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		v.t.Fatal(err)
	}
}

func (v *testViewer) next() protocol.Envelope {
	v.t.Helper()

	_ = v.conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var env protocol.Envelope
	if err := v.conn.ReadJSON(&env); err != nil {
		v.t.Fatalf("read: %v", err)
	}

	return env
}

func (v *testViewer) expect(events ...string) []protocol.Envelope {
	v.t.Helper()

	got := make([]protocol.Envelope, 0, len(events))
	for _, want := range events {
		env := v.next()
		if env.Event != want {
			v.t.Fatalf("got event %q, want %q", env.Event, want)
		}
		got = append(got, env)
	}

	return got
}

func (v *testViewer) expectSilence() {
	v.t.Helper()

	_ = v.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

	var env protocol.Envelope
	if err := v.conn.ReadJSON(&env); err == nil {
		v.t.Fatalf("unexpected frame %q", env.Event)
	}
}

func message(t *testing.T, env protocol.Envelope) string {
	t.Helper()

	var p protocol.OperationPayload
	if err := env.DecodeData(&p); err != nil {
		t.Fatal(err)
	}

	return p.Message
}

func TestRequestLatestIsUnicast(t *testing.T) {
	store := NewMemoryStore()
	store.SetContent([]byte(`[{"id":"a","name":"ALICE","score":2,"color":null,"pos":null}]`))

	hub, url := startHub(t, store)
	a := connect(t, hub, url)
	b := connect(t, hub, url)

	a.send(protocol.RequestLatest, nil)

	got := a.expect(protocol.OperationStart, protocol.LatestData, protocol.OperationEnd)
	if msg := message(t, got[0]); msg != "Reading data..." {
		t.Errorf("start message = %q", msg)
	}

	var doc document.Document
	if err := got[1].DecodeData(&doc); err != nil {
		t.Fatal(err)
	}
	if len(doc) != 1 || doc[0].Name != "ALICE" || doc[0].Score != 2 {
		t.Errorf("latest data = %+v", doc)
	}

	b.expect(protocol.OperationStart, protocol.OperationEnd)
	b.expectSilence()
}

func TestRequestLatestMissingDocument(t *testing.T) {
	hub, url := startHub(t, NewMemoryStore())
	a := connect(t, hub, url)

	a.send(protocol.RequestLatest, nil)

	got := a.expect(protocol.OperationStart, protocol.LatestData, protocol.OperationEnd)
	if string(got[1].Data) != "[]" {
		t.Errorf("latest data = %s, want []", got[1].Data)
	}
}

func TestRequestLatestMalformedDocument(t *testing.T) {
	store := NewMemoryStore()
	store.SetContent([]byte(`{not json`))

	hub, url := startHub(t, store)
	a := connect(t, hub, url)

	a.send(protocol.RequestLatest, nil)

	got := a.expect(protocol.OperationStart, protocol.LatestData, protocol.OperationEnd)
	if string(got[1].Data) != "[]" {
		t.Errorf("latest data = %s, want []", got[1].Data)
	}
}

func TestSaveBroadcastsToEveryViewer(t *testing.T) {
	store := NewMemoryStore()
	hub, url := startHub(t, store)
	a := connect(t, hub, url)
	b := connect(t, hub, url)

	a.send(protocol.SaveData, protocol.SavePayload{
		Data:    document.Document{{ID: "a", Name: "alice", Score: -3}},
		Message: "Change score",
	})

	for _, v := range []*testViewer{a, b} {
		got := v.expect(protocol.OperationStart, protocol.SaveComplete, protocol.OperationEnd)

		var done protocol.SaveCompletePayload
		if err := got[1].DecodeData(&done); err != nil || !done.OK {
			t.Errorf("save-complete payload = %s", got[1].Data)
		}
		if msg := message(t, got[2]); msg != "Saved" {
			t.Errorf("end message = %q", msg)
		}
	}

	if w := store.Writes(); len(w) != 1 || w[0] != "Change score" {
		t.Errorf("writes = %q", w)
	}

	content, _, _ := store.ReadDocument(context.Background())
	doc, err := document.Decode(content)
	if err != nil {
		t.Fatal(err)
	}
	if doc[0].Name != "ALICE" || doc[0].Score != 0 {
		t.Errorf("stored document not sanitized: %+v", doc)
	}
	if !strings.Contains(string(content), "\n  {") {
		t.Errorf("stored document not indented:\n%s", content)
	}
}

func TestSaveDefaultMessage(t *testing.T) {
	store := NewMemoryStore()
	hub, url := startHub(t, store)
	a := connect(t, hub, url)

	a.send(protocol.SaveData, protocol.SavePayload{Data: document.Document{}})
	a.expect(protocol.OperationStart, protocol.SaveComplete, protocol.OperationEnd)

	if w := store.Writes(); len(w) != 1 || w[0] != "Update score-tracker" {
		t.Errorf("writes = %q", w)
	}
}

func TestClear(t *testing.T) {
	store := NewMemoryStore()
	store.SetContent([]byte(`[{"id":"a","name":"A","score":1,"color":null,"pos":null}]`))

	hub, url := startHub(t, store)
	a := connect(t, hub, url)

	a.send(protocol.ClearData, nil)

	got := a.expect(protocol.OperationStart, protocol.SaveComplete, protocol.OperationEnd)
	if msg := message(t, got[0]); msg != "Clearing data..." {
		t.Errorf("start message = %q", msg)
	}

	content, _, _ := store.ReadDocument(context.Background())
	if string(content) != "[]" {
		t.Errorf("content after clear = %q", content)
	}
	if w := store.Writes(); w[0] != "Clear data" {
		t.Errorf("writes = %q", w)
	}
}

func TestRemoteFailureBroadcastsError(t *testing.T) {
	store := NewMemoryStore()
	store.SetErr(errors.New("remote write failed: 502"))

	hub, url := startHub(t, store)
	a := connect(t, hub, url)
	b := connect(t, hub, url)

	a.send(protocol.SaveData, protocol.SavePayload{Data: document.Document{}})

	for _, v := range []*testViewer{a, b} {
		got := v.expect(protocol.OperationStart, protocol.OperationError)
		if msg := message(t, got[1]); msg != "remote write failed: 502" {
			t.Errorf("error message = %q", msg)
		}
	}
	b.expectSilence()

	// The failure is terminal for that operation only: no retry follows, and
	// the next command starts a fresh attempt.
	store.SetErr(nil)
	a.send(protocol.RequestLatest, nil)
	a.expect(protocol.OperationStart, protocol.LatestData, protocol.OperationEnd)
}

func TestMalformedFramesAreIgnored(t *testing.T) {
	hub, url := startHub(t, NewMemoryStore())
	a := connect(t, hub, url)

	_ = a.conn.WriteMessage(websocket.TextMessage, []byte("{"))
	a.send("unknown-event", nil)

	// The first frame seen must belong to the valid request.
	a.send(protocol.RequestLatest, nil)
	a.expect(protocol.OperationStart, protocol.LatestData, protocol.OperationEnd)
}

func TestMalformedSaveReportsError(t *testing.T) {
	store := NewMemoryStore()
	hub, url := startHub(t, store)
	a := connect(t, hub, url)
	b := connect(t, hub, url)

	for _, frame := range []string{
		`{"event":"save-data","data":{"data":"oops","message":"Change score"}}`,
		`{"event":"save-data"}`,
	} {
		if err := a.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatal(err)
		}

		for _, v := range []*testViewer{a, b} {
			got := v.expect(protocol.OperationStart, protocol.OperationError)
			if msg := message(t, got[1]); !strings.HasPrefix(msg, "malformed save") {
				t.Errorf("error message = %q", msg)
			}
		}
	}

	if w := store.Writes(); len(w) != 0 {
		t.Errorf("malformed save was written: %q", w)
	}
}

func TestSaveToleratesDamagedFields(t *testing.T) {
	store := NewMemoryStore()
	hub, url := startHub(t, store)
	a := connect(t, hub, url)

	frame := `{"event":"save-data","data":{"data":[{"id":"a","name":"A","score":1,"pos":{}}],"message":"Change score"}}`
	if err := a.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatal(err)
	}

	a.expect(protocol.OperationStart, protocol.SaveComplete, protocol.OperationEnd)

	content, _, _ := store.ReadDocument(context.Background())
	doc := document.Parse(content)
	if len(doc) != 1 || doc[0].Score != 1 || doc[0].Pos != nil {
		t.Errorf("stored document = %s", content)
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, url := startHub(t, NewMemoryStore())
	a := connect(t, hub, url)

	_ = a.conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("viewer never unregistered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventFrame(t *testing.T) {
	frame, err := eventFrame(broadcast.Event{Topic: broadcast.TopicInvalidate})
	if err != nil {
		t.Fatal(err)
	}

	var env protocol.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatal(err)
	}
	if env.Event != protocol.SaveComplete || string(env.Data) != `{"ok":true}` {
		t.Errorf("frame = %s", frame)
	}
}
