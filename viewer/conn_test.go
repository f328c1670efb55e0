package viewer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/Seednode/scoreboard/broadcast"
	"github.com/Seednode/scoreboard/document"
	"github.com/Seednode/scoreboard/scoreboard"
)

func startServer(t *testing.T, store *scoreboard.MemoryStore) string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	hub := scoreboard.NewHub(store, broadcast.NewLocalBus(), scoreboard.DefaultConfig())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func connectApp(t *testing.T, url string) (*App, *Conn) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	conn, err := Dial(ctx, url, nil)
	if err != nil {
		t.Fatal(err)
	}

	app := New(Options{})
	go func() { _ = app.Run(ctx, conn) }()

	waitFor(t, "initial load", func() bool {
		v := app.View()

		return v.Connected && !v.Busy
	})

	return app, conn
}

func sameDocument(a, b document.Document) bool {
	return reflect.DeepEqual(a, b)
}

func TestTwoViewersConverge(t *testing.T) {
	store := scoreboard.NewMemoryStore()
	store.SetContent([]byte(`[{"id":"a","name":"ALICE","score":0,"color":null,"pos":null}]`))

	url := startServer(t, store)
	a, connA := connectApp(t, url)
	b, _ := connectApp(t, url)

	// B's initial load is broadcast to A as well; retry until A is idle.
	waitFor(t, "increment", func() bool {
		err := a.ChangeScore("a", +1)
		if err != nil && !errors.Is(err, ErrBusy) {
			t.Fatal(err)
		}

		return err == nil
	})

	waitFor(t, "first save to reach both viewers", func() bool {
		va, vb := a.View(), b.View()

		return !va.Busy && !vb.Busy &&
			len(vb.Players) == 1 && vb.Players[0].Score == 1 &&
			sameDocument(va.Players, vb.Players)
	})

	// A saves while B is mid-refresh.
	doc := a.View().Players
	doc[0].Score = 5
	doc = append(doc, document.Player{ID: "b", Name: "BOB", Score: 2})

	b.RequestLatest()
	if err := connA.Save(doc, "Change score"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "convergence", func() bool {
		va, vb := a.View(), b.View()

		return !va.Busy && !vb.Busy && len(va.Players) == 2 &&
			sameDocument(va.Players, vb.Players)
	})

	content, _, _ := store.ReadDocument(context.Background())
	if !sameDocument(a.View().Players, document.Parse(content)) {
		t.Errorf("viewers disagree with the stored document:\n%s", content)
	}
}

func TestClosedConnIsNotConnected(t *testing.T) {
	url := startServer(t, scoreboard.NewMemoryStore())

	conn, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatal(err)
	}

	_ = conn.Close()
	_ = conn.Close()

	if err := conn.RequestLatest(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("request after close: %v", err)
	}
}

func TestDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("dial: %v", err)
	}
}

func TestDisconnectFallsBackToLocal(t *testing.T) {
	url := startServer(t, scoreboard.NewMemoryStore())
	app, conn := connectApp(t, url)

	_ = conn.Close()

	waitFor(t, "detach", func() bool { return !app.View().Connected })

	if err := app.AddNames("alice"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "local release", func() bool { return !app.View().Busy })

	if v := app.View(); len(v.Players) != 1 {
		t.Errorf("players = %+v", v.Players)
	}
}
