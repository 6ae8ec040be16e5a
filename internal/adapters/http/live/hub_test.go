package live_test

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
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchtag/internal/adapters/http/live"
)

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func readMessage(conn *websocket.Conn) (live.Message, error) {
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg live.Message
	_, body, err := conn.ReadMessage()
	if err != nil {
		return msg, err
	}
	err = json.Unmarshal(body, &msg)
	return msg, err
}

func TestHub(t *testing.T) {
	Convey("Given a running hub behind a test server", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		hub := live.NewHub()
		go hub.Run(ctx)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			matchID := r.URL.Query().Get("match")
			hub.ServeWS(w, r, matchID, func(context.Context) (live.Message, error) {
				return live.Message{Type: "state", MatchID: matchID}, nil
			})
		}))
		defer srv.Close()

		dial := func(matchID string) *websocket.Conn {
			url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?match=" + matchID
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			So(err, ShouldBeNil)
			return conn
		}

		conn := dial("m1")
		defer conn.Close()
		other := dial("m2")
		defer other.Close()
		So(waitFor(func() bool { return hub.Clients("m1") == 1 && hub.Clients("m2") == 1 }), ShouldBeTrue)

		Convey("A new client first receives the initial view", func() {
			msg, err := readMessage(conn)
			So(err, ShouldBeNil)
			So(msg.Type, ShouldEqual, "state")
			So(msg.MatchID, ShouldEqual, "m1")

			Convey("Broadcasts reach only the clients of that match", func() {
				hub.Broadcast("m1", "saved", map[string]int{"events": 3})
				msg, err := readMessage(conn)
				So(err, ShouldBeNil)
				So(msg.Type, ShouldEqual, "saved")

				first, err := readMessage(other)
				So(err, ShouldBeNil)
				So(first.MatchID, ShouldEqual, "m2")
				_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
				_, _, err = other.ReadMessage()
				So(err, ShouldNotBeNil)
			})
		})

		Convey("A disconnected client is removed", func() {
			_ = conn.Close()
			So(waitFor(func() bool { return hub.Clients("m1") == 0 }), ShouldBeTrue)
		})
	})
}

func TestHub_Snapshot(t *testing.T) {
	Convey("Given a running hub", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		hub := live.NewHub()
		go hub.Run(ctx)

		snapshots := map[string]live.Snapshot{
			"racing": func(context.Context) (live.Message, error) {
				hub.Broadcast("m1", "state", map[string]int{"revision": 2})
				return live.Message{Type: "state", MatchID: "m1", Data: map[string]int{"revision": 2}}, nil
			},
			"failing": func(context.Context) (live.Message, error) {
				return live.Message{}, errors.New("match closed")
			},
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hub.ServeWS(w, r, "m1", snapshots[r.URL.Query().Get("snapshot")])
		}))
		defer srv.Close()
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?snapshot="

		Convey("A change made while the client joins reaches it after the snapshot", func() {
			conn, _, err := websocket.DefaultDialer.Dial(url+"racing", nil)
			So(err, ShouldBeNil)
			defer conn.Close()

			first, err := readMessage(conn)
			So(err, ShouldBeNil)
			So(first.Data, ShouldResemble, map[string]any{"revision": float64(2)})

			second, err := readMessage(conn)
			So(err, ShouldBeNil)
			So(second.Type, ShouldEqual, "state")
			So(second.Data, ShouldResemble, map[string]any{"revision": float64(2)})
		})

		Convey("A failed snapshot closes the client without registering it", func() {
			conn, _, err := websocket.DefaultDialer.Dial(url+"failing", nil)
			So(err, ShouldBeNil)
			defer conn.Close()

			_, err = readMessage(conn)
			So(err, ShouldNotBeNil)
			So(hub.Clients("m1"), ShouldEqual, 0)
		})
	})
}
