package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oggyb/miahui/internal/app"
	svcErr "github.com/oggyb/miahui/internal/errors"
	"github.com/oggyb/miahui/internal/session"
)

const writeWait = 10 * time.Second

// event is one outbound websocket frame.
type event struct {
	Type     string            `json:"type"`
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Kind     session.Kind      `json:"kind,omitempty"`
	Code     string            `json:"code,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// inbound is one frame sent by a screen.
type inbound struct {
	Type   string          `json:"type"`
	Intent *session.Intent `json:"intent"`
}

// Feed pushes a snapshot to every connected screen whenever the session
// changes. Screens may also send {"type":"intent","intent":{...}} frames.
type Feed struct {
	sess     *session.Session
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewFeed(appCtx *app.AppContext) *Feed {
	return &Feed{
		sess: appCtx.Session,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: appCtx.Logger.With("module", "feed"),
	}
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	snaps, unsubscribe := f.sess.Subscribe(4)
	defer unsubscribe()

	replies := make(chan event, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.readLoop(r.Context(), conn, replies)
	}()

	f.log.Debug("feed connected", "remote", r.RemoteAddr)
	f.writeLoop(conn, snaps, replies, done)
	f.log.Debug("feed disconnected", "remote", r.RemoteAddr)
}

func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn, replies chan<- event) {
	conn.SetReadLimit(64 * 1024)
	for {
		var in inbound
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		if in.Type != "intent" || in.Intent == nil {
			continue
		}
		// the resulting snapshot arrives through the subscription
		if _, err := f.sess.Dispatch(ctx, *in.Intent); err != nil {
			ev := event{Type: "error", Kind: in.Intent.Kind, Code: svcErr.Code(err).String(), Error: err.Error()}
			select {
			case replies <- ev:
			default:
			}
		}
	}
}

func (f *Feed) writeLoop(conn *websocket.Conn, snaps <-chan session.Snapshot, replies <-chan event, done <-chan struct{}) {
	first := f.sess.Snapshot()
	if err := write(conn, event{Type: "snapshot", Snapshot: &first}); err != nil {
		return
	}
	for {
		var ev event
		select {
		case <-done:
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			ev = event{Type: "snapshot", Snapshot: &snap}
		case ev = <-replies:
		}
		if err := write(conn, ev); err != nil {
			return
		}
	}
}

func write(conn *websocket.Conn, ev event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(ev)
}
