package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/bracket"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/feed"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/httputil"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type matchUpdated struct {
	Match bracket.Match `json:"match"`
	// JustCompleted lists every match whose completion cue is still showing.
	JustCompleted []uuid.UUID `json:"justCompleted"`
}

// serveEvents streams a tournament to a spectator. The client first gets the
// bracket rebuilt from storage, then one event per committed row change.
func (app *application) serveEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before loading so nothing committed in between is missed.
	rows, err := app.feed.Subscribe(ctx, id)
	if err != nil {
		httputil.InternalServerError(w, "Failed to subscribe to tournament", err)
		return
	}
	loaded, err := app.reconciler.Load(ctx, id)
	if err != nil {
		httputil.Error(w, "Tournament not found", err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.logger.Warn("failed to upgrade connection", slog.String("tournament_id", id.String()), slog.Any("error", err))
		return
	}
	log := app.logger.With(slog.String("tournament_id", id.String()), slog.String("remote", r.RemoteAddr))
	log.Info("spectator connected")

	observer := feed.NewObserver(loaded.Bracket, app.cueWindow)
	updates := make(chan feed.Update, 16)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return readPump(conn)
	})
	g.Go(func() error {
		defer close(updates)
		return observer.Run(gctx, rows, func(u feed.Update) error {
			select {
			case updates <- u:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})
	g.Go(func() error {
		defer conn.Close()
		return writePump(gctx, conn, observer, updates)
	})

	if err := g.Wait(); err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Info("spectator disconnected", slog.Any("reason", err))
		return
	}
	log.Info("spectator disconnected")
}

// readPump only services control frames; spectators send nothing.
func readPump(conn *websocket.Conn) error {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return err
		}
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, observer *feed.Observer, updates <-chan feed.Update) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(event{Type: "snapshot", Payload: observer.Snapshot()}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			payload := matchUpdated{Match: u.Match, JustCompleted: observer.ActiveCues(time.Now())}
			if err := conn.WriteJSON(event{Type: "match_updated", Payload: payload}); err != nil {
				return err
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}
