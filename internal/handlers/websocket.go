package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/atharvakonge/coin-portfolio-tracker/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the app is served to a local client only
	},
}

// HandleWebSocket handles GET /ws/prices. The client gets the current coin
// list right away, then one message per refresh attempt.
func (a *API) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.log.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	events, cancel := a.tracker.State.Subscribe()
	defer cancel()

	a.log.Debug("websocket client connected", slog.String("remote", c.Request.RemoteAddr))

	// Reads are only used to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snap := a.tracker.State.Snapshot()
	initial := app.Event{
		Kind:        app.EventCoinsRefreshed,
		Coins:       snap.Coins,
		LastUpdated: snap.LastUpdated,
		Message:     snap.LastError,
	}
	if snap.LastError != "" {
		initial.Kind = app.EventRefreshFailed
	}
	if err := a.writeJSON(conn, initial); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			a.log.Debug("websocket client disconnected")
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := a.writeJSON(conn, ev); err != nil {
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func (a *API) writeJSON(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(v); err != nil {
		a.log.Debug("websocket write failed", slog.Any("error", err))
		return err
	}
	return nil
}
