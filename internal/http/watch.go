package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/snackhub/orderfeed/internal/obs"
)

// watchOrdersHandler upgrades to a websocket and pushes every order feed
// emission as a full JSON list. The connection closes when the client
// goes away, the request context ends, or the feed terminates.
func (a *App) watchOrdersHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := a.pathUser(w, r)
	if !ok {
		return
	}
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go readUntilClose(conn, cancel)

	feed := a.Orders.ObserveUserOrders(ctx, uid)
	ping := time.NewTicker(a.Cfg.WSPingInterval)
	defer ping.Stop()

	for {
		select {
		case list, open := <-feed.Updates():
			if !open {
				if ferr := feed.Err(); ferr != nil {
					obs.Logger.Warn("order_watch_ended", "user_id", uid, "error", ferr)
					msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "feed ended")
					_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				}
				return
			}
			conn.SetWriteDeadline(time.Now().Add(a.Cfg.WSWriteTimeout))
			if err := conn.WriteJSON(list); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(a.Cfg.WSWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// watchNotificationsHandler is the notification twin of the order watch.
func (a *App) watchNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := a.pathUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	feed, err := a.Notify.Observe(ctx, uid)
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "watch_failed", err.Error())
		return
	}
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	go readUntilClose(conn, cancel)

	ping := time.NewTicker(a.Cfg.WSPingInterval)
	defer ping.Stop()

	for {
		select {
		case list, open := <-feed.Updates():
			if !open {
				if ferr := feed.Err(); ferr != nil {
					obs.Logger.Warn("notification_watch_ended", "user_id", uid, "error", ferr)
				}
				return
			}
			conn.SetWriteDeadline(time.Now().Add(a.Cfg.WSWriteTimeout))
			if err := conn.WriteJSON(list); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(a.Cfg.WSWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readUntilClose drains client frames so close/ping handling runs, then
// cancels the watch context.
func readUntilClose(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
