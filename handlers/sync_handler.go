package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nextyou21/planner-backend/middleware"
	"github.com/nextyou21/planner-backend/syncengine"
	"github.com/nextyou21/planner-backend/utils"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SyncStream pushes the session view over a websocket: the current view
// immediately on connect, then one message per applied snapshot or gate
// change. Slow consumers drop intermediate views and only ever miss
// superseded states.
func SyncStream(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			utils.Logger.Warn("ws_upgrade_failed", zap.Uint("user_id", user.ID), zap.Error(err))
			return
		}
		defer conn.Close()

		eng := engines.ForUser(user)

		views := make(chan syncengine.View, 1)
		unsub := eng.AddListener(func(v syncengine.View) {
			// keep only the latest view when the writer lags
			select {
			case views <- v:
			default:
				select {
				case <-views:
				default:
				}
				select {
				case views <- v:
				default:
				}
			}
		})
		defer unsub()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if err := conn.WriteJSON(eng.View()); err != nil {
			return
		}

		for {
			select {
			case <-done:
				return
			case view := <-views:
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(view); err != nil {
					utils.Logger.Info("ws_closed", zap.Uint("user_id", user.ID), zap.Error(err))
					return
				}
			}
		}
	}
}
