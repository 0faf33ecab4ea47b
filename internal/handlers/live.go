package handlers

import (
	"context"
	"net/http"
	"time"

	"interior-ledger/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	liveWriteWait  = 10 * time.Second
	livePingPeriod = 30 * time.Second
)

// EventSubscriber streams ledger events for a single project.
type EventSubscriber interface {
	Subscribe(ctx context.Context, projectID uint) (<-chan realtime.Event, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// LiveLedger handles GET /projects/:id/ledger/live. Each ledger mutation on
// the project is pushed to the socket as a JSON realtime.Event; clients
// refetch the ledger on receipt. A nil subscriber means Redis is not
// configured.
func LiveLedger(sub EventSubscriber, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sub == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live updates are disabled"})
			return
		}
		projectID, ok := idParam(c, "id")
		if !ok {
			return
		}

		// отписка при закрытии сокета, контекст запроса тут не подходит
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, err := sub.Subscribe(ctx, projectID)
		if err != nil {
			log.Error("subscribe ledger events", zap.Uint("project_id", projectID), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live updates are unavailable"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("websocket upgrade", zap.Error(err))
			return
		}
		defer conn.Close()

		// клиент ничего не шлёт, читаем только чтобы заметить закрытие
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						log.Debug("live socket closed", zap.Error(err))
					}
					return
				}
			}
		}()

		ping := time.NewTicker(livePingPeriod)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
					return
				}
			}
		}
	}
}
