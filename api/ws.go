package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"weatherhub.app/distributor"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// clientMessage is any message a websocket client may send.
type clientMessage struct {
	Type     string  `json:"type"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Location string  `json:"location"`
	Timezone string  `json:"timezone"`
}

// handleWebSocket upgrades the connection and runs the session until
// the client disconnects. A subscribe message replaces any previous
// subscription; updates are pushed as they are published.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	sessionID, events := s.distributor.Register(distributor.TransportPush)
	defer s.distributor.Deregister(sessionID)

	done := make(chan struct{})
	go s.writePump(conn, events, done)
	s.readPump(c, conn, sessionID)
	close(done)
}

// readPump processes client messages until the connection drops.
func (s *Server) readPump(c *gin.Context, conn *websocket.Conn, sessionID string) {
	defer conn.Close()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "session", sessionID, "error", err)
			}
			return
		}

		switch msg.Type {
		case "subscribe":
			if msg.Lat < -90 || msg.Lat > 90 || msg.Lon < -180 || msg.Lon > 180 {
				slog.Warn("subscribe with invalid coordinates", "session", sessionID, "lat", msg.Lat, "lon", msg.Lon)
				continue
			}
			loc := distributor.NewLocation(msg.Lat, msg.Lon, msg.Location, msg.Timezone)

			// Switching locations drops the old subscription so updates
			// for the previous place stop immediately.
			s.distributor.Unsubscribe(sessionID)
			s.distributor.Subscribe(c.Request.Context(), sessionID, loc)

			// Trigger a fetch when nothing live is cached; the refresh
			// hook publishes the result to this new subscriber. Detached
			// from the connection so a disconnect mid-fetch still
			// populates the cache for everyone else.
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if _, err := s.cache.GetOrFetch(ctx, loc.Lat, loc.Lon, loc.DisplayName, loc.Timezone); err != nil {
					slog.Warn("subscribe fetch failed", "key", loc.Key, "error", err)
				}
			}()
		case "ping":
			s.distributor.SendTo(sessionID, distributor.Event{Type: distributor.EventPong})
		default:
			slog.Debug("unknown websocket message", "session", sessionID, "type", msg.Type)
		}
	}
}

// writePump serializes events onto the connection. Exactly one writer
// per connection; gorilla connections allow a single concurrent writer.
func (s *Server) writePump(conn *websocket.Conn, events <-chan distributor.Event, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				slog.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}
