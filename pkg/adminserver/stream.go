package adminserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const streamWriteTimeout = 5 * time.Second

// streamWorld pushes every newly published snapshot to a websocket client.
func (s *AdminServer) streamWorld(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("error upgrading stream connection: %v", err)
		return
	}
	defer conn.Close()

	logger := log.WithField("remote", r.RemoteAddr)
	logger.Debug("stream client connected")

	// Reading is only needed to notice when the client goes away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	var lastTick uint64
	for {
		changed := s.publisher.Changed()

		if snap, err := s.publisher.Read(); err == nil && snap.Tick > lastTick {
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, snap.Data); err != nil {
				logger.Debugf("stream client write failed: %v", err)
				return
			}
			lastTick = snap.Tick
		}

		select {
		case <-changed:
		case <-closed:
			logger.Debug("stream client disconnected")
			return
		case <-s.ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
				time.Now().Add(time.Second))
			return
		}
	}
}
