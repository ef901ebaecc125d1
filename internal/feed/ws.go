package feed

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// wsObserver adapts a WebSocket connection to the Observer interface.
// Messages are handed to a buffered channel consumed by a single writer
// goroutine; an observer that falls sendBuffer messages behind is
// disconnected rather than allowed to block the hub.
type wsObserver struct {
	conn *websocket.Conn
	send chan Message
	log  zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// Notify implements Observer.
func (o *wsObserver) Notify(msg Message) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	select {
	case o.send <- msg:
	default:
		o.log.Warn().Msg("Feed observer too slow, dropping connection")
		o.closed = true
		close(o.send)
	}
}

func (o *wsObserver) closeSend() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.send)
	}
	o.mu.Unlock()
}

// ServeConn attaches a WebSocket connection to the hub and blocks until
// the peer disconnects or the connection fails. The caller owns neither
// the connection nor its lifecycle after this call.
func ServeConn(hub *Hub, conn *websocket.Conn, log zerolog.Logger) {
	o := &wsObserver{
		conn: conn,
		send: make(chan Message, sendBuffer),
		log:  log,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range o.send {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("Feed write failed")
				return
			}
		}
		conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
	}()

	hub.Subscribe(o)
	log.Debug().Msg("Feed observer connected")

	// Inbound frames are not part of the protocol; the read loop only
	// exists to detect the peer going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	hub.Unsubscribe(o)
	o.closeSend()
	<-done
	conn.Close()
	log.Debug().Msg("Feed observer disconnected")
}
