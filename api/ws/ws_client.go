package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/teamloft/teamloft/models"
	"github.com/teamloft/teamloft/rooms"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 65536

	// Cursor streams are the hottest inbound path; budget well above a
	// single tab's frame rate, clamp runaway clients.
	messagesPerSecond = 60
	messagesBurst     = 120

	// Outbound buffer per connection. A full buffer means the reader
	// stopped draining and the connection gets dropped.
	sendBufferSize = 256
)

type MessageHandler interface {
	HandleWsMessage(client *Client, message []byte)
}

// Client is one websocket connection of an authenticated user. A user
// can hold several clients at once (tabs, devices); room membership is
// tracked per client in joinedRooms, guarded by the hub's lock.
type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	handler      MessageHandler
	connectionId string
	user         models.User

	joinedRooms map[rooms.Key]struct{}
	userChannel bool

	Send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	limiter   *rate.Limiter
}

func NewClient(hub *Hub, conn *websocket.Conn, handler MessageHandler, connectionId string, user models.User) *Client {
	return &Client{
		hub:          hub,
		conn:         conn,
		handler:      handler,
		connectionId: connectionId,
		user:         user,
		joinedRooms:  make(map[rooms.Key]struct{}),
		Send:         make(chan []byte, sendBufferSize),
		done:         make(chan struct{}),
		limiter:      rate.NewLimiter(messagesPerSecond, messagesBurst),
	}
}

func (c *Client) UserId() string {
	return c.user.Id
}

func (c *Client) ConnectionId() string {
	return c.connectionId
}

// enqueue hands a message to the write pump without ever blocking the
// caller. Overflow means the connection is not keeping up, so it gets
// disconnected rather than silently lagging behind the room.
func (c *Client) enqueue(message []byte) {
	select {
	case <-c.done:
	case c.Send <- message:
	default:
		log.Printf("send buffer full for connection %s (user %s), disconnecting", c.connectionId, c.user.Id)
		c.closeSend()
	}
}

// closeSend tells the write pump to shut the connection down. The Send
// channel itself is never closed, so racing enqueues stay safe.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("unexpected close on connection %s: %v", c.connectionId, err)
			}
			return
		}

		if !c.limiter.Allow() {
			log.Printf("rate limit exceeded on connection %s (user %s), disconnecting", c.connectionId, c.user.Id)
			return
		}

		c.handler.HandleWsMessage(c, message)
	}
}

func (c *Client) WritePump(shutdownCtx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-shutdownCtx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
