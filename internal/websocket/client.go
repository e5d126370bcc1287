package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Время ожидания записи
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал отправки ping
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер сообщения
	maxMessageSize = 512 * 1024 // 512KB

	sendBuffer = 256
)

// EventHandler обрабатывает события одного соединения. События одного
// соединения приходят последовательно, разные соединения независимы.
type EventHandler interface {
	HandleEvent(ctx context.Context, client *Client, env *Envelope) error
}

// ErrorPayload тело события error
type ErrorPayload struct {
	Message string `json:"message"`
}

type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Name   string
	Role   string

	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	mu    sync.RWMutex
	rooms map[uuid.UUID]bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, name, role string) *Client {
	return &Client{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
		Role:   role,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[uuid.UUID]bool),
		hub:    hub,
	}
}

// ReadPump читает события клиента до разрыва соединения
func (c *Client) ReadPump(ctx context.Context, handler EventHandler) {
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
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read failed",
					zap.String("client_id", c.ID.String()),
					zap.Error(err),
				)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			c.SendError(ErrInvalidMessage.Error())
			continue
		}

		if env.Event == EventPong {
			continue
		}

		if err := handler.HandleEvent(ctx, c, &env); err != nil {
			c.SendError(err.Error())
		}
	}
}

// WritePump единственный писатель в соединение
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Дописываем накопившееся, каждое событие отдельным кадром
			n := len(c.send)
			for i := 0; i < n; i++ {
				next, ok := <-c.send
				if !ok {
					c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.conn.WriteMessage(websocket.TextMessage, next); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send ставит событие в очередь только этого соединения
func (c *Client) Send(event Event, data interface{}) error {
	msg, err := encode(event, data)
	if err != nil {
		return err
	}
	return c.hub.deliver(c, msg)
}

func (c *Client) SendError(message string) {
	if err := c.Send(EventError, ErrorPayload{Message: message}); err != nil {
		c.hub.log.Debug("error event dropped",
			zap.String("client_id", c.ID.String()),
			zap.Error(err),
		)
	}
}

func (c *Client) IsInRoom(roomID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[roomID]
}

func (c *Client) Rooms() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]uuid.UUID, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

func (c *Client) addRoom(roomID uuid.UUID) {
	c.mu.Lock()
	c.rooms[roomID] = true
	c.mu.Unlock()
}

func (c *Client) removeRoom(roomID uuid.UUID) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
}
