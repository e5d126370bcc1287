package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event название события в конверте
type Event string

const (
	// Системные
	EventPing  Event = "ping"
	EventPong  Event = "pong"
	EventError Event = "error"

	// От клиента
	EventJoinRoom    Event = "join-room"
	EventLeaveRoom   Event = "leave-room"
	EventSendMessage Event = "send-message"
	EventTyping      Event = "typing"
	EventStopTyping  Event = "stop-typing"
	EventMarkRead    Event = "mark-read"

	// От сервера
	EventJoinedRoom        Event = "joined-room"
	EventLeftRoom          Event = "left-room"
	EventUserJoined        Event = "user-joined"
	EventNewMessage        Event = "new-message"
	EventChatNotification  Event = "chat-notification"
	EventUserTyping        Event = "user-typing"
	EventUserStoppedTyping Event = "user-stopped-typing"
	EventMarkedRead        Event = "marked-read"
)

const pingInterval = 30 * time.Second

// Envelope формат кадра в обе стороны
type Envelope struct {
	Event     Event           `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// UserJoined рассылается остальным подписчикам комнаты
type UserJoined struct {
	RoomID   uuid.UUID `json:"roomId"`
	UserID   uuid.UUID `json:"userId"`
	UserName string    `json:"userName"`
}

func encode(event Event, data interface{}) ([]byte, error) {
	env := Envelope{Event: event, Timestamp: time.Now().UTC()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// Hub реестр соединений: комната -> соединения, пользователь -> соединения.
// Работает в одном процессе; несколько инстансов потребуют внешней шины.
type Hub struct {
	clients map[uuid.UUID]*Client

	// Клиенты по UserID (один пользователь может иметь несколько соединений)
	userClients map[uuid.UUID]map[uuid.UUID]*Client

	// Клиенты в комнатах
	rooms map[uuid.UUID]map[uuid.UUID]*Client

	unregister chan *Client

	mu  sync.RWMutex
	log *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[uuid.UUID]map[uuid.UUID]*Client),
		rooms:       make(map[uuid.UUID]map[uuid.UUID]*Client),
		unregister:  make(chan *Client),
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run запускает hub
func (h *Hub) Run() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop останавливает hub и закрывает все соединения
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.send)
		client.conn.Close()
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.userClients = make(map[uuid.UUID]map[uuid.UUID]*Client)
	h.rooms = make(map[uuid.UUID]map[uuid.UUID]*Client)
}

// Context отменяется при остановке hub
func (h *Hub) Context() context.Context { return h.ctx }

// Register синхронный: после возврата соединение уже можно подписывать на комнаты
func (h *Hub) Register(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		return ErrHubStopped
	}

	h.clients[client.ID] = client

	if _, ok := h.userClients[client.UserID]; !ok {
		h.userClients[client.UserID] = make(map[uuid.UUID]*Client)
	}
	h.userClients[client.UserID][client.ID] = client

	h.log.Debug("client registered",
		zap.String("client_id", client.ID.String()),
		zap.String("user_id", client.UserID.String()),
	)
	return nil
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	// Удаляем из всех комнат без уведомлений
	for _, roomID := range client.Rooms() {
		h.removeFromRoomUnsafe(client, roomID)
	}

	if userClients, ok := h.userClients[client.UserID]; ok {
		delete(userClients, client.ID)
		if len(userClients) == 0 {
			delete(h.userClients, client.UserID)
		}
	}

	delete(h.clients, client.ID)
	close(client.send)

	h.log.Debug("client unregistered",
		zap.String("client_id", client.ID.String()),
		zap.String("user_id", client.UserID.String()),
	)
}

// JoinRoom подписывает соединение на комнату. Остальные подписчики
// получают user-joined. Повторная подписка ничего не рассылает.
func (h *Hub) JoinRoom(client *Client, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	room, ok := h.rooms[roomID]
	if !ok {
		room = make(map[uuid.UUID]*Client)
		h.rooms[roomID] = room
	}
	if _, already := room[client.ID]; already {
		return
	}

	room[client.ID] = client
	client.addRoom(roomID)

	data, err := encode(EventUserJoined, UserJoined{RoomID: roomID, UserID: client.UserID, UserName: client.Name})
	if err != nil {
		h.log.Error("encode user-joined", zap.Error(err))
		return
	}
	h.broadcastToRoomExcept(roomID, data, client.ID)
}

func (h *Hub) LeaveRoom(client *Client, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomUnsafe(client, roomID)
}

func (h *Hub) removeFromRoomUnsafe(client *Client, roomID uuid.UUID) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(room, client.ID)
	client.removeRoom(roomID)

	if len(room) == 0 {
		delete(h.rooms, roomID)
	}
}

// SendToRoom рассылает событие подписчикам комнаты; except может быть nil
func (h *Hub) SendToRoom(roomID uuid.UUID, event Event, payload interface{}, except *Client) error {
	data, err := encode(event, payload)
	if err != nil {
		return err
	}

	excludeID := uuid.Nil
	if except != nil {
		excludeID = except.ID
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	h.broadcastToRoomExcept(roomID, data, excludeID)
	return nil
}

// SendToUser отправляет событие во все соединения пользователя (личный канал)
func (h *Hub) SendToUser(userID uuid.UUID, event Event, payload interface{}) error {
	data, err := encode(event, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.userClients[userID] {
		h.enqueue(client, data)
	}
	return nil
}

// deliver отправка одному соединению, если оно ещё зарегистрировано
func (h *Hub) deliver(client *Client, data []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[client.ID]; !ok {
		return ErrClientClosed
	}
	if !h.enqueue(client, data) {
		return ErrClientQueueFull
	}
	return nil
}

func (h *Hub) broadcastToRoomExcept(roomID uuid.UUID, data []byte, excludeID uuid.UUID) {
	for _, client := range h.rooms[roomID] {
		if client.ID != excludeID {
			h.enqueue(client, data)
		}
	}
}

// enqueue вызывать под h.mu
func (h *Hub) enqueue(client *Client, data []byte) bool {
	select {
	case client.send <- data:
		return true
	default:
		h.log.Warn("client send channel full", zap.String("client_id", client.ID.String()))
		return false
	}
}

func (h *Hub) ping() {
	data, err := encode(EventPing, nil)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		h.enqueue(client, data)
	}
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID]) > 0
}

// OnlineCount сколько из перечисленных пользователей сейчас на связи
func (h *Hub) OnlineCount(userIDs []uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, id := range userIDs {
		if len(h.userClients[id]) > 0 {
			n++
		}
	}
	return n
}

// RoomUsers пользователи, подписанные на комнату
func (h *Hub) RoomUsers(roomID uuid.UUID) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[uuid.UUID]bool)
	users := make([]uuid.UUID, 0)
	for _, client := range h.rooms[roomID] {
		if !seen[client.UserID] {
			seen[client.UserID] = true
			users = append(users, client.UserID)
		}
	}
	return users
}
