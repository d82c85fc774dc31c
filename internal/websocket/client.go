package websocket

import (
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
)

// Transport то, что нужно хабу от соединения для записи
type Transport interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Conn полное соединение; *websocket.Conn ему удовлетворяет
type Conn interface {
	Transport
	ReadJSON(v interface{}) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}

type Identity struct {
	UserID      string
	DisplayName string
	IsAdmin     bool
}

type OverflowPolicy int

const (
	// DropOldest выкидывает самый старый кадр из очереди
	DropOldest OverflowPolicy = iota
	// Disconnect закрывает медленное соединение
	Disconnect
)

func ParseOverflowPolicy(s string) OverflowPolicy {
	if s == "disconnect" {
		return Disconnect
	}
	return DropOldest
}

type ClientMessageHandler interface {
	HandleMessage(client *Client, msg *Envelope) error
}

type Client struct {
	ID       uuid.UUID
	Identity Identity
	Conn     Conn
	Hub      *Hub

	mu     sync.Mutex
	send   chan []byte
	open   bool
	room   *RoomID
	policy OverflowPolicy
}

func NewClient(hub *Hub, conn Conn, identity Identity) *Client {
	return &Client{
		ID:       uuid.New(),
		Identity: identity,
		Conn:     conn,
		Hub:      hub,
		send:     make(chan []byte, hub.conf.SendQueueSize),
		open:     true,
		policy:   hub.conf.Overflow,
	}
}

// Enqueue кладёт кадр в очередь не блокируясь. ErrClientQueueFull
// означает, что кадр (или самый старый кадр) потерян; при политике
// Disconnect соединение после этого закрыто.
func (c *Client) Enqueue(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return ErrConnectionClosed
	}

	select {
	case c.send <- frame:
		return nil
	default:
	}

	if c.policy == Disconnect {
		c.closeLocked()
		return ErrClientQueueFull
	}

	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- frame:
	default:
	}
	return ErrClientQueueFull
}

func (c *Client) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Close закрывает очередь; WritePump закроет соединение
func (c *Client) Close() {
	c.mu.Lock()
	c.closeLocked()
	c.mu.Unlock()
}

func (c *Client) closeLocked() {
	if !c.open {
		return
	}
	c.open = false
	close(c.send)
}

// Room текущая комната, соединение состоит максимум в одной
func (c *Client) Room() (RoomID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == nil {
		return 0, false
	}
	return *c.room, true
}

func (c *Client) IsInRoom(roomID RoomID) bool {
	id, ok := c.Room()
	return ok && id == roomID
}

func (c *Client) setRoom(roomID *RoomID) {
	c.mu.Lock()
	c.room = roomID
	c.mu.Unlock()
}

// ReadPump читает сообщения от клиента
func (c *Client) ReadPump(handler ClientMessageHandler) {
	log := c.Hub.log.With(zap.String("client", c.ID.String()), zap.String("user", c.Identity.UserID))
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Envelope
		err := c.Conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("websocket read failed", zap.Error(err))
			}
			break
		}

		msg.UserID = c.Identity.UserID

		switch msg.Type {
		case TypePong, TypePing:
			continue

		case TypeRoomJoin:
			if msg.RoomID == nil {
				c.SendError(ErrInvalidMessage.Error())
				continue
			}
			if err := c.Hub.JoinRoom(c, *msg.RoomID); err != nil {
				c.SendError(err.Error())
			}
			continue

		case TypeRoomLeave:
			c.Hub.LeaveRoom(c)
			continue
		}

		if handler != nil {
			if err := handler.HandleMessage(c, &msg); err != nil {
				log.Debug("message rejected", zap.String("type", string(msg.Type)), zap.Error(err))
				c.SendError(err.Error())
			}
		}
	}
}

// WritePump отправляет сообщения клиенту в порядке постановки
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// очередь закрыта хабом или при переполнении
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *Client) SendMessage(msgType MessageType, roomID *RoomID, data interface{}) error {
	env, err := NewEnvelope(msgType, roomID, data)
	if err != nil {
		return err
	}
	return c.SendEnvelope(env)
}

func (c *Client) SendEnvelope(env *Envelope) error {
	frame, err := env.Encode()
	if err != nil {
		return err
	}
	return c.Enqueue(frame)
}

func (c *Client) SendError(errorMsg string) {
	c.SendMessage(TypeError, nil, map[string]string{
		"error": errorMsg,
	})
}
