package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/thereayou/bolcha/pkg/logger"
)

type HubConf struct {
	SendQueueSize int
	Overflow      OverflowPolicy
	SweepEvery    time.Duration
	Logger        *zap.Logger
	Metrics       *Metrics
}

func (c *HubConf) norm() {
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = 30 * time.Second
	}
	c.Logger = logger.OrNop(c.Logger)
	if c.Metrics == nil {
		c.Metrics = NewMetrics(nil)
	}
}

// RoomObserver узнаёт о каждом входе и выходе из комнаты.
// Вызывается после снятия блокировки хаба.
type RoomObserver interface {
	RoomChanged(roomID RoomID)
}

// BroadcastResult Delivered кадр поставлен в очередь, Skipped соединение
// уже закрыто, Dropped из очереди выброшен кадр
type BroadcastResult struct {
	Delivered int
	Skipped   int
	Dropped   int
}

type Hub struct {
	conf HubConf
	log  *zap.Logger

	clients map[uuid.UUID]*Client

	// Клиенты по UserID (один пользователь может иметь несколько соединений)
	userClients map[string]map[uuid.UUID]*Client

	// Клиенты в комнатах
	rooms map[RoomID]map[uuid.UUID]*Client

	observers []RoomObserver

	mu sync.RWMutex

	// Контекст для graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub создает новый Hub
func NewHub(conf HubConf) *Hub {
	conf.norm()
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		conf:        conf,
		log:         conf.Logger.Named("hub"),
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[string]map[uuid.UUID]*Client),
		rooms:       make(map[RoomID]map[uuid.UUID]*Client),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (h *Hub) AddObserver(o RoomObserver) {
	h.mu.Lock()
	h.observers = append(h.observers, o)
	h.mu.Unlock()
}

// Run периодически вычищает закрытые соединения до отмены ctx или Stop
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.conf.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.Sweep()
		}
	}
}

// Stop останавливает hub
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.Close()
	}
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		h.mu.Unlock()
		return
	}
	h.clients[client.ID] = client

	userID := client.Identity.UserID
	if _, ok := h.userClients[userID]; !ok {
		h.userClients[userID] = make(map[uuid.UUID]*Client)
	}
	h.userClients[userID][client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.conf.Metrics.Connections.Set(float64(total))
	h.log.Info("client registered", zap.String("client", client.ID.String()), zap.String("user", userID))
}

// Unregister отменяет регистрацию клиента, повторный вызов ничего не делает
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		client.Close()
		return
	}

	prev, hadRoom := client.Room()
	if hadRoom {
		h.removeFromRoomLocked(client, prev)
	}

	if userClients, ok := h.userClients[client.Identity.UserID]; ok {
		delete(userClients, client.ID)
		if len(userClients) == 0 {
			delete(h.userClients, client.Identity.UserID)
		}
	}
	delete(h.clients, client.ID)
	total := len(h.clients)
	observers := h.observers
	h.mu.Unlock()

	client.Close()
	h.conf.Metrics.Connections.Set(float64(total))
	h.log.Info("client unregistered", zap.String("client", client.ID.String()), zap.String("user", client.Identity.UserID))

	if hadRoom {
		notify(observers, prev)
	}
}

// JoinRoom переводит клиента в комнату. Переход из другой комнаты
// даёт два уведомления: сначала о старой, потом о новой.
func (h *Hub) JoinRoom(client *Client, roomID RoomID) error {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		return ErrNotRegistered
	}
	if !client.IsOpen() {
		h.mu.Unlock()
		return ErrConnectionClosed
	}

	prev, hadRoom := client.Room()
	if hadRoom && prev == roomID {
		h.mu.Unlock()
		return nil
	}
	if hadRoom {
		h.removeFromRoomLocked(client, prev)
	}

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[uuid.UUID]*Client)
	}
	h.rooms[roomID][client.ID] = client
	client.setRoom(RoomRef(roomID))
	observers := h.observers
	h.mu.Unlock()

	h.log.Debug("room joined", zap.String("client", client.ID.String()), zap.Int64("room", roomID))
	if hadRoom {
		notify(observers, prev)
	}
	notify(observers, roomID)
	return nil
}

// LeaveRoom удаляет клиента из его комнаты
func (h *Hub) LeaveRoom(client *Client) {
	h.mu.Lock()
	prev, ok := client.Room()
	if !ok {
		h.mu.Unlock()
		return
	}
	h.removeFromRoomLocked(client, prev)
	observers := h.observers
	h.mu.Unlock()

	notify(observers, prev)
}

func (h *Hub) removeFromRoomLocked(client *Client, roomID RoomID) {
	if room, ok := h.rooms[roomID]; ok {
		delete(room, client.ID)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
	client.setRoom(nil)
}

func notify(observers []RoomObserver, roomID RoomID) {
	for _, o := range observers {
		o.RoomChanged(roomID)
	}
}

// Broadcast ставит событие в очередь каждому открытому соединению комнаты.
// Закрытые соединения пропускаются и снимаются с регистрации после рассылки.
func (h *Hub) Broadcast(roomID RoomID, env *Envelope) BroadcastResult {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[roomID]))
	for _, c := range h.rooms[roomID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	return h.deliver(targets, env)
}

// BroadcastAll рассылка всем соединениям вне зависимости от комнаты
func (h *Hub) BroadcastAll(env *Envelope) BroadcastResult {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	return h.deliver(targets, env)
}

func (h *Hub) deliver(targets []*Client, env *Envelope) BroadcastResult {
	var res BroadcastResult

	frame, err := env.Encode()
	if err != nil {
		h.log.Error("encode broadcast", zap.String("type", string(env.Type)), zap.Error(err))
		return res
	}

	var stale []*Client
	for _, c := range targets {
		err := c.Enqueue(frame)
		switch {
		case err == nil:
			res.Delivered++
		case errors.Is(err, ErrClientQueueFull):
			res.Dropped++
			if c.IsOpen() {
				res.Delivered++
			} else {
				stale = append(stale, c)
			}
			h.log.Warn("client send queue full", zap.String("client", c.ID.String()))
		default:
			res.Skipped++
			stale = append(stale, c)
		}
	}

	h.conf.Metrics.Delivered.Add(float64(res.Delivered))
	h.conf.Metrics.Dropped.Add(float64(res.Dropped))

	for _, c := range stale {
		h.Unregister(c)
	}
	return res
}

// Sweep снимает с регистрации закрытые соединения
func (h *Hub) Sweep() int {
	h.mu.RLock()
	var stale []*Client
	for _, c := range h.clients {
		if !c.IsOpen() {
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.Unregister(c)
	}
	return len(stale)
}

// OnlineCount число открытых соединений в комнате
func (h *Hub) OnlineCount(roomID RoomID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, c := range h.rooms[roomID] {
		if c.IsOpen() {
			n++
		}
	}
	return n
}

// OnlineUsers возвращает список пользователей в комнате
func (h *Hub) OnlineUsers(roomID RoomID) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userMap := make(map[string]bool)
	for _, client := range h.rooms[roomID] {
		if client.IsOpen() {
			userMap[client.Identity.UserID] = true
		}
	}

	users := make([]string, 0, len(userMap))
	for userID := range userMap {
		users = append(users, userID)
	}
	return users
}

// IsConnected есть ли у пользователя хотя бы одно открытое соединение
func (h *Hub) IsConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.userClients[userID] {
		if c.IsOpen() {
			return true
		}
	}
	return false
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
