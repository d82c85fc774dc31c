package websocket

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// PresenceReporter рассылает online_count_updated в комнату при каждом
// входе или выходе. Счётчик берётся заново из хаба на момент рассылки.
// Рассылки одной комнаты идут по очереди, последним уходит актуальное число.
type PresenceReporter struct {
	hub *Hub
	log *zap.Logger
	now func() time.Time

	mu    sync.Mutex
	rooms map[RoomID]*roomFlush
}

type roomFlush struct {
	dirty bool
}

func NewPresenceReporter(hub *Hub) *PresenceReporter {
	p := &PresenceReporter{
		hub:   hub,
		log:   hub.log.Named("presence"),
		now:   time.Now,
		rooms: make(map[RoomID]*roomFlush),
	}
	hub.AddObserver(p)
	return p
}

// RoomChanged не блокируется на чужой рассылке: если по комнате уже идёт
// рассылка, переход помечается, и та же горутина отправит свежее число.
// Повторный вызов из Broadcast (снятие закрытых соединений) обрабатывается так же.
func (p *PresenceReporter) RoomChanged(roomID RoomID) {
	p.mu.Lock()
	if f, ok := p.rooms[roomID]; ok {
		f.dirty = true
		p.mu.Unlock()
		return
	}
	f := &roomFlush{dirty: true}
	p.rooms[roomID] = f
	for f.dirty {
		f.dirty = false
		p.mu.Unlock()
		p.broadcast(roomID)
		p.mu.Lock()
	}
	delete(p.rooms, roomID)
	p.mu.Unlock()
}

func (p *PresenceReporter) broadcast(roomID RoomID) {
	env, err := p.Snapshot(roomID)
	if err != nil {
		p.log.Error("online count snapshot", zap.Int64("room", roomID), zap.Error(err))
		return
	}
	res := p.hub.Broadcast(roomID, env)
	p.log.Debug("online count broadcast", zap.Int64("room", roomID), zap.Int("delivered", res.Delivered))
}

// Count текущее значение для REST и поздно подключившихся
func (p *PresenceReporter) Count(roomID RoomID) OnlineCount {
	return OnlineCount{
		RoomID:      roomID,
		OnlineCount: p.hub.OnlineCount(roomID),
		Timestamp:   p.now(),
	}
}

func (p *PresenceReporter) Snapshot(roomID RoomID) (*Envelope, error) {
	return NewEnvelope(TypeOnlineCountUpdated, RoomRef(roomID), p.Count(roomID))
}
