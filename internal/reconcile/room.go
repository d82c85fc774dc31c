// Package reconcile сводит историю комнаты и живые события в одну
// упорядоченную ленту без дублей и удалённых сообщений.
package reconcile

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

type Room struct {
	id int64

	mu         sync.Mutex
	state      State
	history    map[int64]Message
	live       map[int64]Message
	tombstones map[int64]struct{}
	likes      map[int64]LikeState
	// id с живым like_updated: счётчик и собственный лайк отдельно
	liveTotals map[int64]struct{}
	liveOwn    map[int64]struct{}
	historyErr error
	version    uint64
}

func NewRoom(id int64) *Room {
	return &Room{
		id:         id,
		history:    make(map[int64]Message),
		live:       make(map[int64]Message),
		tombstones: make(map[int64]struct{}),
		likes:      make(map[int64]LikeState),
		liveTotals: make(map[int64]struct{}),
		liveOwn:    make(map[int64]struct{}),
	}
}

func (r *Room) ID() int64 { return r.id }

func (r *Room) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Version растёт при каждом изменении, которое может поменять ленту
func (r *Room) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

func (r *Room) BeginLoading() {
	r.mu.Lock()
	if r.state == Empty {
		r.state = Loading
	}
	r.mu.Unlock()
}

// SeedHistory ставит историю. Если комната уже Synced, история только
// дополняет отсутствующие id и не перетирает живые данные.
func (r *Room) SeedHistory(msgs []Message) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	synced := r.state == Synced
	n := 0
	for _, m := range msgs {
		if m.ID == 0 || (m.RoomID != 0 && m.RoomID != r.id) {
			continue
		}
		if synced {
			if _, ok := r.history[m.ID]; ok {
				continue
			}
			if _, ok := r.live[m.ID]; ok {
				continue
			}
		}
		r.history[m.ID] = m
		n++
	}

	r.state = Synced
	r.historyErr = nil
	r.version++
	return n
}

// HistoryFailed комната продолжает работать на живых событиях
func (r *Room) HistoryFailed(cause error) error {
	err := errors.Wrapf(ErrHistoryFetch, "room %d: %v", r.id, cause)

	r.mu.Lock()
	r.historyErr = err
	r.state = Synced
	r.version++
	r.mu.Unlock()
	return err
}

func (r *Room) HistoryError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.historyErr
}

// ApplyLiveEvent идемпотентен. События чужих комнат игнорируются.
func (r *Room) ApplyLiveEvent(ev Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case MessageCreated:
		m := ev.Message
		if m.ID == 0 || m.RoomID != r.id {
			return false
		}
		r.live[m.ID] = m

	case MessageDeleted:
		if ev.MessageID == 0 || (ev.RoomID != 0 && ev.RoomID != r.id) {
			return false
		}
		r.tombstones[ev.MessageID] = struct{}{}

	case LikeUpdated:
		if ev.MessageID == 0 || (ev.RoomID != 0 && ev.RoomID != r.id) {
			return false
		}
		ls := r.likes[ev.MessageID]
		ls.TotalLikes = ev.TotalLikes
		r.liveTotals[ev.MessageID] = struct{}{}
		if ev.UserLiked != nil {
			ls.UserLiked = *ev.UserLiked
			r.liveOwn[ev.MessageID] = struct{}{}
		}
		r.likes[ev.MessageID] = ls

	default:
		return false
	}

	r.state = Synced
	r.version++
	return true
}

func (r *Room) ApplyTombstone(id int64) {
	r.mu.Lock()
	r.tombstones[id] = struct{}{}
	r.version++
	r.mu.Unlock()
}

func (r *Room) IsTombstoned(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tombstones[id]
	return ok
}

// SeedLikes ставит счётчики из истории. Id, по которым уже пришло
// живое like_updated, не трогаются.
func (r *Room) SeedLikes(totals map[int64]int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, total := range totals {
		if _, ok := r.liveTotals[id]; ok {
			continue
		}
		ls := r.likes[id]
		ls.TotalLikes = total
		r.likes[id] = ls
	}
	r.version++
}

// InitializeLikes отмечает сообщения, которые пользователь уже лайкнул.
// Живое состояние собственного лайка важнее.
func (r *Room) InitializeLikes(likedIDs []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range likedIDs {
		if _, ok := r.liveOwn[id]; ok {
			continue
		}
		ls := r.likes[id]
		ls.UserLiked = true
		r.likes[id] = ls
	}
	r.version++
}

func (r *Room) Like(id int64) LikeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.likes[id]
}

// Get возвращает видимое сообщение; живая версия важнее исторической
func (r *Room) Get(id int64) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dead := r.tombstones[id]; dead {
		return Message{}, false
	}
	if m, ok := r.live[id]; ok {
		return m, true
	}
	m, ok := r.history[id]
	return m, ok
}

// View детерминированно выводит ленту из текущего состояния
func (r *Room) View(hasTranslation TranslationLookup) []Message {
	if hasTranslation == nil {
		hasTranslation = func(int64) bool { return false }
	}

	r.mu.Lock()
	merged := make(map[int64]Message, len(r.history)+len(r.live))
	for id, m := range r.history {
		merged[id] = m
	}
	for id, m := range r.live {
		merged[id] = m
	}
	for id := range r.tombstones {
		delete(merged, id)
	}
	r.mu.Unlock()

	out := make([]Message, 0, len(merged))
	for _, m := range merged {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	translated := make(map[int64]bool, len(out))
	for _, m := range out {
		translated[m.ID] = hasTranslation(m.ID)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j], translated[out[i].ID], translated[out[j].ID])
	})
	return out
}

// less по времени; внутри TieWindow непереведённое идёт раньше переведённого
func less(a, b Message, aTranslated, bTranslated bool) bool {
	d := a.Timestamp.Sub(b.Timestamp)
	if d < 0 {
		d = -d
	}
	if d < TieWindow && aTranslated != bTranslated {
		return !aTranslated
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}
