package handlers

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/thereayou/bolcha/internal/models"
)

type likeKey struct {
	message int64
	user    string
}

// memStore Store в памяти для тестов хендлеров
type memStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	rooms    map[int64]*models.Room
	messages map[int64]*models.Message
	likes    map[likeKey]bool
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*models.User),
		rooms:    make(map[int64]*models.Room),
		messages: make(map[int64]*models.Message),
		likes:    make(map[likeKey]bool),
		nextID:   100,
	}
}

func notFound(what string) error {
	return errors.Wrap(gorm.ErrRecordNotFound, what)
}

func (s *memStore) GetUser(id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, notFound("user")
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) SaveUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memStore) UpdateLastSeen(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.LastSeenAt = time.Now()
	}
	return nil
}

func (s *memStore) UpdatePreferredLanguage(id, lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return notFound("user")
	}
	u.PreferredLanguage = lang
	return nil
}

func (s *memStore) GetRoom(id int64) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, notFound("room")
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) ListRooms() ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) TouchRoom(id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[id]; ok {
		r.LastActivity = at
	}
	return nil
}

func (s *memStore) SaveMessage(m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == 0 {
		s.nextID++
		m.ID = s.nextID
	}
	cp := *m
	s.messages[m.ID] = &cp
	return nil
}

func (s *memStore) GetMessage(id int64) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, notFound("message")
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) DeleteMessage(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, id)
	return nil
}

func (s *memStore) GetRoomMessages(roomID int64, limit int, beforeID *int64) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.messages {
		if m.RoomID != roomID || (beforeID != nil && m.ID >= *beforeID) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) ToggleLike(messageID int64, userID string) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := likeKey{messageID, userID}
	if s.likes[k] {
		delete(s.likes, k)
	} else {
		s.likes[k] = true
	}
	return s.likes[k], s.countLocked(messageID), nil
}

func (s *memStore) countLocked(messageID int64) int64 {
	var n int64
	for k := range s.likes {
		if k.message == messageID {
			n++
		}
	}
	return n
}

func (s *memStore) LikedMessageIDs(userID string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for k := range s.likes {
		if k.user == userID {
			ids = append(ids, k.message)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memStore) LikeCounts(ids []int64) (map[int64]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int64)
	for _, id := range ids {
		if n := s.countLocked(id); n > 0 {
			out[id] = n
		}
	}
	return out, nil
}
