package translation

import (
	"sort"
	"sync"
	"time"
)

// Key однозначно определяет перевод: текст, исходный и целевой язык
type Key struct {
	Text   string
	Source string
	Target string
}

type Entry struct {
	Text           string    `json:"text"`
	Source         string    `json:"source"`
	Target         string    `json:"target"`
	TranslatedText string    `json:"translatedText"`
	InsertedAt     time.Time `json:"timestamp"`
}

func (e Entry) Key() Key {
	return Key{Text: e.Text, Source: e.Source, Target: e.Target}
}

// Cache общий на процесс кэш переводов без вытеснения.
// Для одного ключа значение может только обновиться более свежим.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	now     func() time.Time
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[Key]Entry),
		now:     time.Now,
	}
}

func (c *Cache) Get(k Key) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[k]
	return e.TranslatedText, ok
}

func (c *Cache) Put(k Key, translated string) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := Entry{
		Text:           k.Text,
		Source:         k.Source,
		Target:         k.Target,
		TranslatedText: translated,
		InsertedAt:     c.now(),
	}
	if prev, ok := c.entries[k]; ok && e.InsertedAt.Before(prev.InsertedAt) {
		e.InsertedAt = prev.InsertedAt
	}
	c.entries[k] = e
	return e
}

// Load вливает снимок; существующая запись заменяется только более новой
func (c *Cache) Load(entries []Entry) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range entries {
		if e.Text == "" || e.Target == "" {
			continue
		}
		k := e.Key()
		if prev, ok := c.entries[k]; ok && !e.InsertedAt.After(prev.InsertedAt) {
			continue
		}
		c.entries[k] = e
		n++
	}
	return n
}

// Entries возвращает снимок, упорядоченный по времени вставки
func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].InsertedAt.Equal(out[j].InsertedAt) {
			return out[i].InsertedAt.Before(out[j].InsertedAt)
		}
		return out[i].Text < out[j].Text
	})
	return out
}

// CountTarget сколько переводов уже есть для языка
func (c *Cache) CountTarget(target string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for k := range c.entries {
		if k.Target == target {
			n++
		}
	}
	return n
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[Key]Entry)
	c.mu.Unlock()
}
