// Package mention находит упоминания текущего пользователя в ленте
// и поднимает уведомление ровно один раз на сообщение.
package mention

import (
	"regexp"
	"sort"
	"sync"

	"github.com/thereayou/bolcha/internal/reconcile"
)

type Identity struct {
	UserID      string
	DisplayName string
}

type Notification struct {
	MessageID  int64
	SenderName string
	Text       string
}

type Option func(*Evaluator)

// WithNotifier вызывается синхронно из Evaluate для каждого нового упоминания
func WithNotifier(fn func(Notification)) Option {
	return func(e *Evaluator) { e.notify = fn }
}

type Evaluator struct {
	mu        sync.Mutex
	self      Identity
	pattern   *regexp.Regexp
	previous  map[int64]struct{}
	mentioned map[int64]struct{}
	notified  map[int64]struct{}
	notify    func(Notification)
}

func NewEvaluator(self Identity, opts ...Option) *Evaluator {
	e := &Evaluator{
		previous:  make(map[int64]struct{}),
		mentioned: make(map[int64]struct{}),
		notified:  make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.setIdentity(self)
	return e
}

// Pattern @имя без учёта регистра, за именем конец текста или не буква.
// Граница через \p{L}, \b в regexp понимает только ASCII.
func Pattern(displayName string) *regexp.Regexp {
	if displayName == "" {
		return nil
	}
	return regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(displayName) + `(?:$|[^\p{L}\p{N}\p{M}_])`)
}

func (e *Evaluator) SetIdentity(self Identity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setIdentity(self)
}

func (e *Evaluator) setIdentity(self Identity) {
	e.self = self
	e.pattern = Pattern(self.DisplayName)
}

func (e *Evaluator) Matches(text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pattern != nil && e.pattern.MatchString(text)
}

// Prime помечает ленту просмотренной: подсветка ставится, уведомлений нет.
// Используется для первой загрузки истории.
func (e *Evaluator) Prime(view []reconcile.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, m := range view {
		e.previous[m.ID] = struct{}{}
		e.notified[m.ID] = struct{}{}
		if e.pattern != nil && e.pattern.MatchString(m.OriginalText) {
			e.mentioned[m.ID] = struct{}{}
		}
	}
}

// Evaluate сравнивает ленту с предыдущей. Уведомляются только новые
// сообщения не от самого пользователя.
func (e *Evaluator) Evaluate(view []reconcile.Message) []Notification {
	e.mu.Lock()

	var out []Notification
	current := make(map[int64]struct{}, len(view))
	for _, m := range view {
		current[m.ID] = struct{}{}
		if e.pattern == nil || !e.pattern.MatchString(m.OriginalText) {
			continue
		}
		e.mentioned[m.ID] = struct{}{}

		if _, seen := e.previous[m.ID]; seen {
			continue
		}
		if _, done := e.notified[m.ID]; done {
			continue
		}
		if m.SenderID == e.self.UserID {
			continue
		}
		e.notified[m.ID] = struct{}{}
		out = append(out, Notification{MessageID: m.ID, SenderName: m.SenderName, Text: m.OriginalText})
	}
	e.previous = current
	notify := e.notify
	e.mu.Unlock()

	if notify != nil {
		for _, n := range out {
			notify(n)
		}
	}
	return out
}

func (e *Evaluator) IsMentioned(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.mentioned[id]
	return ok
}

// Mentioned id подсвеченных сообщений по возрастанию
func (e *Evaluator) Mentioned() []int64 {
	e.mu.Lock()
	out := make([]int64, 0, len(e.mentioned))
	for id := range e.mentioned {
		out = append(out, id)
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
